// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

// SeedNotices is the sample index loaded into an empty store.
var SeedNotices = []Notice{
	{
		ID: "GN-2024-0112", NoticeType: TypeChangeOfName,
		Title:      "Change of Name: Adaeze Okafor",
		PersonName: "Adaeze Okafor", OldName: "Adaeze Nwosu", NewName: "Adaeze Okafor",
		GazetteNumber: "Vol. 111 No. 12", PublishedAt: "2024-03-14",
		Location: "Lagos", Authority: "Federal Ministry of Interior",
		Body: "I, formerly known as Adaeze Nwosu, now wish to be known as Adaeze Okafor.",
	},
	{
		ID: "GN-2024-0127", NoticeType: TypeChangeOfName,
		Title:      "Change of Name: Tunde Bakare",
		PersonName: "Tunde Bakare", OldName: "Babatunde Adeyemi", NewName: "Tunde Bakare",
		GazetteNumber: "Vol. 111 No. 14", PublishedAt: "2024-04-02",
		Location: "Ibadan",
		Body:     "All former documents remain valid.",
	},
	{
		ID: "GN-2024-0155", NoticeType: TypeChangeOfName,
		Title:      "Change of Name: Grace Eze",
		PersonName: "Grace Eze", OldName: "Grace Nnaji", NewName: "Grace Eze",
		GazetteNumber: "Vol. 111 No. 19", PublishedAt: "2024-05-21",
		Location: "Enugu", Authority: "Federal Ministry of Interior",
	},
	{
		ID: "GN-2024-0171", NoticeType: TypeChangeOfName,
		Title:      "Change of Name: René Okafor",
		PersonName: "René Okafor", OldName: "René Adewale", NewName: "René Okafor",
		GazetteNumber: "Vol. 111 No. 22", PublishedAt: "2024-06-18",
		Location: "Abuja",
	},
	{
		ID: "GN-2024-0203", NoticeType: TypeChangeOfName,
		Title:      "Change of Name: Musa Ibrahim",
		PersonName: "Musa Ibrahim", OldName: "Musa Abdullahi", NewName: "Musa Ibrahim",
		PublishedAt: "2024-08-09",
		Location:    "Kano", Authority: "Kano State Registry",
	},
	{
		ID: "GN-2024-0119", NoticeType: TypeMarriage,
		Title:      "Notice of Marriage: Chinedu Obi and Ngozi Eze",
		PersonName: "Chinedu Obi", GazetteNumber: "Vol. 111 No. 13",
		PublishedAt: "2024-03-21", Location: "Onitsha",
		Authority: "Onitsha Marriage Registry",
	},
	{
		ID: "GN-2024-0188", NoticeType: TypeMarriage,
		Title:      "Notice of Marriage: Femi Ade and Bisi Ade",
		PersonName: "Femi Ade", PublishedAt: "2024-07-11",
		Location: "Lagos", Authority: "Ikoyi Marriage Registry",
	},
	{
		ID: "GN-2024-0134", NoticeType: TypeLand,
		Title:         "Lost Title Deed: Plot 14, Victoria Island",
		GazetteNumber: "Vol. 111 No. 15", PublishedAt: "2024-04-16",
		Location: "Lagos", Authority: "Lagos State Lands Bureau",
		Body: "Certificate of occupancy for Plot 14 reported lost.",
	},
	{
		ID: "GN-2024-0166", NoticeType: TypeLand,
		Title:       "Land Acquisition: Kubwa Extension",
		PublishedAt: "2024-06-04", Location: "Abuja",
		Authority: "Federal Capital Development Authority",
	},
	{
		ID: "GN-2024-0142", NoticeType: TypeProbate,
		Title:      "Probate: Estate of Late Emeka Okafor",
		PersonName: "Emeka Okafor", GazetteNumber: "Vol. 111 No. 17",
		PublishedAt: "2024-05-03", Location: "Lagos", Authority: "High Court of Lagos State",
		Body: "Claims against the estate to be filed within 30 days.",
	},
	{
		ID: "GN-2024-0197", NoticeType: TypeProbate,
		Title:      "Probate: Estate of Late Hauwa Bello",
		PersonName: "Hauwa Bello", PublishedAt: "2024-07-30",
		Location: "Kaduna", Authority: "High Court of Kaduna State",
	},
}
