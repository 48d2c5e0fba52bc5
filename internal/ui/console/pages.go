// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"net/url"

	"github.com/jeranaias/gazette-assist/internal/nav"
)

// Page is one console screen.
type Page struct {
	Path  string
	Title string
	Lines []string

	// FormAction is where the page's filter form submits, if it has one.
	FormAction string
}

// Pages are the console screens in tab order.
var Pages = []Page{
	{
		Path:  "/",
		Title: "Dashboard",
		Lines: []string{
			"Notices awaiting review: 14",
			"Published this week: 37",
			"Open cases: 6",
		},
	},
	{
		Path:  "/gazette",
		Title: "Gazette Notices",
		Lines: []string{
			"Vol. 111 No. 22  Change of Name, Probate, Land",
			"Vol. 111 No. 19  Change of Name, Marriage",
			"Vol. 111 No. 17  Probate",
		},
		FormAction: "/gazette?status=pending",
	},
	{
		Path:  "/people",
		Title: "People Registry",
		Lines: []string{
			"Search names across change-of-name and probate notices.",
		},
		FormAction: "/people?q=okafor",
	},
	{
		Path:  "/cases",
		Title: "Case Files",
		Lines: []string{
			"CASE-2024-031  Disputed name change  open",
			"CASE-2024-027  Estate claim          open",
			"CASE-2024-019  Lost title deed       closed",
		},
		FormAction: "/cases?status=open",
	},
	{
		Path:  "/audit",
		Title: "Audit Log",
		Lines: []string{
			"Every publication and withdrawal is recorded here.",
		},
	},
}

// KeepAliveTarget is where the simulated session keep-alive redirects.
const KeepAliveTarget = "/"

// PageFor returns the page shown at loc.
func PageFor(loc string) Page {
	path := loc
	if u, err := url.Parse(loc); err == nil {
		path = u.Path
	}
	path = nav.Clean(path)
	for _, p := range Pages {
		if p.Path == path {
			return p
		}
	}
	return Page{Path: path, Title: "Not Found", Lines: []string{"No console page at " + path}}
}

// PageIndex returns the tab index of the page at loc, or -1.
func PageIndex(loc string) int {
	path := PageFor(loc).Path
	for i, p := range Pages {
		if p.Path == path {
			return i
		}
	}
	return -1
}
