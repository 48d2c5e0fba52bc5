// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Notice types known to the index.
const (
	TypeChangeOfName = "change_of_name"
	TypeMarriage     = "marriage"
	TypeLand         = "land"
	TypeProbate      = "probate"
)

// typePhrases maps request phrases to notice types. Longer phrases are
// matched first so "change of name" wins over any single word in it.
var typePhrases = map[string]string{
	"change of name":  TypeChangeOfName,
	"changes of name": TypeChangeOfName,
	"name change":     TypeChangeOfName,
	"name changes":    TypeChangeOfName,
	"deed poll":       TypeChangeOfName,
	"marriage":        TypeMarriage,
	"marriages":       TypeMarriage,
	"wedding":         TypeMarriage,
	"land":            TypeLand,
	"title deed":      TypeLand,
	"lost title":      TypeLand,
	"probate":         TypeProbate,
	"estate":          TypeProbate,
	"estates":         TypeProbate,
	"succession":      TypeProbate,
}

var stopWords = map[string]bool{
	"a": true, "all": true, "an": true, "and": true, "any": true, "are": true,
	"by": true, "called": true, "display": true, "entries": true, "entry": true,
	"every": true, "find": true, "for": true, "from": true, "get": true,
	"give": true, "in": true, "is": true, "latest": true, "list": true,
	"look": true, "me": true, "named": true, "notice": true, "notices": true,
	"of": true, "on": true, "please": true, "recent": true, "records": true,
	"results": true, "search": true, "show": true, "the": true, "there": true,
	"up": true, "was": true, "were": true, "what": true, "which": true,
	"who": true, "with": true,
}

// Query is a parsed search request.
type Query struct {
	Types []string
	Terms []string
}

// Key returns a stable cache key for the query.
func (q Query) Key() string {
	return strings.Join(q.Types, ",") + "|" + strings.Join(q.Terms, " ")
}

// Empty reports whether the query matches every notice.
func (q Query) Empty() bool {
	return len(q.Types) == 0 && len(q.Terms) == 0
}

// ParseQuery extracts notice types and free-text terms from a message.
func ParseQuery(message string) Query {
	text := " " + normalizeText(message) + " "

	phrases := make([]string, 0, len(typePhrases))
	for p := range typePhrases {
		phrases = append(phrases, p)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i]) != len(phrases[j]) {
			return len(phrases[i]) > len(phrases[j])
		}
		return phrases[i] < phrases[j]
	})

	seen := make(map[string]bool)
	var q Query
	for _, p := range phrases {
		needle := " " + p + " "
		if !strings.Contains(text, needle) {
			continue
		}
		text = strings.ReplaceAll(text, needle, " ")
		if t := typePhrases[p]; !seen[t] {
			seen[t] = true
			q.Types = append(q.Types, t)
		}
	}
	sort.Strings(q.Types)

	for _, word := range strings.Fields(text) {
		if len([]rune(word)) < 2 || stopWords[word] || seen["term:"+word] {
			continue
		}
		seen["term:"+word] = true
		q.Terms = append(q.Terms, word)
	}
	return q
}

// normalizeText lowercases, NFC-normalises and replaces punctuation with
// spaces.
func normalizeText(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '/' {
			return r
		}
		return ' '
	}, s)
}
