// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nav

import (
	"net/url"
	"path"
	"strings"
)

// Clean normalises a path: leading slash, no trailing slash, no dot segments.
func Clean(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

// Resolve resolves target against base and returns the location it would
// navigate to. Fragment-only and query-only targets resolve to base's path,
// so they never count as leaving the page. Targets on another host resolve
// to their absolute URL.
func Resolve(target, base string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return Clean(base)
	}

	u, err := url.Parse(target)
	if err != nil {
		return Clean(target)
	}
	b, err := url.Parse(Clean(base))
	if err != nil {
		return Clean(target)
	}

	r := b.ResolveReference(u)
	if r.Host != "" {
		r.Fragment = ""
		return r.String()
	}
	return Clean(r.Path)
}

// SameLocation reports whether target resolves to base.
func SameLocation(target, base string) bool {
	return Resolve(target, base) == Clean(base)
}
