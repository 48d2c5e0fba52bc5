// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nav provides the navigation abstraction the console host runs on.
//
// Location changes happen through three routes, each of which the assistant's
// navigation guard can observe:
//
//   - Declarative events (link clicks, form submits) flow through a
//     Dispatcher, which evaluates an ordered list of interceptors before
//     performing the default action.
//   - Programmatic pushes and replaces go through swappable Primitives on a
//     Patchable navigator.
//   - Out-of-band moves (Back, Forward) change the location directly and can
//     only be caught by comparing Location against an expected value.
//
// # Key Types
//
//   - Navigator: Read the location, push/replace it, subscribe to changes
//   - Patchable: Navigator whose Push/Replace primitives can be wrapped
//   - History: In-memory, thread-safe Patchable with a back stack
//   - Dispatcher: Ordered interceptor chain for declarative events
//
// # Usage
//
//	h := nav.NewHistory("/gazette")
//	d := nav.NewDispatcher(h)
//	d.Dispatch(nav.Event{Kind: nav.EventClick, Target: "/people"})
//	fmt.Println(h.Location()) // "/people"
package nav
