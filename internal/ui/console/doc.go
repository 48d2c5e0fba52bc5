// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package console is the terminal rendition of the gazette admin console
// that hosts the assistant panel.
//
// The console owns a nav.History and routes every in-page link click and
// form submission through a nav.Dispatcher, so an open assistant session can
// pin the page. A simulated keep-alive redirect exercises the programmatic
// path and the history keys exercise drift correction.
package console
