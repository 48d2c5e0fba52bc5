// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local stand-in for the remote AI chat endpoint.
//
// It answers the same wire contract the assistant client speaks, searching a
// seeded SQLite index of gazette notices instead of calling a model, so the
// console can be driven end to end without network access.
//
// # Endpoints
//
//   - POST /api/v1/ai/chat - chat turn (JWT bearer auth)
//   - GET  /healthz        - liveness and notice count
//
// # Usage
//
//	store, err := devserver.OpenStore(ctx, path, logger)
//	srv := devserver.New(devserver.Config{Addr: ":8484", JWTSecret: secret}, store, logger)
//	err = srv.Listen()
package devserver
