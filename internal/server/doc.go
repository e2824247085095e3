// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the bookbot HTTP proxy in front of the Gemini API.
//
// Endpoints:
//   - POST /api/chat   - {message, history} -> {response} or {error}
//   - GET  /api/models - discovery result and the candidate list
//   - GET  /health     - liveness and whether an API key is configured
//
// The API key never leaves the server. Every request passes through the
// middleware chain: recovery, security headers, request ID, logging, CORS,
// per-IP rate limiting and a body size limit.
package server
