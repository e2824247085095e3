// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides a minimal client for the Google generative-language
// REST API.
//
// Only the two calls bookbot needs are implemented: listing models and
// single-shot text generation. The API key travels as the "key" query
// parameter and is never logged; a SHA-256 fingerprint is used instead.
//
// Upstream failures are returned as *APIError so callers can branch on the
// HTTP status (a 404 means "model not served here", anything else is a real
// failure).
package gemini
