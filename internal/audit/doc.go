// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit records upstream attempts in a local SQLite database.
//
// One row is written per (model, version) attempt: request ID, model, API
// version, HTTP status, outcome, error text and latency. Prompt and reply text
// are never stored. The log is optional and enabled with audit.enabled.
package audit
