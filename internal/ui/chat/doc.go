// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat view.
//
// The view is a thin Bubble Tea shell over session.Client: Enter calls Begin,
// the request runs as a tea.Cmd, and the resulting ReplyMsg is folded back in
// with Complete or Fail. Everything the view shows is re-derived from the
// session on each refresh.
//
// Key bindings:
//
//	Enter      send
//	Alt+Enter  newline
//	Ctrl+L     clear the conversation
//	Esc        dismiss the error banner
//	PgUp/PgDn  scroll
//	Ctrl+C     quit
package chat
