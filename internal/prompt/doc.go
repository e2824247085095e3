// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompt builds the text bookbot sends upstream.
//
// Flatten turns a conversation history plus the new message into a single
// labelled transcript with a brevity instruction appended. DetectLibrary
// recognises a pasted Kindle library export, and Recommendation wraps such a
// paste in the recommendation request template.
package prompt
