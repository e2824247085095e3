// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// # Key Types
//
//   - Role: speaker of a turn (user or assistant)
//   - Turn: one message in the conversation, the unit sent as history
//   - Conversation: ordered, append-only-except-rollback turn sequence
//
// # Usage
//
//	conv := model.NewConversation()
//	turn := conv.AddUser("Hello!")
//	history := conv.Before(turn.ID)
//	...
//	conv.AddAssistant(reply)
package model
