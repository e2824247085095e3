// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Label returns the speaker label used in flattened prompts. Anything that is
// not exactly "user" is treated as the assistant.
func (r Role) Label() string {
	if r == RoleUser {
		return "User"
	}
	return "Assistant"
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	if r == RoleUser {
		return "You"
	}
	return "BookBot"
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is a single message in a conversation. Only Role and Content are sent
// over the wire.
type Turn struct {
	ID        string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"-"`
}

// NewTurn creates a turn with a generated ID.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// IsUser reports whether the turn was spoken by the user.
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}

// generateID creates a short random identifier.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}
