// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// MaxHistoryTurns is the most prior turns the proxy accepts with a message.
const MaxHistoryTurns = 200

// MaxTurns bounds the in-memory conversation. The turn being sent counts
// towards it, so the history before that turn never exceeds MaxHistoryTurns.
const MaxTurns = MaxHistoryTurns

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered sequence of turns. Order is insertion order.
// Not safe for concurrent use; callers serialize access.
type Conversation struct {
	turns []Turn
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Add appends a turn and returns it. The oldest turns are dropped once
// MaxTurns is exceeded.
func (c *Conversation) Add(t Turn) Turn {
	if t.ID == "" {
		t.ID = generateID()
	}
	c.turns = append(c.turns, t)
	if over := len(c.turns) - MaxTurns; over > 0 {
		c.turns = append([]Turn(nil), c.turns[over:]...)
	}
	return t
}

// AddUser appends a user turn.
func (c *Conversation) AddUser(content string) Turn {
	return c.Add(NewTurn(RoleUser, content))
}

// AddAssistant appends an assistant turn.
func (c *Conversation) AddAssistant(content string) Turn {
	return c.Add(NewTurn(RoleAssistant, content))
}

// Remove deletes the turn with the given ID. Returns false if absent.
func (c *Conversation) Remove(id string) bool {
	for i := range c.turns {
		if c.turns[i].ID == id {
			c.turns = append(c.turns[:i:i], c.turns[i+1:]...)
			return true
		}
	}
	return false
}

// Before returns a copy of the turns preceding the turn with the given ID.
// If the ID is absent every turn is returned.
func (c *Conversation) Before(id string) []Turn {
	end := len(c.turns)
	for i := range c.turns {
		if c.turns[i].ID == id {
			end = i
			break
		}
	}
	out := make([]Turn, end)
	copy(out, c.turns[:end])
	return out
}

// Turns returns a copy of every turn in order.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// IsEmpty reports whether there are no turns.
func (c *Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}

// Clear removes every turn.
func (c *Conversation) Clear() {
	c.turns = nil
}
