// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/bookbot/internal/model"
	"github.com/jeranaias/bookbot/internal/prompt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned for empty or whitespace-only submissions.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("a request is already in progress")
)

// =============================================================================
// TYPES
// =============================================================================

// Sender delivers a message and its prior turns to the proxy.
type Sender interface {
	Chat(ctx context.Context, message string, history []model.Turn) (string, error)
}

// Submission is an accepted, in-flight request.
type Submission struct {
	// TurnID identifies the optimistic user turn.
	TurnID string
	// Display is the trimmed input as shown in the conversation.
	Display string
	// Message is what is sent: Display, or the recommendation request
	// wrapping it when Display looks like a library paste.
	Message string
	// History is every turn before the user turn.
	History []model.Turn
	// Library reports whether Message wraps a library paste.
	Library bool

	generation uint64
}

// Client is the conversation state. Safe for concurrent use.
type Client struct {
	sender Sender

	mu         sync.Mutex
	conv       *model.Conversation
	busy       bool
	lastErr    error
	generation uint64
}

// NewClient creates an empty conversation that sends through sender.
func NewClient(sender Sender) *Client {
	return &Client{
		sender: sender,
		conv:   model.NewConversation(),
	}
}

// =============================================================================
// SUBMIT LIFECYCLE
// =============================================================================

// Begin accepts input for sending. On success the user turn is already in the
// conversation, the busy flag is set and the error is cleared. Empty input
// and input while busy are rejected without any state change.
func (c *Client) Begin(input string) (Submission, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return Submission{}, ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return Submission{}, ErrBusy
	}

	turn := c.conv.AddUser(text)
	c.busy = true
	c.lastErr = nil

	message := prompt.Outgoing(text)
	return Submission{
		TurnID:     turn.ID,
		Display:    text,
		Message:    message,
		History:    c.conv.Before(turn.ID),
		Library:    message != text,
		generation: c.generation,
	}, nil
}

// Complete records the assistant reply for sub and clears the busy flag.
// A reply for a conversation cleared in the meantime is dropped.
func (c *Client) Complete(sub Submission, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.busy = false
	if sub.generation != c.generation {
		return
	}
	c.conv.AddAssistant(reply)
}

// Fail removes the optimistic user turn for sub, stores err and clears the
// busy flag. The failed text is not restored anywhere.
func (c *Client) Fail(sub Submission, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.busy = false
	if sub.generation != c.generation {
		return
	}
	c.conv.Remove(sub.TurnID)
	c.lastErr = err
}

// Submit runs the whole lifecycle synchronously and returns the reply.
func (c *Client) Submit(ctx context.Context, input string) (string, error) {
	sub, err := c.Begin(input)
	if err != nil {
		return "", err
	}

	reply, err := c.sender.Chat(ctx, sub.Message, sub.History)
	if err != nil {
		c.Fail(sub, err)
		return "", err
	}
	c.Complete(sub, reply)
	return reply, nil
}

// Send performs the network half of a submission started with Begin.
func (c *Client) Send(ctx context.Context, sub Submission) (string, error) {
	return c.sender.Chat(ctx, sub.Message, sub.History)
}

// Clear empties the conversation and the error together. A request still in
// flight will not touch the new, empty conversation.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conv.Clear()
	c.lastErr = nil
	c.generation++
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Turns returns a copy of the conversation.
func (c *Client) Turns() []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Turns()
}

// Busy reports whether a request is in flight.
func (c *Client) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Err returns the error of the last failed submission, or nil.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// DismissError clears the stored error without touching the turns.
func (c *Client) DismissError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}
