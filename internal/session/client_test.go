// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/bookbot/internal/model"
	"github.com/jeranaias/bookbot/internal/prompt"
)

type call struct {
	message string
	history []model.Turn
}

type fakeSender struct {
	calls []call
	reply string
	err   error
}

func (f *fakeSender) Chat(ctx context.Context, message string, history []model.Turn) (string, error) {
	f.calls = append(f.calls, call{message, history})
	return f.reply, f.err
}

func TestSubmit_Success(t *testing.T) {
	sender := &fakeSender{reply: "Hello!"}
	c := NewClient(sender)

	reply, err := c.Submit(context.Background(), "  Hi  ")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", reply)

	turns := c.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "Hi", turns[0].Content)
	assert.Equal(t, model.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hello!", turns[1].Content)

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "Hi", sender.calls[0].message)
	assert.Empty(t, sender.calls[0].history)
	assert.False(t, c.Busy())
}

func TestSubmit_HistoryExcludesNewTurn(t *testing.T) {
	sender := &fakeSender{reply: "r"}
	c := NewClient(sender)

	_, err := c.Submit(context.Background(), "first")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), "second")
	require.NoError(t, err)

	require.Len(t, sender.calls, 2)
	history := sender.calls[1].history
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "r", history[1].Content)
}

func TestSubmit_HistoryBoundedOnLongConversation(t *testing.T) {
	sender := &fakeSender{reply: "r"}
	c := NewClient(sender)

	for i := 0; i < model.MaxHistoryTurns; i++ {
		_, err := c.Submit(context.Background(), fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	for _, call := range sender.calls {
		assert.LessOrEqual(t, len(call.history), model.MaxHistoryTurns)
	}
	last := sender.calls[len(sender.calls)-1]
	require.NotEmpty(t, last.history)
	assert.Equal(t, "r", last.history[len(last.history)-1].Content)
	assert.Len(t, c.Turns(), model.MaxTurns)
}

func TestSubmit_EmptyInputRejected(t *testing.T) {
	sender := &fakeSender{reply: "r"}
	c := NewClient(sender)

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := c.Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrEmptyInput)
	}
	assert.Empty(t, c.Turns())
	assert.Empty(t, sender.calls)
}

func TestBegin_WhileBusyIsNoOp(t *testing.T) {
	sender := &fakeSender{reply: "r"}
	c := NewClient(sender)

	sub, err := c.Begin("one")
	require.NoError(t, err)
	assert.True(t, c.Busy())

	_, err = c.Begin("two")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Submit(context.Background(), "three")
	assert.ErrorIs(t, err, ErrBusy)

	turns := c.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "one", turns[0].Content)
	assert.Empty(t, sender.calls)

	c.Complete(sub, "done")
	assert.False(t, c.Busy())
	assert.Len(t, c.Turns(), 2)
}

func TestSubmit_FailureRollsBack(t *testing.T) {
	sender := &fakeSender{reply: "ok"}
	c := NewClient(sender)
	_, err := c.Submit(context.Background(), "first")
	require.NoError(t, err)

	sender.err = errors.New("Failed to generate response: quota")
	_, err = c.Submit(context.Background(), "second")
	require.Error(t, err)

	turns := c.Turns()
	require.Len(t, turns, 2, "optimistic turn removed")
	assert.Equal(t, "ok", turns[1].Content)
	require.Error(t, c.Err())
	assert.Equal(t, "Failed to generate response: quota", c.Err().Error())
	assert.False(t, c.Busy())

	sender.err = nil
	_, err = c.Submit(context.Background(), "third")
	require.NoError(t, err)
	assert.NoError(t, c.Err(), "new submit clears error")
}

func TestClear(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	c := NewClient(sender)
	_, _ = c.Submit(context.Background(), "x")
	require.Error(t, c.Err())

	sender.err = nil
	sender.reply = "y"
	_, err := c.Submit(context.Background(), "x")
	require.NoError(t, err)

	c.Clear()
	assert.Empty(t, c.Turns())
	assert.NoError(t, c.Err())
}

func TestClear_DuringFlightDropsReply(t *testing.T) {
	c := NewClient(&fakeSender{})
	sub, err := c.Begin("question")
	require.NoError(t, err)

	c.Clear()
	c.Complete(sub, "late answer")

	assert.Empty(t, c.Turns())
	assert.False(t, c.Busy())

	sub, err = c.Begin("again")
	require.NoError(t, err)
	c.Clear()
	c.Fail(sub, errors.New("late failure"))
	assert.NoError(t, c.Err())
}

func TestBegin_LibraryWrapsMessage(t *testing.T) {
	lines := make([]string, 12)
	for i := range lines {
		lines[i] = fmt.Sprintf("Book %d by Some Author", i)
	}
	paste := strings.Join(lines, "\n")

	c := NewClient(&fakeSender{})
	sub, err := c.Begin(paste)
	require.NoError(t, err)

	assert.True(t, sub.Library)
	assert.Equal(t, prompt.Recommendation(paste), sub.Message)
	assert.Equal(t, paste, c.Turns()[0].Content, "visible turn keeps raw text")
}

func TestDismissError(t *testing.T) {
	c := NewClient(&fakeSender{err: errors.New("x")})
	_, _ = c.Submit(context.Background(), "a")
	require.Error(t, c.Err())
	c.DismissError()
	assert.NoError(t, c.Err())
}
