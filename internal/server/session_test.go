// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/model"
	"github.com/jeranaias/bookbot/internal/proxyclient"
	"github.com/jeranaias/bookbot/internal/session"
)

// A conversation kept by the session client must stay acceptable to the
// proxy no matter how long it runs.
func TestSessionLongConversationStaysWithinHistoryLimit(t *testing.T) {
	exchanges := MaxHistoryTurns/2 + 20

	script := make([]upstreamReply, exchanges)
	for i := range script {
		script[i] = textReply(fmt.Sprintf("reply %d", i))
	}
	up := &scriptedUpstream{script: script}
	proxy := newTestProxyWith(t, up, "test-key", func(cfg *config.Config) {
		cfg.Server.RateLimitPerMinute = 0
	})

	client := session.NewClient(proxyclient.New(proxy.URL))
	ctx := context.Background()

	for i := 0; i < exchanges; i++ {
		reply, err := client.Submit(ctx, fmt.Sprintf("message %d", i))
		require.NoError(t, err, "submit #%d", i+1)
		assert.Equal(t, fmt.Sprintf("reply %d", i), reply)
	}

	turns := client.Turns()
	assert.Len(t, turns, model.MaxTurns)
	assert.Equal(t, fmt.Sprintf("reply %d", exchanges-1), turns[len(turns)-1].Content)
	assert.NoError(t, client.Err())
}

func TestHistoryLimitMatchesConversationCap(t *testing.T) {
	// The turn being sent is part of the conversation but not of its history.
	assert.LessOrEqual(t, model.MaxTurns-1, MaxHistoryTurns)
}
