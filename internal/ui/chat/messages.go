// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/bookbot/internal/session"
)

// ReplyMsg carries the outcome of a sent submission back into the model.
type ReplyMsg struct {
	Submission session.Submission
	Reply      string
	Err        error
}
