// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

import (
	"strings"

	"github.com/jeranaias/bookbot/internal/model"
)

// DefaultBrevityInstruction is appended to every flattened prompt.
const DefaultBrevityInstruction = "IMPORTANT: Keep your response concise and brief. Be direct and to the point."

// Flatten renders history and message as one prompt string.
//
// Each history turn becomes "<Label>: <content>" (see model.Role.Label), lines
// are joined with "\n", and the new message follows as
// "\nUser: <message>\nAssistant:". With no history the message stands alone.
// The brevity instruction is appended after a blank line; an empty
// instruction falls back to DefaultBrevityInstruction.
func Flatten(history []model.Turn, message, brevity string) string {
	if brevity == "" {
		brevity = DefaultBrevityInstruction
	}

	var b strings.Builder
	if len(history) == 0 {
		b.WriteString(message)
	} else {
		for i, turn := range history {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(turn.Role.Label())
			b.WriteString(": ")
			b.WriteString(turn.Content)
		}
		b.WriteString("\nUser: ")
		b.WriteString(message)
		b.WriteString("\nAssistant:")
	}
	b.WriteString("\n\n")
	b.WriteString(brevity)
	return b.String()
}
