// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/bookbot/internal/model"
	"github.com/jeranaias/bookbot/internal/prompt"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders header, transcript, banners, input and footer top to bottom.
func (m Model) View() string {
	parts := []string{m.renderHeader(), m.viewport.View()}
	if banners := m.renderBanners(); banners != "" {
		parts = append(parts, banners)
	}
	parts = append(parts, m.renderInput(), m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func chromeHeight(parts ...string) int {
	total := 0
	for _, p := range parts {
		if p != "" {
			total += lipgloss.Height(p)
		}
	}
	return total
}

// =============================================================================
// CHROME
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("📚 BookBot")
	hint := m.theme.HeaderHint.Render("book recommendations from your Kindle library")
	return m.theme.Header.Width(m.width).Render(title + "  " + hint)
}

// renderBanners renders the thinking line, the library hint and the error
// banner, in that order. Empty when none apply.
func (m Model) renderBanners() string {
	var lines []string

	if m.session.Busy() {
		lines = append(lines, m.spinner.View()+" "+m.theme.Thinking.Render("BookBot is thinking..."))
	}
	if prompt.ShouldShowHint(m.input.Value()) {
		lines = append(lines, m.theme.Hint.Render(prompt.LibraryHint))
	}
	if err := m.session.Err(); err != nil {
		banner := m.theme.ErrorBanner.Width(m.width).Render("Error: " + err.Error())
		lines = append(lines, banner)
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderFooter() string {
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	if m.status == "" {
		return helpView
	}
	return m.theme.StatusBar.Render(m.status) + " " + helpView
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders the welcome banner followed by every turn. The
// banner is never part of the conversation, so it survives a clear.
func (m Model) renderTranscript() string {
	blocks := []string{m.theme.Welcome.Render(m.md.Render(prompt.Welcome))}
	for _, t := range m.session.Turns() {
		blocks = append(blocks, m.renderTurn(t))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderTurn(t model.Turn) string {
	if t.IsUser() {
		return m.renderUserTurn(t)
	}
	return m.renderAssistantTurn(t)
}

// renderUserTurn right-aligns the raw text in a cyan bubble.
func (m Model) renderUserTurn(t model.Turn) string {
	label := m.theme.UserLabel.Render(t.Role.DisplayName())

	width := lipgloss.Width(t.Content) + 2
	if limit := m.theme.BubbleWidth(); width > limit {
		width = limit
	}
	bubble := m.theme.UserTurn.Width(width).Render(t.Content)

	block := lipgloss.JoinVertical(lipgloss.Right, label, bubble)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
}

// renderAssistantTurn renders the reply as markdown on the left.
func (m Model) renderAssistantTurn(t model.Turn) string {
	label := m.theme.AssistantLabel.Render(t.Role.DisplayName())
	body := m.theme.AssistantTurn.Render(m.md.Render(t.Content))
	return lipgloss.JoinVertical(lipgloss.Left, label, body)
}
