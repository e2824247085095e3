// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/bookbot/internal/session"
	"github.com/jeranaias/bookbot/internal/ui/render"
	"github.com/jeranaias/bookbot/internal/ui/styles"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
)

// Model is the Bubble Tea model for the chat screen. Conversation state lives
// in the session client; Model only holds view state.
type Model struct {
	ctx     context.Context
	session *session.Client
	theme   *styles.Theme
	md      *render.Markdown

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap

	status string
	width  int
	height int
}

// New creates the chat model. ctx bounds every request sent from the view;
// theme and md may be nil.
func New(ctx context.Context, client *session.Client, theme *styles.Theme, md *render.Markdown) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if theme == nil {
		theme = styles.NewTheme()
	}
	if md == nil {
		md = render.NewMarkdown()
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Type your message or paste your Kindle library here..."
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.KeyMap.InsertNewline = keys.Newline
	ta.SetHeight(inputHeight)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Spinner

	h := help.New()
	h.Styles.ShortKey = theme.Help
	h.Styles.ShortDesc = theme.Help
	h.Styles.ShortSeparator = theme.Help

	m := Model{
		ctx:      ctx,
		session:  client,
		theme:    theme,
		md:       md,
		viewport: viewport.New(defaultWidth, defaultHeight),
		input:    ta,
		spinner:  sp,
		help:     h,
		keys:     keys,
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// WithStatus sets the text shown in the status bar, typically the proxy URL.
func (m Model) WithStatus(status string) Model {
	m.status = status
	return m
}

// Session returns the conversation the view drives.
func (m Model) Session() *session.Client {
	return m.session
}

// Input returns the current contents of the input box.
func (m Model) Input() string {
	return m.input.Value()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send):
			return m.submit()
		case key.Matches(msg, m.keys.Clear):
			m.session.Clear()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.DismissError):
			m.session.DismissError()
			m.layout()
			return m, nil
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case ReplyMsg:
		if msg.Err != nil {
			m.session.Fail(msg.Submission, msg.Err)
		} else {
			m.session.Complete(msg.Submission, msg.Reply)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.session.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.layout()

	return m, tea.Batch(cmds...)
}

// submit hands the input to the session and starts the request. Empty input
// and input while a request is in flight leave everything as it was.
func (m Model) submit() (tea.Model, tea.Cmd) {
	sub, err := m.session.Begin(m.input.Value())
	if err != nil {
		if !errors.Is(err, session.ErrEmptyInput) && !errors.Is(err, session.ErrBusy) {
			log.Printf("CHAT_SUBMIT_REJECTED | err=%v", err)
		}
		return m, nil
	}

	m.input.Reset()
	m.refresh()

	return m, tea.Batch(m.spinner.Tick, m.send(sub))
}

// send runs the request off the update loop.
func (m Model) send(sub session.Submission) tea.Cmd {
	ctx := m.ctx
	client := m.session
	return func() tea.Msg {
		reply, err := client.Send(ctx, sub)
		return ReplyMsg{Submission: sub, Reply: reply, Err: err}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.md.SetWidth(m.theme.ContentWidth())
	m.input.SetWidth(width - 2)
	m.help.Width = width
	m.viewport.Width = width
	m.layout()
}

// layout sizes the viewport to whatever the surrounding chrome leaves over.
func (m *Model) layout() {
	h := m.height - chromeHeight(m.renderHeader(), m.renderBanners(), m.renderInput(), m.renderFooter())
	if h < 1 {
		h = 1
	}
	m.viewport.Height = h
}

// refresh re-renders the transcript and scrolls to the newest turn.
func (m *Model) refresh() {
	m.layout()
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
