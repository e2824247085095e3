// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-based chat for bookbot.
//
// Command: chat
//
// Slash commands:
//
//	/paste   Start multi-line input; finish with /end on its own line
//	/clear   Start a new conversation
//	/help    Show these commands
//	/exit    Leave (also: /quit, exit, quit, Ctrl+D)
//
// Ctrl+C at the prompt leaves; Ctrl+C during a request cancels it. SIGTERM
// always leaves.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/prompt"
	"github.com/jeranaias/bookbot/internal/session"
	"github.com/jeranaias/bookbot/internal/ui/render"
)

const (
	chatPrompt  = "you> "
	pastePrompt = "...> "
	pasteEnd    = "/end"
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads one line of input after showing prompt.
type LineReader interface {
	ReadInput(prompt string) (string, error)
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
	closeOnce   sync.Once
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal. Safe to call more than once.
func (c *ChatCLI) Close() {
	c.closeOnce.Do(func() {
		c.SaveHistory()
		c.line.Close()
	})
}

// =============================================================================
// SESSION
// =============================================================================

// ChatSession is the state of one REPL run.
type ChatSession struct {
	Client *session.Client
	Input  LineReader
	Out    io.Writer
	Err    io.Writer
	MD     *render.Markdown
	Quiet  bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// HandleChat runs the REPL until the user leaves.
func HandleChat(ctx context.Context, env *Env) error {
	input := NewChatCLI()
	defer input.Close()

	s := &ChatSession{
		Client: session.NewClient(env.ProxyClient()),
		Input:  input,
		Out:    env.Stdout,
		Err:    env.Stderr,
		MD:     env.Markdown(),
		Quiet:  env.Args.Quiet,
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigChan:
				if !s.HandleSignal(sig) {
					continue
				}
				// The prompt blocks in a raw-mode read that nothing else
				// interrupts, so leave from here.
				stop()
				input.Close()
				os.Exit(ExitSuccess)
			}
		}
	}()

	return s.Run(ctx)
}

// HandleSignal reacts to sig and reports whether the REPL should end.
// SIGINT during a request cancels only that request; SIGINT at the prompt
// and SIGTERM end the session.
func (s *ChatSession) HandleSignal(sig os.Signal) bool {
	cancelled := s.CancelRequest()
	if sig == os.Interrupt && cancelled {
		fmt.Fprintln(s.Err, "\n"+WarningStyle.Render("[Cancelled]"))
		return false
	}
	return true
}

// Run reads and sends messages until EOF, an abort or an exit command.
func (s *ChatSession) Run(ctx context.Context) error {
	if !s.Quiet {
		fmt.Fprintln(s.Out, s.MD.Render(prompt.Welcome))
		fmt.Fprintln(s.Out, DimStyle.Render("Type /help for commands. /paste for multi-line input."))
		fmt.Fprintln(s.Out)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := s.Input.ReadInput(PromptStyle.Render(chatPrompt))
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted), Ctrl+D (io.EOF) or a dead
			// terminal all end the session quietly.
			fmt.Fprintln(s.Out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") || strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			keepGoing, err := s.handleSlashCommand(ctx, input)
			if err != nil {
				s.printError(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		s.send(ctx, input)
	}
}

// send submits one message and prints the reply or the error.
func (s *ChatSession) send(ctx context.Context, input string) {
	if prompt.DetectLibrary(input) && !s.Quiet {
		fmt.Fprintln(s.Err, WarningStyle.Render(prompt.LibraryHint))
	}

	reqCtx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer func() {
		s.setCancel(nil)
		cancel()
	}()

	reply, err := s.Client.Submit(reqCtx, input)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.printError(err)
		return
	}

	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, AssistantStyle.Render("BookBot"))
	fmt.Fprintln(s.Out, s.MD.Render(reply))
	fmt.Fprintln(s.Out)
}

func (s *ChatSession) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// CancelRequest cancels the in-flight request, reporting whether there was one.
func (s *ChatSession) CancelRequest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

func (s *ChatSession) printError(err error) {
	fmt.Fprintln(s.Err, ErrorStyle.Render("Error: "+err.Error()))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs a command and reports whether the REPL continues.
func (s *ChatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	switch strings.ToLower(strings.TrimPrefix(fields[0], "/")) {
	case "exit", "quit", "q":
		return false, nil

	case "clear", "new":
		s.Client.Clear()
		fmt.Fprintln(s.Out, DimStyle.Render("Conversation cleared."))
		return true, nil

	case "paste":
		text, err := s.readPaste()
		if err != nil {
			return false, nil
		}
		if strings.TrimSpace(text) == "" {
			return true, nil
		}
		s.send(ctx, text)
		return true, nil

	case "help", "?":
		printChatHelp(s.Out)
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
}

// readPaste collects lines until /end. EOF or an abort ends the session.
func (s *ChatSession) readPaste() (string, error) {
	if !s.Quiet {
		fmt.Fprintln(s.Out, DimStyle.Render("Paste your text, then type "+pasteEnd+" on its own line."))
	}
	var lines []string
	for {
		line, err := s.Input.ReadInput(pastePrompt)
		if err != nil {
			return strings.Join(lines, "\n"), err
		}
		if strings.TrimSpace(line) == pasteEnd {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
}

func printChatHelp(w io.Writer) {
	fmt.Fprintln(w, TitleStyle.Render("Commands"))
	fmt.Fprintln(w, RenderField("/paste", "multi-line input, finish with "+pasteEnd))
	fmt.Fprintln(w, RenderField("/clear", "start a new conversation"))
	fmt.Fprintln(w, RenderField("/help", "show this help"))
	fmt.Fprintln(w, RenderField("/exit", "leave (also Ctrl+D)"))
}
