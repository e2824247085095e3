// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/bookbot/internal/audit"
	"github.com/jeranaias/bookbot/internal/config"
	"github.com/jeranaias/bookbot/internal/proxyclient"
	"github.com/jeranaias/bookbot/internal/resolver"
	"github.com/jeranaias/bookbot/internal/session"
	"github.com/jeranaias/bookbot/internal/ui/render"
)

// =============================================================================
// PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		cmd   Command
		check func(t *testing.T, a Args)
	}{
		{"no args is tui", nil, CmdTUI, nil},
		{"tui", []string{"tui"}, CmdTUI, nil},
		{"chat with proxy", []string{"--proxy", "http://h:1", "chat"}, CmdChat, func(t *testing.T, a Args) {
			assert.Equal(t, "http://h:1", a.ProxyURL)
		}},
		{"ask joins words", []string{"ask", "any", "good", "books?"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "any good books?", a.Query)
		}},
		{"ask stdin", []string{"ask", "-"}, CmdAsk, func(t *testing.T, a Args) {
			assert.Equal(t, "-", a.Query)
		}},
		{"serve addr", []string{"serve", "--addr", ":8080"}, CmdServe, func(t *testing.T, a Args) {
			assert.Equal(t, ":8080", a.Addr)
		}},
		{"serve addr equals", []string{"serve", "--addr=:9090", "-v"}, CmdServe, func(t *testing.T, a Args) {
			assert.Equal(t, ":9090", a.Addr)
			assert.True(t, a.Verbose)
		}},
		{"audit default limit", []string{"audit"}, CmdAudit, func(t *testing.T, a Args) {
			assert.Equal(t, DefaultAuditLimit, a.Limit)
		}},
		{"audit limit", []string{"audit", "--limit", "5"}, CmdAudit, func(t *testing.T, a Args) {
			assert.Equal(t, 5, a.Limit)
		}},
		{"audit bad limit keeps default", []string{"audit", "--limit=zero"}, CmdAudit, func(t *testing.T, a Args) {
			assert.Equal(t, DefaultAuditLimit, a.Limit)
		}},
		{"config default show", []string{"config"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "show", a.Subcommand)
		}},
		{"config path", []string{"--config=/tmp/x.toml", "config", "path"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "path", a.Subcommand)
			assert.Equal(t, "/tmp/x.toml", a.ConfigPath)
		}},
		{"config init force", []string{"config", "init", "--force"}, CmdConfig, func(t *testing.T, a Args) {
			assert.Equal(t, "init", a.Subcommand)
			assert.True(t, a.Force)
		}},
		{"models json", []string{"models", "--json"}, CmdModels, func(t *testing.T, a Args) {
			assert.True(t, a.JSON)
		}},
		{"status alias", []string{"s"}, CmdStatus, nil},
		{"version", []string{"version"}, CmdVersion, nil},
		{"quiet anywhere", []string{"chat", "-q"}, CmdChat, func(t *testing.T, a Args) {
			assert.True(t, a.Quiet)
		}},
		{"help", []string{"--help"}, CmdHelp, nil},
		{"unknown is help", []string{"frobnicate"}, CmdHelp, func(t *testing.T, a Args) {
			assert.Equal(t, []string{"frobnicate"}, a.Raw)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.args)
			assert.Equal(t, tt.cmd, cmd, "got %s", cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestUsageMentionsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	for _, c := range []Command{CmdTUI, CmdChat, CmdAsk, CmdServe, CmdStatus, CmdModels, CmdAudit, CmdConfig, CmdVersion, CmdHelp} {
		assert.Contains(t, buf.String(), "  "+c.String(), "usage should list %s", c)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", ErrMissingArgument("text", "bookbot ask"), ExitUsageError},
		{"missing key", fmt.Errorf("serve: %w", config.ErrMissingAPIKey), ExitConfigError},
		{"invalid config", config.ValidateErrors{{Field: "server.addr", Message: "empty"}}, ExitConfigError},
		{"deadline", NewCommandError("ask", "send", context.DeadlineExceeded), ExitTimeoutError},
		{"net timeout", timeoutErr{}, ExitTimeoutError},
		{"proxy error", &proxyclient.ProxyError{Status: 500, Message: "boom"}, ExitNetworkError},
		{"other", errors.New("whatever"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayErrorJSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "ask", errors.New("HTTP 502: Failed to get response"), true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "HTTP 502: Failed to get response", *resp.Error)
	assert.Equal(t, "ask", resp.Command)
}

func TestDecideColors(t *testing.T) {
	assert.False(t, decideColors("1", "1", true), "NO_COLOR wins")
	assert.True(t, decideColors("", "1", false), "FORCE_COLOR overrides non-tty")
	assert.True(t, decideColors("", "", true))
	assert.False(t, decideColors("", "", false))
}

// =============================================================================
// FAKE PROXY
// =============================================================================

type fakeProxy struct {
	mu       sync.Mutex
	messages []string
	history  []int
	fail     bool
}

func (p *fakeProxy) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string            `json:"message"`
			History []json.RawMessage `json:"history"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		p.mu.Lock()
		p.messages = append(p.messages, req.Message)
		p.history = append(p.history, len(req.History))
		fail := p.fail
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":"Failed to generate response: quota exceeded"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "echo: " + firstLine(req.Message)})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok","version":"test","configured":false}`)
	})
	mux.HandleFunc("/api/models", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"discovered":"gemini-2.0-flash","candidates":["gemini-2.0-flash","gemini-pro"]}`)
	})
	return mux
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func newTestEnv(t *testing.T, proxyURL string) (*Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Client.ProxyURL = proxyURL
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.db")
	var out, errOut bytes.Buffer
	return &Env{
		Config:   cfg,
		Stdin:    strings.NewReader(""),
		Stdout:   &out,
		Stderr:   &errOut,
		StdinTTY: true,
	}, &out, &errOut
}

func startProxy(t *testing.T) (*fakeProxy, string) {
	t.Helper()
	p := &fakeProxy{}
	ts := httptest.NewServer(p.handler())
	t.Cleanup(ts.Close)
	return p, ts.URL
}

// =============================================================================
// ASK
// =============================================================================

func TestAskPrintsReply(t *testing.T) {
	p, url := startProxy(t)
	env, out, _ := newTestEnv(t, url)
	env.Args.Query = "something cozy"

	require.NoError(t, HandleAsk(context.Background(), env))
	assert.Equal(t, "echo: something cozy\n", out.String())
	assert.Equal(t, []int{0}, p.history, "ask sends no history")
}

func TestAskJSON(t *testing.T) {
	_, url := startProxy(t)
	env, out, _ := newTestEnv(t, url)
	env.Args.Query = "hi"
	env.Args.JSON = true

	require.NoError(t, HandleAsk(context.Background(), env))

	var resp struct {
		Success bool    `json:"success"`
		Data    AskData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "echo: hi", resp.Data.Response)
	assert.False(t, resp.Data.Library)
}

func TestAskReadsStdinForDash(t *testing.T) {
	p, url := startProxy(t)
	env, _, errOut := newTestEnv(t, url)

	var lib strings.Builder
	for i := 0; i < 12; i++ {
		lib.WriteString("A Book Title\nby Some Author\n")
	}
	env.Args.Query = "-"
	env.Stdin = strings.NewReader(lib.String())

	require.NoError(t, HandleAsk(context.Background(), env))
	require.Len(t, p.messages, 1)
	assert.True(t, strings.HasPrefix(p.messages[0], "Analyze my Kindle library"))
	assert.Contains(t, errOut.String(), "Kindle library detected")
}

func TestAskMissingText(t *testing.T) {
	env, _, _ := newTestEnv(t, "http://127.0.0.1:1")
	err := HandleAsk(context.Background(), env)

	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestAskProxyError(t *testing.T) {
	p, url := startProxy(t)
	p.fail = true
	env, _, _ := newTestEnv(t, url)
	env.Args.Query = "hi"

	err := HandleAsk(context.Background(), env)
	require.Error(t, err)
	assert.Equal(t, "Failed to generate response: quota exceeded", err.Error())
	assert.Equal(t, ExitNetworkError, GetExitCode(err))
}

// =============================================================================
// CHAT REPL
// =============================================================================

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) ReadInput(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newChatSession(url string, lines ...string) (*ChatSession, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &ChatSession{
		Client: session.NewClient(proxyclient.New(url)),
		Input:  &scriptedInput{lines: lines},
		Out:    &out,
		Err:    &errOut,
		MD:     render.Passthrough(),
	}, &out, &errOut
}

func TestChatSessionCarriesHistory(t *testing.T) {
	p, url := startProxy(t)
	s, out, _ := newChatSession(url, "first", "", "second", "/clear", "third", "exit")

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{"first", "second", "third"}, p.messages)
	assert.Equal(t, []int{0, 2, 0}, p.history, "history grows and resets on /clear")
	assert.Contains(t, out.String(), "echo: second")
	assert.Contains(t, out.String(), "Conversation cleared.")
	assert.Contains(t, out.String(), "Welcome to BookBot")
}

func TestChatSessionPaste(t *testing.T) {
	p, url := startProxy(t)
	s, _, _ := newChatSession(url, "/paste", "line one", "line two", "/end", "/quit")

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"line one\nline two"}, p.messages)
}

func TestChatSessionErrors(t *testing.T) {
	p, url := startProxy(t)
	p.fail = true
	s, _, errOut := newChatSession(url, "hello", "/bogus")

	require.NoError(t, s.Run(context.Background()), "EOF ends the session cleanly")
	assert.Contains(t, errOut.String(), "Error: Failed to generate response: quota exceeded")
	assert.Contains(t, errOut.String(), "unknown command /bogus")
	assert.Empty(t, s.Client.Turns(), "failed turn is removed")
}

func TestChatSessionStopsWhenContextDone(t *testing.T) {
	p, url := startProxy(t)
	s, _, _ := newChatSession(url, "hello", "again")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
	assert.Empty(t, p.messages)
}

func TestHandleSignal(t *testing.T) {
	t.Run("interrupt at prompt ends session", func(t *testing.T) {
		s, _, _ := newChatSession("http://127.0.0.1:1")
		assert.True(t, s.HandleSignal(os.Interrupt))
	})

	t.Run("interrupt during request cancels only it", func(t *testing.T) {
		s, _, errOut := newChatSession("http://127.0.0.1:1")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.setCancel(cancel)

		assert.False(t, s.HandleSignal(os.Interrupt))
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
		assert.Contains(t, errOut.String(), "[Cancelled]")
	})

	t.Run("terminate ends session and cancels request", func(t *testing.T) {
		s, _, _ := newChatSession("http://127.0.0.1:1")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.setCancel(cancel)

		assert.True(t, s.HandleSignal(syscall.SIGTERM))
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("terminate at prompt ends session", func(t *testing.T) {
		s, _, _ := newChatSession("http://127.0.0.1:1")
		assert.True(t, s.HandleSignal(syscall.SIGTERM))
	})
}

func TestCancelRequestWithoutRequest(t *testing.T) {
	s, _, _ := newChatSession("http://127.0.0.1:1")
	assert.False(t, s.CancelRequest())
}

// =============================================================================
// STATUS, MODELS, AUDIT, CONFIG, VERSION
// =============================================================================

func TestStatus(t *testing.T) {
	_, url := startProxy(t)
	env, out, _ := newTestEnv(t, url)

	require.NoError(t, HandleStatus(context.Background(), env))
	assert.Contains(t, out.String(), "ok")
	assert.Contains(t, out.String(), "missing (set GEMINI_API_KEY)")
}

func TestModels(t *testing.T) {
	_, url := startProxy(t)
	env, out, _ := newTestEnv(t, url)

	require.NoError(t, HandleModels(context.Background(), env))
	assert.Contains(t, out.String(), "gemini-2.0-flash")
	assert.Contains(t, out.String(), "2. gemini-pro")
}

func TestStatusUnreachable(t *testing.T) {
	env, _, _ := newTestEnv(t, "http://127.0.0.1:1")
	err := HandleStatus(context.Background(), env)

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "status", cmdErr.Command)
}

func TestAuditMissingLog(t *testing.T) {
	env, _, _ := newTestEnv(t, "")
	err := HandleAudit(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audit log")
}

func TestAuditListsRecent(t *testing.T) {
	env, out, _ := newTestEnv(t, "")
	env.Args.Limit = 2

	path, err := env.Config.AuditPath()
	require.NoError(t, err)
	l, err := audit.Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	for i, m := range []string{"gemini-a", "gemini-b", "gemini-c"} {
		require.NoError(t, l.Record(ctx, resolver.Attempt{
			RequestID: fmt.Sprintf("req-%d", i),
			Model:     m,
			Version:   "v1beta",
			Status:    404,
			Outcome:   resolver.OutcomeNotFound,
			Latency:   15 * time.Millisecond,
		}))
	}
	require.NoError(t, l.Close())

	require.NoError(t, HandleAudit(ctx, env))
	text := out.String()
	assert.Contains(t, text, "gemini-c")
	assert.Contains(t, text, "gemini-b")
	assert.NotContains(t, text, "gemini-a", "limit applies")
	assert.Less(t, strings.Index(text, "gemini-c"), strings.Index(text, "gemini-b"), "newest first")
}

func TestConfigCommands(t *testing.T) {
	env, out, _ := newTestEnv(t, "http://127.0.0.1:3000")
	env.Config.Gemini.APIKey = "secret-key-value"

	env.Args.Subcommand = "show"
	require.NoError(t, HandleConfig(env))
	assert.NotContains(t, out.String(), "secret-key-value")

	out.Reset()
	env.Args.Subcommand = "path"
	env.Args.ConfigPath = "/etc/bookbot.toml"
	require.NoError(t, HandleConfig(env))
	assert.Equal(t, "/etc/bookbot.toml\n", out.String())

	env.Args.Subcommand = "edit"
	err := HandleConfig(env)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestConfigInit(t *testing.T) {
	env, out, _ := newTestEnv(t, "http://127.0.0.1:3000")
	path := filepath.Join(t.TempDir(), "bookbot", "config.toml")
	env.Args.ConfigPath = path
	env.Args.Subcommand = "init"

	require.NoError(t, HandleConfig(env))
	assert.Contains(t, out.String(), path)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Gemini.FallbackModels, loaded.Gemini.FallbackModels)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	// A second init refuses to clobber the file unless forced.
	err = HandleConfig(env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	env.Args.Force = true
	require.NoError(t, HandleConfig(env))
}

func TestConfigShowJSONHidesKey(t *testing.T) {
	env, out, _ := newTestEnv(t, "http://127.0.0.1:3000")
	env.Config.Gemini.APIKey = "secret-key-value"
	env.Args.JSON = true

	require.NoError(t, HandleConfig(env))
	assert.NotContains(t, out.String(), "secret-key-value")
	assert.Contains(t, out.String(), `"api_key_set": true`)
}

func TestVersionJSON(t *testing.T) {
	env, out, _ := newTestEnv(t, "")
	env.Args.JSON = true

	require.NoError(t, HandleVersion(env))

	var resp struct {
		Data VersionData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, Version, resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
}

func TestPrintTOMLHighlights(t *testing.T) {
	var plain, colored bytes.Buffer
	printTOML(&plain, "[server]\naddr = \"127.0.0.1:3000\"\n", false)
	printTOML(&colored, "[server]\naddr = \"127.0.0.1:3000\"\n", true)

	assert.Equal(t, "[server]\naddr = \"127.0.0.1:3000\"\n", plain.String())
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "addr")
}
