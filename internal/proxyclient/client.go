// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package proxyclient talks to a running bookbot proxy over HTTP.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/bookbot/internal/model"
)

const (
	// DefaultTimeout bounds a whole chat round trip, including every
	// upstream fallback attempt the proxy makes.
	DefaultTimeout = 120 * time.Second

	// MaxResponseSize is the maximum accepted proxy response body.
	MaxResponseSize = 10 * 1024 * 1024
)

// ErrEmptyReply is returned when the proxy answers 200 without a response.
var ErrEmptyReply = errors.New("proxy returned an empty response")

// ProxyError is a non-2xx reply from the proxy.
type ProxyError struct {
	Status  int
	Message string
}

// Error returns the proxy's error text, or the generic HTTP text when the
// body carried none.
func (e *ProxyError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d: Failed to get response", e.Status)
}

// Client is a bookbot proxy client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the proxy at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithTimeout sets the round-trip timeout (0 = none).
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.httpClient.Timeout = d
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the proxy address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type chatRequest struct {
	Message string       `json:"message"`
	History []model.Turn `json:"history"`
}

type chatReply struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Chat sends message with the given prior turns and returns the reply text.
func (c *Client) Chat(ctx context.Context, message string, history []model.Turn) (string, error) {
	if history == nil {
		history = []model.Turn{}
	}
	payload, err := json.Marshal(chatRequest{Message: message, History: history})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var reply chatReply
	if err := c.do(ctx, http.MethodPost, "/api/chat", payload, &reply); err != nil {
		return "", err
	}
	if reply.Response == "" {
		return "", ErrEmptyReply
	}
	return reply.Response, nil
}

// Health is the proxy's /health reply.
type Health struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Configured bool   `json:"configured"`
}

// Health queries /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// Models is the proxy's /api/models reply.
type Models struct {
	Discovered *string  `json:"discovered"`
	Candidates []string `json:"candidates"`
}

// Models queries /api/models.
func (c *Client) Models(ctx context.Context) (Models, error) {
	var m Models
	err := c.do(ctx, http.MethodGet, "/api/models", nil, &m)
	return m, err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to reach proxy at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &e)
		return &ProxyError{Status: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
