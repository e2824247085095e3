// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeranaias/bookbot/internal/util"
)

// Configuration constants for the generative-language API.
const (
	// DefaultBaseURL is the API root without a version segment.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// MethodGenerateContent is the generation method a usable model must list.
	MethodGenerateContent = "generateContent"
)

// sharedHTTPClient pools connections across requests. No client-level timeout:
// requests are bounded by their context.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Error variables for common upstream errors.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("Gemini API key not configured")

	// ErrEmptyResponse indicates a 2xx reply with no extractable text.
	ErrEmptyResponse = errors.New("response contained no text")
)

// APIError represents a non-2xx reply from the API.
type APIError struct {
	Status  int
	Message string
}

// Error returns the upstream message, or "HTTP <status>" when it had none.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// NotFound reports whether the model/endpoint combination is not served.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Part is one piece of content. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// Content is an ordered list of parts.
type Content struct {
	Parts []Part `json:"parts"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// NewGenerateRequest wraps a single prompt string.
func NewGenerateRequest(prompt string) GenerateRequest {
	return GenerateRequest{Contents: []Content{{Parts: []Part{{Text: prompt}}}}}
}

// GenerateResponse is the subset of the generateContent reply bookbot reads.
type GenerateResponse struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}

// Text returns candidates[0].content.parts[0].text, or "" if absent.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// ModelDescriptor is one entry of the model listing.
type ModelDescriptor struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName,omitempty"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// Supports reports whether the model lists the given generation method.
func (m ModelDescriptor) Supports(method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

// ID returns the model name with the "models/" prefix stripped.
func (m ModelDescriptor) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

type listResponse struct {
	Models []ModelDescriptor `json:"models"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the generative-language API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	verbose    bool
}

// NewClient creates a client for the given API key. An empty key yields a
// client whose calls fail with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: sharedHTTPClient,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithVerbose enables per-request log lines.
func (c *Client) WithVerbose(v bool) *Client {
	c.verbose = v
	return c
}

// IsConfigured returns true if the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// KeyFingerprint returns a loggable identifier for the API key.
func (c *Client) KeyFingerprint() string {
	return util.Fingerprint(c.apiKey)
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// endpoint builds {base}/{version}/{path}?key=K.
func (c *Client) endpoint(version, path string) string {
	q := url.Values{}
	q.Set("key", c.apiKey)
	return fmt.Sprintf("%s/%s/%s?%s", c.baseURL, version, path, q.Encode())
}

// ListModels fetches the model listing for the given API version.
func (c *Client) ListModels(ctx context.Context, version string) ([]ModelDescriptor, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(version, "models"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, parseAPIError(status, body)
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}
	return list.Models, nil
}

// GenerateContent sends prompt to {version}/models/{model}:generateContent and
// returns the first candidate's text. A 2xx reply without text yields
// ErrEmptyResponse; a non-2xx reply yields *APIError.
func (c *Client) GenerateContent(ctx context.Context, version, model, prompt string) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(NewGenerateRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	path := "models/" + url.PathEscape(model) + ":" + MethodGenerateContent
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(version, path), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", parseAPIError(status, body)
	}

	var gen GenerateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEmptyResponse, err)
	}
	text := gen.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// do executes req and returns the size-limited body and status code.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, including the key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if c.verbose {
		log.Printf("UPSTREAM | %s %s | %d | %.3fs | key=%s",
			req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Seconds(), c.KeyFingerprint())
	}

	body, err := readResponse(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// parseAPIError converts a non-2xx reply into *APIError, taking the message
// from error.message when the body carries one.
func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status}
	var payload apiErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
