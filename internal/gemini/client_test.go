// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateContent_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody GenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`))
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL + "/")
	text, err := client.GenerateContent(context.Background(), "v1beta", "gemini-pro", "hi there")
	require.NoError(t, err)

	assert.Equal(t, "Hello", text)
	assert.Equal(t, "/v1beta/models/gemini-pro:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "hi there", gotBody.Contents[0].Parts[0].Text)
}

func TestGenerateContent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
		notFound   bool
		empty      bool
	}{
		{"404", http.StatusNotFound, `{"error":{"code":404,"message":"model not found"}}`, 404, "model not found", true, false},
		{"403 with message", http.StatusForbidden, `{"error":{"code":403,"message":"permission denied"}}`, 403, "permission denied", false, false},
		{"500 without body", http.StatusInternalServerError, ``, 500, "HTTP 500", false, false},
		{"200 no candidates", http.StatusOK, `{"candidates":[]}`, 0, "", false, true},
		{"200 no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, 0, "", false, true},
		{"200 not json", http.StatusOK, `garbage`, 0, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient("k").WithBaseURL(server.URL).GenerateContent(context.Background(), "v1", "m", "p")
			require.Error(t, err)

			if tt.empty {
				assert.ErrorIs(t, err, ErrEmptyResponse)
				return
			}
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantStatus, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Error())
			assert.Equal(t, tt.notFound, IsNotFound(err))
		})
	}
}

func TestNotConfigured(t *testing.T) {
	client := NewClient("   ")
	assert.False(t, client.IsConfigured())
	assert.Equal(t, "none", client.KeyFingerprint())

	_, err := client.GenerateContent(context.Background(), "v1", "m", "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = client.ListModels(context.Background(), "v1beta")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models", r.URL.Path)
		w.Write([]byte(`{"models":[
			{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]},
			{"name":"models/gemini-2.0-flash","supportedGenerationMethods":["generateContent","countTokens"]}
		]}`))
	}))
	defer server.Close()

	models, err := NewClient("k").WithBaseURL(server.URL).ListModels(context.Background(), "v1beta")
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.False(t, models[0].Supports(MethodGenerateContent))
	assert.True(t, models[1].Supports(MethodGenerateContent))
	assert.Equal(t, "gemini-2.0-flash", models[1].ID())
}

func TestListModels_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient("k").WithBaseURL(server.URL).ListModels(context.Background(), "v1beta")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 500, apiErr.Status)
}

func TestTransportErrorDoesNotLeakKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	_, err := NewClient("super-secret-key").WithBaseURL(base).GenerateContent(context.Background(), "v1", "m", "p")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "super-secret-key"), "error leaked key: %v", err)
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient("k").WithBaseURL(server.URL).GenerateContent(ctx, "v1", "m", "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResponseSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", MaxResponseSize+10)))
	}))
	defer server.Close()

	_, err := NewClient("k").WithBaseURL(server.URL).GenerateContent(context.Background(), "v1", "m", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}
