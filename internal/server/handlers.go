// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jeranaias/bookbot/internal/model"
)

// ============================================================================
// WIRE TYPES
// ============================================================================

// HistoryTurn is one prior turn as sent by the client. Roles are not
// restricted: anything other than "user" is labelled Assistant.
type HistoryTurn struct {
	Role    string `json:"role" validate:"max=32"`
	Content string `json:"content" validate:"max=100000"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string        `json:"message" validate:"required,max=100000"`
	History []HistoryTurn `json:"history" validate:"max=200,dive"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body of every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Discovered *string  `json:"discovered"`
	Candidates []string `json:"candidates"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Configured bool   `json:"configured"`
}

// Turns converts the wire history to model turns, preserving order.
func (r ChatRequest) Turns() []model.Turn {
	turns := make([]model.Turn, len(r.History))
	for i, h := range r.History {
		turns[i] = model.Turn{Role: model.Role(h.Role), Content: h.Content}
	}
	return turns
}

// rawChatRequest defers field decoding so a wrongly typed message can be
// told apart from a malformed body.
type rawChatRequest struct {
	Message json.RawMessage `json:"message"`
	History json.RawMessage `json:"history"`
}

// decodeChatRequest parses the body. The returned string is the client-facing
// error text when decoding fails.
func decodeChatRequest(r *http.Request) (ChatRequest, string, error) {
	var raw rawChatRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return ChatRequest{}, msgInvalidBody, err
	}

	var req ChatRequest
	if len(raw.Message) == 0 || string(raw.Message) == "null" {
		return req, msgMessageRequired, errors.New("message missing")
	}
	if err := json.Unmarshal(raw.Message, &req.Message); err != nil {
		return req, msgMessageRequired, err
	}
	// A history that is not an array of turns is treated as no history.
	if len(raw.History) > 0 && string(raw.History) != "null" {
		if err := json.Unmarshal(raw.History, &req.History); err != nil {
			req.History = nil
		}
	}
	return req, "", nil
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.configured {
		s.writeError(w, http.StatusInternalServerError, msgKeyMissing)
		return
	}

	req, msg, err := decodeChatRequest(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result, err := s.resolver.Resolve(r.Context(), req.Turns(), req.Message)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, msgGenerateFailed+err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, ChatResponse{Response: result.Text})
}

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if !s.configured {
		s.writeError(w, http.StatusInternalServerError, msgKeyMissing)
		return
	}

	resp := ModelsResponse{}
	if name, ok := s.resolver.Discover(r.Context()); ok {
		resp.Discovered = &name
		resp.Candidates = []string{name}
	} else {
		resp.Candidates = s.resolver.Settings().FallbackModels
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Version:    s.version,
		Configured: s.configured,
	})
}
