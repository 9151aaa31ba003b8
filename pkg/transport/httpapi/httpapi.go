// Copyright 2025 agentmesh authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpapi is the HTTP framing around one streaming-chat turn: a
// chi router exposing POST /v1/networks/{name}/chat, which decodes the
// turn request, drives a
// session.Runner, and streams the response as newline-delimited JSON —
// one line per chat message, ending in the turn's single AGENT_FRAMEWORK
// line — flushing after every write so a client sees messages as they're
// produced rather than buffered until the turn ends.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/agentmesh/agentmesh/pkg/authz"
	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/network"
	"github.com/agentmesh/agentmesh/pkg/session"
)

// Handler wires a session.Runner to chi routes.
type Handler struct {
	Runner         *session.Runner
	TokenValidator *authz.TokenValidator // nil disables bearer-token auth
	RequireAuth    bool
	CORSHeaders    []string // extra headers to allow, per AGENT_ALLOW_CORS_HEADERS
	Logger         *zap.Logger
}

// Routes builds the router. Mounted at the server's root by the caller.
func (h *Handler) Routes() *chi.Mux {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(logger))
	r.Use(corsMiddleware(h.CORSHeaders))

	r.Get("/healthz", h.handleHealth)
	r.Route("/v1/networks/{name}", func(r chi.Router) {
		r.Get("/", h.handleDescribe)
		r.Post("/chat", h.handleChat)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleDescribe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := network.MustGet(h.Runner.Networks, name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":      n.Name,
		"front_man": n.FrontMan,
		"agents":    agentNames(n),
	})
}

func agentNames(n *network.AgentNetwork) []string {
	names := make([]string, 0, len(n.Agents))
	for name := range n.Agents {
		names = append(names, name)
	}
	return names
}

// wireUserMessage is the request's user_message field: always
// HUMAN-typed at the wire boundary, so only Text is read.
type wireUserMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireChatFilter struct {
	ChatFilterType string `json:"chat_filter_type"`
}

type wireRequest struct {
	UserMessage wireUserMessage `json:"user_message"`
	ChatContext *chat.Context   `json:"chat_context,omitempty"`
	SlyData     map[string]any  `json:"sly_data,omitempty"`
	ChatFilter  *wireChatFilter `json:"chat_filter,omitempty"`
}

// wireResponseLine is one line of the newline-delimited response stream.
type wireResponseLine struct {
	Response *chat.Message `json:"response"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req wireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var actor *authz.Actor
	if h.TokenValidator != nil {
		a, err := h.authenticate(r)
		if err != nil {
			if h.RequireAuth {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
		} else {
			actor = a
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("httpapi: response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	turnReq := session.TurnRequest{
		NetworkName: name,
		UserMessage: req.UserMessage.Text,
		ChatContext: req.ChatContext,
		SlyData:     req.SlyData,
		Actor:       actor,
	}

	err := h.Runner.Run(r.Context(), turnReq, func(msg *chat.Message) error {
		if err := encoder.Encode(wireResponseLine{Response: msg}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Run returns an error for pre-stream failures (network lookup,
		// authorization), when nothing has been written yet, or when
		// writing the terminal line failed; WriteHeader above already
		// committed 200, so the client has to infer the failure from an
		// empty/truncated stream plus this log.
		h.logger().Warn("httpapi: turn failed", zap.String("network", name), zap.Error(err))
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return zap.NewNop()
}

func (h *Handler) authenticate(r *http.Request) (*authz.Actor, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errors.New("httpapi: missing Authorization header")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	return h.TokenValidator.ValidateToken(r.Context(), token)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
