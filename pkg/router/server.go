// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// maxRequestBody bounds inbound payload size.
const maxRequestBody = 8 << 20

// Server exposes a router over the stack wire protocol. Together with the
// remote adapters in this package it makes any strata process a valid
// remote provider for another: serve here, point a remote::stack binding at
// the listen address, and the two stacks compose.
type Server struct {
	router *Router
}

// NewServer wraps a router as an HTTP handler.
func NewServer(r *Router) *Server {
	return &Server{router: r}
}

// ServeHTTP routes POST /<capability>/<operation> into the router. Each
// request runs on its own goroutine (net/http), so a slow adapter blocks
// only its own call.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) == 1 && segments[0] == "healthz" {
		s.handleHealth(w, r)
		return
	}
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	group := api.CapabilityGroup(segments[0])
	op := segments[1]

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, errors.New(errors.CodeTransport, "read request body", err))
		return
	}

	result, err := s.router.Dispatch(r.Context(), group, op, payload)
	if err != nil {
		slog.WarnContext(r.Context(), "dispatch failed",
			slog.String("capability", string(group)),
			slog.String("operation", op),
			slog.String("code", string(errors.Code(err))),
			slog.Any("error", err))
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.router.Registry().Health(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// writeError renders a structured problem+json body so callers can tell
// "your request was invalid" (routing/config) from "the backend failed"
// (adapter) and choose a retry strategy accordingly.
func writeError(w http.ResponseWriter, err error) {
	se := errors.Wrap(err)
	body := map[string]any{
		"type":   "about:blank",
		"title":  string(se.Code),
		"detail": se.Message,
	}
	if se.Group != "" {
		body["group"] = se.Group
	}
	if se.Provider != "" {
		body["provider"] = se.Provider
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(errors.HTTPStatus(se))
	_ = json.NewEncoder(w).Encode(body)
}
