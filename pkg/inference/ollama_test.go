// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

func TestOllamaChatCompletion(t *testing.T) {
	var gotPath string
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:         api.Message{Role: api.RoleAssistant, Content: "bonjour"},
			Done:            true,
			DoneReason:      "stop",
			EvalCount:       7,
			PromptEvalCount: 3,
		})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, time.Second)
	resp, err := p.ChatCompletion(context.Background(), api.ChatCompletionRequest{
		Model:          "llama3.2",
		Messages:       []api.Message{{Role: api.RoleUser, Content: "hello"}},
		SamplingParams: api.SamplingParams{Temperature: 0.5, MaxTokens: 100},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}

	if gotPath != "/api/chat" {
		t.Errorf("path = %q", gotPath)
	}
	if gotReq.Stream {
		t.Error("stream should be disabled")
	}
	if gotReq.Options["temperature"] != 0.5 {
		t.Errorf("temperature option = %v", gotReq.Options["temperature"])
	}
	// Ollama takes num_predict, not max_tokens.
	if gotReq.Options["num_predict"] != float64(100) {
		t.Errorf("num_predict option = %v", gotReq.Options["num_predict"])
	}

	if resp.Completion.Content != "bonjour" || resp.StopReason != "stop" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOllamaCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "continued", Done: true, DoneReason: "stop"})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, time.Second)
	resp, err := p.Completion(context.Background(), api.CompletionRequest{Model: "m", Content: "once upon"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "continued" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestOllamaEmbeddingsSequential(t *testing.T) {
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Prompt)
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0.1, 0.2}})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, time.Second)
	resp, err := p.Embeddings(context.Background(), api.EmbeddingsRequest{
		Model:    "nomic-embed-text",
		Contents: []string{"a", "b", "c"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Embeddings) != 3 {
		t.Fatalf("embeddings = %d, want 3", len(resp.Embeddings))
	}
	if len(prompts) != 3 || prompts[0] != "a" || prompts[2] != "c" {
		t.Errorf("prompts = %v", prompts)
	}
	if resp.Embeddings[0][1] != float32(0.2) {
		t.Errorf("vector = %v", resp.Embeddings[0])
	}
}

func TestOllamaUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, time.Second)
	_, err := p.ChatCompletion(context.Background(), api.ChatCompletionRequest{Model: "nope"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := errors.Code(err); got != errors.CodeUpstream {
		t.Errorf("code = %s, want %s", got, errors.CodeUpstream)
	}
	se, _ := errors.As(err)
	if se.Context["status"] != 404 {
		t.Errorf("status context = %v", se.Context["status"])
	}
}

func TestOllamaTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewOllama(srv.URL, time.Second)
	_, err := p.ChatCompletion(context.Background(), api.ChatCompletionRequest{Model: "m"})
	if errors.Code(err) != errors.CodeTransport {
		t.Errorf("code = %s, want %s", errors.Code(err), errors.CodeTransport)
	}
}

func TestOllamaTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.ChatCompletion(ctx, api.ChatCompletionRequest{Model: "m"})
	if errors.Code(err) != errors.CodeTimeout {
		t.Errorf("code = %s, want %s", errors.Code(err), errors.CodeTimeout)
	}
}

func TestOllamaHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, time.Second)
	if err := p.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	p = NewOllama("http://127.0.0.1:1", time.Second)
	if err := p.Health(context.Background()); errors.Code(err) != errors.CodeTransport {
		t.Errorf("Health against dead endpoint: %v", err)
	}
}
