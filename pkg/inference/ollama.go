// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package inference provides inference capability adapters.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// OllamaConfig is the provider-config bag of a remote::ollama binding.
type OllamaConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// Ollama implements the inference contract against an Ollama server.
// Construction does not dial; connectivity surfaces on first use or via
// Health.
type Ollama struct {
	baseURL string
	client  *http.Client
}

// NewOllama creates an Ollama inference adapter.
func NewOllama(baseURL string, timeout time.Duration) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Ollama{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []api.Message  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         api.Message `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	EvalCount       int         `json:"eval_count"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	EvalCount       int    `json:"eval_count"`
	PromptEvalCount int    `json:"prompt_eval_count"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// ChatCompletion sends a conversation to Ollama's chat endpoint.
func (p *Ollama) ChatCompletion(ctx context.Context, req api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	oReq := ollamaChatRequest{
		Model:    req.Model,
		Messages: req.Messages,
		Stream:   false,
		Options:  samplingOptions(req.SamplingParams),
	}
	var oResp ollamaChatResponse
	if err := p.post(ctx, "/api/chat", oReq, &oResp); err != nil {
		return nil, err
	}
	return &api.ChatCompletionResponse{
		Completion: api.Message{Role: api.RoleAssistant, Content: oResp.Message.Content},
		StopReason: oResp.DoneReason,
		Usage: api.Usage{
			PromptTokens:     oResp.PromptEvalCount,
			CompletionTokens: oResp.EvalCount,
			TotalTokens:      oResp.PromptEvalCount + oResp.EvalCount,
		},
	}, nil
}

// Completion sends raw content to Ollama's generate endpoint.
func (p *Ollama) Completion(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	oReq := ollamaGenerateRequest{
		Model:   req.Model,
		Prompt:  req.Content,
		Stream:  false,
		Options: samplingOptions(req.SamplingParams),
	}
	var oResp ollamaGenerateResponse
	if err := p.post(ctx, "/api/generate", oReq, &oResp); err != nil {
		return nil, err
	}
	return &api.CompletionResponse{
		Content:    oResp.Response,
		StopReason: oResp.DoneReason,
		Usage: api.Usage{
			PromptTokens:     oResp.PromptEvalCount,
			CompletionTokens: oResp.EvalCount,
			TotalTokens:      oResp.PromptEvalCount + oResp.EvalCount,
		},
	}, nil
}

// Embeddings embeds each content item. Ollama's embeddings endpoint takes
// one prompt at a time, so the batch is issued sequentially.
func (p *Ollama) Embeddings(ctx context.Context, req api.EmbeddingsRequest) (*api.EmbeddingsResponse, error) {
	out := &api.EmbeddingsResponse{Embeddings: make([][]float32, len(req.Contents))}
	for i, content := range req.Contents {
		var oResp ollamaEmbeddingResponse
		if err := p.post(ctx, "/api/embeddings", ollamaEmbeddingRequest{Model: req.Model, Prompt: content}, &oResp); err != nil {
			return nil, err
		}
		vec := make([]float32, len(oResp.Embedding))
		for j, v := range oResp.Embedding {
			vec[j] = float32(v)
		}
		out.Embeddings[i] = vec
	}
	return out, nil
}

// Health verifies the Ollama server is reachable.
func (p *Ollama) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return errors.New(errors.CodeTransport, "build health request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return errors.New(errors.CodeTransport, "ollama server is not reachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.CodeUpstream, "ollama health returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *Ollama) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.New(errors.CodeInternal, "marshal ollama request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.New(errors.CodeTransport, "build ollama request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return errors.Newf(errors.CodeTimeout, "ollama call %s timed out", path)
		}
		return errors.New(errors.CodeTransport, fmt.Sprintf("ollama call %s", path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return errors.Newf(errors.CodeUpstream, "ollama %s returned status %d", path, resp.StatusCode).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(diag))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.CodeContractViolation, "decode ollama response", err)
	}
	return nil
}

func samplingOptions(p api.SamplingParams) map[string]any {
	opts := make(map[string]any)
	if p.Temperature != 0 {
		opts["temperature"] = p.Temperature
	}
	if p.TopP != 0 {
		opts["top_p"] = p.TopP
	}
	// Ollama expects num_predict for early truncation instead of max_tokens.
	if p.MaxTokens != 0 {
		opts["num_predict"] = p.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

var (
	_ api.Inference     = (*Ollama)(nil)
	_ api.HealthChecker = (*Ollama)(nil)
)
