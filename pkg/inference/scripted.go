// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package inference

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/strata-ai/strata/pkg/api"
)

// DefaultScriptedDim is the embedding width the scripted provider produces
// when the binding does not set one.
const DefaultScriptedDim = 64

// ScriptedConfig is the provider-config bag of an inline::scripted binding.
type ScriptedConfig struct {
	// Responses are returned in order by ChatCompletion/Completion; once
	// exhausted the provider falls back to deterministic echoes.
	Responses    []string `yaml:"responses"`
	EmbeddingDim int      `yaml:"embedding_dim"`
}

// Scripted is a fully in-process inference provider. Replies come from a
// scripted queue, falling back to a deterministic echo of the prompt, and
// embeddings are derived from token hashes. The same input always yields the
// same output, which makes it the backend of choice for inline stacks and
// tests.
type Scripted struct {
	dim int

	mu        sync.Mutex
	responses []string
	requests  []api.ChatCompletionRequest
}

// NewScripted creates a scripted provider with the given canned responses.
func NewScripted(cfg ScriptedConfig) *Scripted {
	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = DefaultScriptedDim
	}
	return &Scripted{dim: dim, responses: append([]string(nil), cfg.Responses...)}
}

// Enqueue appends responses to the script.
func (p *Scripted) Enqueue(responses ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, responses...)
}

// Requests returns the chat requests seen so far.
func (p *Scripted) Requests() []api.ChatCompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.ChatCompletionRequest(nil), p.requests...)
}

// ChatCompletion replies with the next scripted response, or a deterministic
// echo of the last user message when the script is exhausted.
func (p *Scripted) ChatCompletion(ctx context.Context, req api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.requests = append(p.requests, req)
	var reply string
	if len(p.responses) > 0 {
		reply = p.responses[0]
		p.responses = p.responses[1:]
	}
	p.mu.Unlock()

	if reply == "" {
		reply = fmt.Sprintf("ack: %s", lastUserContent(req.Messages))
	}
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(strings.Fields(m.Content))
	}
	completionTokens := len(strings.Fields(reply))
	return &api.ChatCompletionResponse{
		Completion: api.Message{Role: api.RoleAssistant, Content: reply},
		StopReason: "stop",
		Usage: api.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

// Completion behaves like ChatCompletion over a single user message.
func (p *Scripted) Completion(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	chatResp, err := p.ChatCompletion(ctx, api.ChatCompletionRequest{
		Model:          req.Model,
		Messages:       []api.Message{{Role: api.RoleUser, Content: req.Content}},
		SamplingParams: req.SamplingParams,
	})
	if err != nil {
		return nil, err
	}
	return &api.CompletionResponse{
		Content:    chatResp.Completion.Content,
		StopReason: chatResp.StopReason,
		Usage:      chatResp.Usage,
	}, nil
}

// Embeddings produces one deterministic unit vector per content item. Texts
// that share tokens land near each other, so similarity queries over these
// vectors behave sensibly in tests.
func (p *Scripted) Embeddings(ctx context.Context, req api.EmbeddingsRequest) (*api.EmbeddingsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &api.EmbeddingsResponse{Embeddings: make([][]float32, len(req.Contents))}
	for i, content := range req.Contents {
		out.Embeddings[i] = hashEmbedding(content, p.dim)
	}
	return out, nil
}

func lastUserContent(messages []api.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == api.RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}

// hashEmbedding folds token hashes into a fixed-width bag-of-words vector
// and normalizes it to unit length.
func hashEmbedding(text string, dim int) []float32 {
	vec := make([]float32, dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()
		idx := int(sum % uint32(dim))
		// Alternate sign from a higher hash bit so distinct token sets do
		// not all collapse toward the positive orthant.
		if sum&(1<<16) != 0 {
			vec[idx]++
		} else {
			vec[idx]--
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

var _ api.Inference = (*Scripted)(nil)
