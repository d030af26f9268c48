// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "context"

// SamplingParams tunes generation behavior. Zero values mean provider
// defaults.
type SamplingParams struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// ChatCompletionRequest encapsulates a chat call to an inference provider.
type ChatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []Message      `json:"messages"`
	SamplingParams SamplingParams `json:"sampling_params,omitempty"`
}

// ChatCompletionResponse is the full (non-streamed) model reply.
type ChatCompletionResponse struct {
	Completion Message `json:"completion_message"`
	StopReason string  `json:"stop_reason,omitempty"`
	Usage      Usage   `json:"usage,omitzero"`
}

// CompletionRequest encapsulates a raw text completion call.
type CompletionRequest struct {
	Model          string         `json:"model"`
	Content        string         `json:"content"`
	SamplingParams SamplingParams `json:"sampling_params,omitempty"`
}

// CompletionResponse is the raw completion reply.
type CompletionResponse struct {
	Content    string `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      Usage  `json:"usage,omitzero"`
}

// EmbeddingsRequest asks for one embedding vector per content item.
type EmbeddingsRequest struct {
	Model    string   `json:"model"`
	Contents []string `json:"contents"`
}

// EmbeddingsResponse carries the vectors, parallel to the request contents.
type EmbeddingsResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Inference is the capability contract for model inference backends.
type Inference interface {
	// ChatCompletion sends a conversation to the model and returns its reply.
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)

	// Completion sends raw content to the model and returns its continuation.
	Completion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Embeddings converts content items into embedding vectors.
	Embeddings(ctx context.Context, req EmbeddingsRequest) (*EmbeddingsResponse, error)
}
