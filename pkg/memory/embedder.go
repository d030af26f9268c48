// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// InferenceEmbedder adapts the stack's own inference capability as an
// Embedder, so a memory provider needs no embedding backend of its own.
type InferenceEmbedder struct {
	inference api.Inference
}

// NewInferenceEmbedder wraps an inference provider as an embedder.
func NewInferenceEmbedder(inference api.Inference) *InferenceEmbedder {
	return &InferenceEmbedder{inference: inference}
}

// Embed converts texts to vectors via the inference embeddings operation.
func (e *InferenceEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	resp, err := e.inference.Embeddings(ctx, api.EmbeddingsRequest{Model: model, Contents: texts})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.Newf(errors.CodeContractViolation,
			"embeddings response has %d vectors for %d contents", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

var _ Embedder = (*InferenceEmbedder)(nil)
