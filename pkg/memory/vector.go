// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory implements the memory-bank capability: document chunking,
// embedding storage and similarity queries over a pluggable vector store.
package memory

import "context"

// Point is one stored chunk embedding. Payload carries the serialized chunk
// so stores never need to understand chunk internals.
type Point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

// SearchResult is one match from a vector search.
type SearchResult struct {
	Point Point   `json:"point"`
	Score float32 `json:"score"`
}

// VectorStore is the storage backend for chunk embeddings. Implementations
// must return search results in non-increasing score order; the in-process
// store additionally keeps insertion order on ties.
type VectorStore interface {
	// EnsureCollection creates the named collection if it does not exist.
	// The vector size is only known once the first embedding is computed.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error

	// Upsert stores points in insertion order.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns up to limit nearest points by cosine similarity.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error)

	// DropCollection removes the collection and all of its points.
	DropCollection(ctx context.Context, name string) error
}

// Embedder converts texts to vectors using a named embedding model. It is an
// external collaborator behind a capability boundary, not part of the bank
// engine.
type Embedder interface {
	// Embed returns one vector per text, parallel to the input.
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}
