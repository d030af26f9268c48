// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "context"

// BankSpec describes a memory bank: which embedding model it uses and how
// documents are windowed into chunks. Immutable once registered.
type BankSpec struct {
	Identifier          string `json:"identifier"`
	EmbeddingModel      string `json:"embedding_model"`
	ChunkSizeInTokens   int    `json:"chunk_size_in_tokens"`
	OverlapSizeInTokens int    `json:"overlap_size_in_tokens"`
	ProviderID          string `json:"provider_id,omitempty"`
}

// Document is the unit of insertion into a memory bank. Content is either
// inline text or, when it parses as an http(s) URL, a reference fetched at
// insert time. Immutable once inserted.
type Document struct {
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	MimeType   string            `json:"mime_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Chunk is a bounded token window of a document, the unit of embedding and
// retrieval. Never mutated after creation.
type Chunk struct {
	DocumentID string            `json:"document_id"`
	Content    string            `json:"content"`
	TokenCount int               `json:"token_count"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// InsertRequest appends documents to a bank.
type InsertRequest struct {
	BankID    string     `json:"bank_id"`
	Documents []Document `json:"documents"`
}

// QueryRequest runs one or more similarity queries against a bank. K bounds
// the result count per query; zero means the system default.
type QueryRequest struct {
	BankID  string   `json:"bank_id"`
	Queries []string `json:"query"`
	K       int      `json:"k,omitempty"`
}

// QueryResponse holds the ranked matches as top-level parallel arrays of
// equal length, scores non-increasing. Matches from multiple query strings
// are merged into the one ranking.
type QueryResponse struct {
	Chunks []Chunk   `json:"chunks"`
	Scores []float32 `json:"scores"`
}

// Memory is the capability contract for memory bank providers.
type Memory interface {
	// RegisterBank creates a bank and returns its identifier.
	RegisterBank(ctx context.Context, spec BankSpec) (string, error)

	// UnregisterBank removes a bank and all of its chunks.
	UnregisterBank(ctx context.Context, bankID string) error

	// ListBanks returns the registered bank specs in registration order.
	ListBanks(ctx context.Context) ([]BankSpec, error)

	// Insert chunks, embeds and stores the given documents.
	Insert(ctx context.Context, req InsertRequest) error

	// Query returns the nearest chunks for each query string, best first.
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}
