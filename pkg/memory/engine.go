// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// DefaultQueryK bounds query results when the caller does not ask for a
// specific k.
const DefaultQueryK = 10

// maxDocumentFetch caps how many bytes a reference-URL document may carry.
const maxDocumentFetch = 8 << 20

// Engine is the memory-bank capability implementation: it owns bank
// registrations, derives chunks deterministically from documents, embeds
// them through the configured Embedder and serves similarity queries from
// the vector store.
type Engine struct {
	store    VectorStore
	embedder Embedder
	httpc    *http.Client

	mu    sync.RWMutex
	banks map[string]*bank
	order []string
}

// bank tracks one registration. Its mutex serializes inserts into this bank
// only; inserts into different banks proceed concurrently.
type bank struct {
	spec api.BankSpec

	mu      sync.Mutex
	docs    map[string]bool
	created bool // collection exists in the store
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithHTTPClient overrides the client used to fetch reference-URL documents.
func WithHTTPClient(c *http.Client) EngineOption {
	return func(e *Engine) { e.httpc = c }
}

// NewEngine creates a bank engine over a vector store and an embedder.
func NewEngine(store VectorStore, embedder Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
		httpc:    &http.Client{Timeout: 30 * time.Second},
		banks:    make(map[string]*bank),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterBank creates a bank. The backing collection is created lazily on
// first insert, once the embedding dimension is known.
func (e *Engine) RegisterBank(_ context.Context, spec api.BankSpec) (string, error) {
	if spec.Identifier == "" {
		return "", errors.Newf(errors.CodeInvalidConfig, "bank needs an identifier")
	}
	if spec.EmbeddingModel == "" {
		return "", errors.Newf(errors.CodeInvalidConfig, "bank %q needs an embedding model", spec.Identifier)
	}
	if spec.ChunkSizeInTokens <= 0 {
		return "", errors.Newf(errors.CodeInvalidConfig, "bank %q: chunk size must be positive", spec.Identifier)
	}
	if spec.OverlapSizeInTokens < 0 || spec.OverlapSizeInTokens >= spec.ChunkSizeInTokens {
		return "", errors.Newf(errors.CodeInvalidConfig,
			"bank %q: overlap %d must be in [0, chunk size %d)",
			spec.Identifier, spec.OverlapSizeInTokens, spec.ChunkSizeInTokens)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.banks[spec.Identifier]; ok {
		return "", errors.Newf(errors.CodeDuplicateBank, "bank %q already registered", spec.Identifier)
	}
	e.banks[spec.Identifier] = &bank{spec: spec, docs: make(map[string]bool)}
	e.order = append(e.order, spec.Identifier)
	return spec.Identifier, nil
}

// UnregisterBank removes the bank and drops its chunks.
func (e *Engine) UnregisterBank(ctx context.Context, bankID string) error {
	e.mu.Lock()
	b, ok := e.banks[bankID]
	if ok {
		delete(e.banks, bankID)
		for i, id := range e.order {
			if id == bankID {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
	e.mu.Unlock()
	if !ok {
		return errors.Newf(errors.CodeNotFound, "bank %q is not registered", bankID)
	}
	if b.created {
		return e.store.DropCollection(ctx, bankID)
	}
	return nil
}

// ListBanks returns bank specs in registration order.
func (e *Engine) ListBanks(_ context.Context) ([]api.BankSpec, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]api.BankSpec, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.banks[id].spec)
	}
	return out, nil
}

// Insert chunks, embeds and stores documents in submission order. Duplicate
// document ids — within the request or against the bank — reject the whole
// request before anything is stored, keeping existing chunks untouched.
func (e *Engine) Insert(ctx context.Context, req api.InsertRequest) error {
	b, err := e.bank(req.BankID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool, len(req.Documents))
	for _, doc := range req.Documents {
		if doc.DocumentID == "" {
			return errors.Newf(errors.CodeChunking, "document without document_id")
		}
		if b.docs[doc.DocumentID] || seen[doc.DocumentID] {
			return errors.Newf(errors.CodeDuplicateDocument,
				"document %q already present in bank %q", doc.DocumentID, req.BankID)
		}
		seen[doc.DocumentID] = true
	}

	for _, doc := range req.Documents {
		if err := e.insertDocument(ctx, b, doc); err != nil {
			return errors.Wrap(err).WithContext("document_id", doc.DocumentID)
		}
		b.docs[doc.DocumentID] = true
	}
	return nil
}

func (e *Engine) insertDocument(ctx context.Context, b *bank, doc api.Document) error {
	content, err := e.resolveContent(ctx, doc)
	if err != nil {
		return err
	}
	chunks, err := chunkDocument(doc, content, b.spec.ChunkSizeInTokens, b.spec.OverlapSizeInTokens)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := e.embedder.Embed(ctx, b.spec.EmbeddingModel, texts)
	if err != nil {
		return errors.New(errors.CodeChunking, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return errors.Newf(errors.CodeChunking,
			"embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	if !b.created {
		if err := e.store.EnsureCollection(ctx, b.spec.Identifier, uint64(len(vectors[0]))); err != nil {
			return err
		}
		b.created = true
	}

	points := make([]Point, len(chunks))
	for i, c := range chunks {
		encoded, err := json.Marshal(c)
		if err != nil {
			return errors.New(errors.CodeChunking, "encode chunk", err)
		}
		points[i] = Point{
			ID:      chunkPointID(b.spec.Identifier, c.DocumentID, i),
			Vector:  vectors[i],
			Payload: map[string]string{"chunk": string(encoded)},
		}
	}
	return e.store.Upsert(ctx, b.spec.Identifier, points)
}

// Query embeds each query with the bank's model, searches the store with a
// per-query limit of k, and merges all matches into one ranking: parallel
// chunks/scores arrays, scores non-increasing, store tie order preserved.
func (e *Engine) Query(ctx context.Context, req api.QueryRequest) (*api.QueryResponse, error) {
	b, err := e.bank(req.BankID)
	if err != nil {
		return nil, err
	}
	k := req.K
	if k <= 0 {
		k = DefaultQueryK
	}

	resp := &api.QueryResponse{Chunks: []api.Chunk{}, Scores: []float32{}}
	if !b.hasChunks() {
		return resp, nil
	}

	type match struct {
		chunk api.Chunk
		score float32
	}
	var matches []match
	for _, query := range req.Queries {
		vectors, err := e.embedder.Embed(ctx, b.spec.EmbeddingModel, []string{query})
		if err != nil {
			return nil, errors.New(errors.CodeChunking, "embed query", err)
		}
		found, err := e.store.Search(ctx, b.spec.Identifier, vectors[0], k)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			var chunk api.Chunk
			if err := json.Unmarshal([]byte(m.Point.Payload["chunk"]), &chunk); err != nil {
				return nil, errors.New(errors.CodeInternal, "decode stored chunk", err)
			}
			matches = append(matches, match{chunk: chunk, score: m.Score})
		}
	}

	// Stable, so equal scores keep query order then store order.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	for _, m := range matches {
		resp.Chunks = append(resp.Chunks, m.chunk)
		resp.Scores = append(resp.Scores, m.score)
	}
	return resp, nil
}

// Close releases the vector store if it holds resources.
func (e *Engine) Close() error {
	if c, ok := e.store.(api.Closer); ok {
		return c.Close()
	}
	return nil
}

func (e *Engine) bank(id string) (*bank, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.banks[id]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "bank %q is not registered", id)
	}
	return b, nil
}

func (b *bank) hasChunks() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created
}

// resolveContent returns the document text, fetching it when the content is
// a bare http(s) reference URL.
func (e *Engine) resolveContent(ctx context.Context, doc api.Document) (string, error) {
	trimmed := strings.TrimSpace(doc.Content)
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return doc.Content, nil
	}
	if strings.ContainsAny(trimmed, " \t\n") {
		return doc.Content, nil
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return doc.Content, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", errors.New(errors.CodeChunking, "build document fetch", err)
	}
	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", errors.New(errors.CodeChunking, fmt.Sprintf("fetch document %s", trimmed), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.CodeChunking, "fetch document %s: status %d", trimmed, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentFetch))
	if err != nil {
		return "", errors.New(errors.CodeChunking, "read document body", err)
	}
	return string(data), nil
}

// chunkPointID derives a stable point id so re-indexing identical content
// maps onto the same points.
func chunkPointID(bankID, docID string, index int) string {
	name := fmt.Sprintf("strata:%s:%s:%d", bankID, docID, index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

var _ api.Memory = (*Engine)(nil)
