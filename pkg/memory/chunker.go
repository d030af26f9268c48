// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"unicode"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// tokenSpan is one whitespace-delimited token with its byte offsets in the
// source text.
type tokenSpan struct {
	start int
	end   int
}

// tokenize splits text into whitespace-delimited tokens, preserving byte
// offsets. The same bytes always produce the same spans, which is what makes
// chunking deterministic.
func tokenize(text string) []tokenSpan {
	var spans []tokenSpan
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, tokenSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, tokenSpan{start: start, end: len(text)})
	}
	return spans
}

// chunkDocument splits a document into contiguous token windows of chunkSize
// tokens with overlap tokens shared between consecutive windows. The final
// window may be shorter. Chunk content is the exact byte slice of the source
// between the window's first and last token, so byte-identical input under
// identical configuration yields byte-identical chunks.
func chunkDocument(doc api.Document, content string, chunkSize, overlap int) ([]api.Chunk, error) {
	if chunkSize <= 0 {
		return nil, errors.Newf(errors.CodeChunking, "chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, errors.Newf(errors.CodeChunking, "overlap %d must be in [0, chunk size %d)", overlap, chunkSize)
	}

	tokens := tokenize(content)
	if len(tokens) == 0 {
		return nil, nil
	}

	step := chunkSize - overlap
	var chunks []api.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, api.Chunk{
			DocumentID: doc.DocumentID,
			Content:    content[tokens[start].start:tokens[end-1].end],
			TokenCount: end - start,
			Metadata:   doc.Metadata,
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks, nil
}
