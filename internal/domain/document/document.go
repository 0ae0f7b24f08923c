// Package document holds the knowledge document aggregate.
package document

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Content length bounds in bytes. MaxContentLen matches the embedding
// provider's practical input ceiling; MinContentLen rejects fragments too
// short to carry retrievable meaning.
const (
	MinContentLen = 10
	MaxContentLen = 8000
)

// Document is an immutable knowledge document. After creation it is only
// ever replaced whole or deleted.
type Document struct {
	id         string
	content    string
	meta       Metadata
	vector     []float32
	tokenCount int
	createdAt  time.Time
}

// New validates and creates a Document. Content must already be sanitized;
// length outside [MinContentLen, MaxContentLen] is ErrInvalidDocument.
// The token count is the chars/4 heuristic, never zero.
func New(id, content string, meta Metadata, createdAt time.Time) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidDocument)
	}
	if len(content) < MinContentLen {
		return Document{}, fmt.Errorf(
			"content too short (%d bytes, min %d): %w",
			len(content), MinContentLen, domain.ErrInvalidDocument,
		)
	}
	if len(content) > MaxContentLen {
		return Document{}, fmt.Errorf(
			"content too large (%d bytes, max %d): %w",
			len(content), MaxContentLen, domain.ErrInvalidDocument,
		)
	}

	return Document{
		id:         id,
		content:    content,
		meta:       meta,
		tokenCount: EstimateTokens(content),
		createdAt:  createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id, content string, meta Metadata, vector []float32,
	tokenCount int, createdAt time.Time,
) Document {
	return Document{
		id: id, content: content, meta: meta, vector: vector,
		tokenCount: tokenCount, createdAt: createdAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Meta returns the document metadata.
func (d *Document) Meta() Metadata { return d.meta }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// TokenCount returns the heuristic token estimate.
func (d *Document) TokenCount() int { return d.tokenCount }

// CreatedAt returns the creation timestamp (UTC).
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// SetVector sets the vector in place. Used once, between embedding and persistence.
func (d *Document) SetVector(v []float32) { d.vector = v }

// EstimateTokens approximates the token cost of text as len/4, floored at 1.
// Deliberately not a real tokenizer — downstream cost accounting depends on
// this exact heuristic.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}
