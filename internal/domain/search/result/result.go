// Package result defines the search hit value object.
package result

import "github.com/kailas-cloud/ragdex/internal/domain/search/mode"

// Result is a single search hit. Score is cosine similarity for semantic
// hits, the fused rank score for hybrid hits; keyword-only hits carry the
// backend's relevance score, which callers must not compare across types.
type Result struct {
	id         string
	score      float64
	content    string
	tags       map[string]string
	searchType mode.Mode
}

// New creates a search result.
func New(id string, score float64, content string, tags map[string]string, searchType mode.Mode) Result {
	return Result{id: id, score: score, content: content, tags: tags, searchType: searchType}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Content returns the document content.
func (r *Result) Content() string { return r.content }

// Tags returns the flattened document metadata.
func (r *Result) Tags() map[string]string { return r.tags }

// SearchType returns which strategy produced this hit.
func (r *Result) SearchType() mode.Mode { return r.searchType }

// WithScore returns a copy with the score and search type replaced.
// Used by hybrid fusion to restamp merged hits.
func (r *Result) WithScore(score float64, searchType mode.Mode) Result {
	return Result{id: r.id, score: score, content: r.content, tags: r.tags, searchType: searchType}
}
