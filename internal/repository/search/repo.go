// Package search adapts substrate FT queries to domain search results.
package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/repository/document"
)

// returnFields: content plus the flattened tag object. The vector is never
// returned, it only feeds KNN scoring.
var returnFields = []string{"$.content", "$.tags"}

// store is the consumer interface of the substrate (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo runs vector and full-text queries over the knowledge index.
type Repo struct {
	store store
}

// NewRepo creates a search repository.
func NewRepo(s store) *Repo {
	return &Repo{store: s}
}

// KNN runs a vector similarity search. Scores are cosine similarity in [0,1].
func (r *Repo) KNN(
	ctx context.Context, vector []float32, k int, filters filter.Expression,
) ([]result.Result, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    document.IndexName,
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w: %w", domain.ErrStore, err)
	}
	return toResults(res, mode.Semantic), nil
}

// Keyword runs a full-text search. sortRecent orders hits by created_at
// descending instead of relevance; recency-ordered hits carry no score.
func (r *Repo) Keyword(
	ctx context.Context, query string, topK int, filters filter.Expression, sortRecent bool,
) ([]result.Result, error) {
	q := &db.TextQuery{
		IndexName:    document.IndexName,
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ReturnFields: returnFields,
	}
	if sortRecent {
		q.SortByField = "created_at"
		q.SortDesc = true
	}

	res, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("text search: %w: %w", domain.ErrStore, err)
	}
	return toResults(res, mode.Keyword), nil
}

func toResults(res *db.SearchResult, m mode.Mode) []result.Result {
	out := make([]result.Result, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, result.New(
			document.IDFromKey(e.Key),
			e.Score,
			e.Fields["$.content"],
			parseTags(e.Fields["$.tags"]),
			m,
		))
	}
	return out
}

// parseTags decodes the $.tags projection. Malformed payloads degrade to nil
// tags rather than failing the whole search.
func parseTags(raw string) map[string]string {
	if raw == "" {
		return nil
	}
	var tags map[string]string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}
