package rag

import (
	"context"
	"time"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	"github.com/kailas-cloud/ragdex/internal/usecase/knowledge"
)

// Store is the document store contract consumed by the orchestrator.
type Store interface {
	Store(ctx context.Context, content string, meta domdoc.Metadata) (domdoc.Document, error)
	BatchStore(ctx context.Context, items []knowledge.Item, failFast bool) ([]domdoc.Document, dombatch.Report, error)

	SemanticSearch(ctx context.Context, query string, limit int, threshold float64) ([]result.Result, error)
	KeywordSearch(ctx context.Context, query string, limit int, filters filter.Expression) ([]result.Result, error)
	HybridSearch(ctx context.Context, query string, limit int, filters filter.Expression) ([]result.Result, error)

	Statistics(ctx context.Context) (knowledge.Stats, error)
	Cleanup(ctx context.Context, age time.Duration) (int, error)
	ResolveDuplicates(ctx context.Context) (int, error)
}

// CacheStatsProvider exposes the embedding cache counters.
type CacheStatsProvider interface {
	CacheStats() embedding.CacheStats
}
