package knowledge

import (
	"context"
	"time"

	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Repository defines the document persistence contract.
type Repository interface {
	Insert(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Summaries(ctx context.Context) ([]domdoc.Summary, error)
	IDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
	Page(ctx context.Context, offset, limit int) ([]domdoc.Document, error)
	RebuildIndex(ctx context.Context) error
}

// SearchRepository defines the query contract over the knowledge index.
type SearchRepository interface {
	KNN(ctx context.Context, vector []float32, k int, filters filter.Expression) ([]result.Result, error)
	Keyword(ctx context.Context, query string, topK int, filters filter.Expression, sortRecent bool) ([]result.Result, error)
}

// Engine vectorizes text for ingestion and queries.
type Engine interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// Pacer inserts backpressure delays between batch groups.
type Pacer interface {
	Wait(ctx context.Context) error
}
