// Package document persists knowledge documents as JSON rows under an FT
// index with a vector field.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
)

// Key layout: one JSON row per document, one FT index over the prefix.
var (
	docKeyPrefix = domain.KeyPrefix + "know:"

	// IndexName is the FT index over knowledge documents.
	IndexName = domain.KeyPrefix + "know_idx"
)

// pageSize bounds a single FT.SEARCH page during full scans.
const pageSize = 200

// store is the consumer interface of the substrate (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)

	SearchList(ctx context.Context, index string, filters filter.Expression, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo is the knowledge document repository.
type Repo struct {
	store store
	dim   int
}

// NewRepo creates a document repository. dim is the embedding dimension the
// vector index is built with.
func NewRepo(s store, dim int) *Repo {
	return &Repo{store: s, dim: dim}
}

// DocKey returns the storage key for a document ID.
func DocKey(id string) string { return docKeyPrefix + id }

// IDFromKey strips the storage prefix from a document key.
func IDFromKey(key string) string { return strings.TrimPrefix(key, docKeyPrefix) }

// indexDefinition builds the FT schema. Well-known tags get fixed JSONPaths;
// free-form Extra keys stay unindexed.
func indexDefinition(dim int) *db.IndexDefinition {
	return db.NewIndex(IndexName).
		Prefix(docKeyPrefix).
		Text("$.content", "content").
		VectorHNSW("$.vector", "vector", dim, db.DistanceCosine, 16, 200).
		Numeric("$.created_at", "created_at").
		Numeric("$.token_count", "token_count").
		Tag("$.tags.source", "source").
		Tag("$.tags.language", "language").
		Tag("$.tags.category", "category").
		Tag("$.tags.difficulty", "difficulty").
		Tag("$.tags.content_type", "content_type").
		MustBuild()
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", IndexName, err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, indexDefinition(r.dim)); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	return nil
}

// RebuildIndex drops and recreates the FT index. Existing JSON rows are
// re-indexed by the engine in the background.
func (r *Repo) RebuildIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, IndexName); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", IndexName, err)
	}
	if err := r.store.CreateIndex(ctx, indexDefinition(r.dim)); err != nil {
		return fmt.Errorf("recreate index %s: %w", IndexName, err)
	}
	return nil
}

// Insert stores a document, replacing any existing row with the same ID.
func (r *Repo) Insert(ctx context.Context, doc *domdoc.Document) error {
	data, err := toJSON(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}
	if err := r.store.JSONSet(ctx, DocKey(doc.ID()), "$", data); err != nil {
		return fmt.Errorf("insert document %s: %w: %w", doc.ID(), domain.ErrStore, err)
	}
	return nil
}

// Get loads a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, DocKey(id), "$")
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
		}
		return domdoc.Document{}, fmt.Errorf("get document %s: %w: %w", id, domain.ErrStore, err)
	}
	return fromJSONGet(id, raw)
}

// Delete removes a document by ID. Missing ID is ErrDocumentNotFound.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := DocKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check document %s: %w: %w", id, domain.ErrStore, err)
	}
	if !exists {
		return fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete document %s: %w: %w", id, domain.ErrStore, err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("count documents: %w: %w", domain.ErrStore, err)
	}
	return n, nil
}

// Projection field paths; SearchList returns them keyed by the literal path.
var summaryFields = []string{
	"$.token_count",
	"$.created_at",
	"$.tags.source",
	"$.tags.language",
	"$.tags.category",
}

// Summaries scans all documents and returns their statistics projections.
func (r *Repo) Summaries(ctx context.Context) ([]domdoc.Summary, error) {
	var out []domdoc.Summary

	for offset := 0; ; offset += pageSize {
		res, err := r.store.SearchList(ctx, IndexName, filter.Expression{}, offset, pageSize, summaryFields)
		if err != nil {
			return nil, fmt.Errorf("scan documents: %w: %w", domain.ErrStore, err)
		}

		for _, e := range res.Entries {
			s := domdoc.Summary{
				ID:       IDFromKey(e.Key),
				Source:   e.Fields["$.tags.source"],
				Language: e.Fields["$.tags.language"],
				Category: e.Fields["$.tags.category"],
			}
			if v, err := strconv.Atoi(e.Fields["$.token_count"]); err == nil {
				s.TokenCount = v
			}
			if v, err := strconv.ParseInt(e.Fields["$.created_at"], 10, 64); err == nil {
				s.CreatedAt = time.Unix(v, 0).UTC()
			}
			out = append(out, s)
		}

		if len(res.Entries) < pageSize || offset+len(res.Entries) >= res.Total {
			break
		}
	}

	return out, nil
}

// IDsOlderThan returns IDs of documents created strictly before cutoff.
func (r *Repo) IDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	stale := filter.Expression{}.WithRange("created_at", filter.Before(float64(cutoff.Unix())))

	var ids []string
	for offset := 0; ; offset += pageSize {
		res, err := r.store.SearchList(ctx, IndexName, stale, offset, pageSize, []string{"$.created_at"})
		if err != nil {
			return nil, fmt.Errorf("scan stale documents: %w: %w", domain.ErrStore, err)
		}
		for _, e := range res.Entries {
			ids = append(ids, IDFromKey(e.Key))
		}
		if len(res.Entries) < pageSize || offset+len(res.Entries) >= res.Total {
			break
		}
	}

	return ids, nil
}

// Page returns fully hydrated documents, paged by offset/limit. Used by the
// duplicate sweep which needs content bytes.
func (r *Repo) Page(ctx context.Context, offset, limit int) ([]domdoc.Document, error) {
	res, err := r.store.SearchList(ctx, IndexName, filter.Expression{}, offset, limit, []string{"$"})
	if err != nil {
		return nil, fmt.Errorf("page documents: %w: %w", domain.ErrStore, err)
	}

	docs := make([]domdoc.Document, 0, len(res.Entries))
	for _, e := range res.Entries {
		raw, ok := e.Fields["$"]
		if !ok {
			continue
		}
		var d docJSON
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("unmarshal document %s: %w", e.Key, err)
		}
		docs = append(docs, hydrate(IDFromKey(e.Key), d))
	}

	return docs, nil
}
