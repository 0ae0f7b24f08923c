package search

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/db"
	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/repository/document"
)

type fakeStore struct {
	knnQuery  *db.KNNQuery
	textQuery *db.TextQuery
	result    *db.SearchResult
	err       error
}

func (f *fakeStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	f.knnQuery = q
	return f.result, f.err
}

func (f *fakeStore) SearchText(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	f.textQuery = q
	return f.result, f.err
}

func hit(id string, score float64, content, tags string) db.SearchEntry {
	return db.SearchEntry{
		Key:   document.DocKey(id),
		Score: score,
		Fields: map[string]string{
			"$.content": content,
			"$.tags":    tags,
		},
	}
}

func TestKNN_MapsResults(t *testing.T) {
	store := &fakeStore{result: &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
		hit("doc-1", 0.92, "Use XLOOKUP.", `{"source":"manual"}`),
	}}}
	repo := NewRepo(store)

	hits, err := repo.KNN(context.Background(), []float32{0.1}, 5, filter.Expression{})
	if err != nil {
		t.Fatalf("knn: %v", err)
	}

	if store.knnQuery.K != 5 || store.knnQuery.IndexName != document.IndexName {
		t.Errorf("query: %+v", store.knnQuery)
	}
	if len(hits) != 1 {
		t.Fatalf("hits: %d", len(hits))
	}

	h := hits[0]
	if h.ID() != "doc-1" {
		t.Errorf("key prefix must be stripped, got %q", h.ID())
	}
	if h.Score() != 0.92 || h.Content() != "Use XLOOKUP." {
		t.Errorf("hit: score=%g content=%q", h.Score(), h.Content())
	}
	if h.Tags()["source"] != "manual" {
		t.Errorf("tags: %v", h.Tags())
	}
	if h.SearchType() != mode.Semantic {
		t.Errorf("search type: %s", h.SearchType())
	}
}

func TestKeyword_SortRecent(t *testing.T) {
	store := &fakeStore{result: &db.SearchResult{}}
	repo := NewRepo(store)

	if _, err := repo.Keyword(context.Background(), "xlookup", 5, filter.Expression{}, true); err != nil {
		t.Fatalf("keyword: %v", err)
	}
	if store.textQuery.SortByField != "created_at" || !store.textQuery.SortDesc {
		t.Errorf("recency ordering not requested: %+v", store.textQuery)
	}

	if _, err := repo.Keyword(context.Background(), "xlookup", 5, filter.Expression{}, false); err != nil {
		t.Fatalf("keyword: %v", err)
	}
	if store.textQuery.SortByField != "" {
		t.Errorf("relevance ordering must leave sort empty: %+v", store.textQuery)
	}
}

func TestKeyword_MapsToKeywordMode(t *testing.T) {
	store := &fakeStore{result: &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
		hit("doc-2", 0, "Keyword hit.", ""),
	}}}
	repo := NewRepo(store)

	hits, err := repo.Keyword(context.Background(), "hit", 5, filter.Expression{}, true)
	if err != nil {
		t.Fatalf("keyword: %v", err)
	}
	if hits[0].SearchType() != mode.Keyword {
		t.Errorf("search type: %s", hits[0].SearchType())
	}
	if hits[0].Tags() != nil {
		t.Errorf("empty tag payload must degrade to nil, got %v", hits[0].Tags())
	}
}

func TestSearch_MalformedTagsDegrade(t *testing.T) {
	store := &fakeStore{result: &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
		hit("doc-3", 0.5, "content", "{not json"),
	}}}
	repo := NewRepo(store)

	hits, err := repo.KNN(context.Background(), []float32{0.1}, 5, filter.Expression{})
	if err != nil {
		t.Fatalf("malformed tags must not fail the search: %v", err)
	}
	if hits[0].Tags() != nil {
		t.Errorf("expected nil tags, got %v", hits[0].Tags())
	}
}

func TestSearch_ErrorsWrapStore(t *testing.T) {
	store := &fakeStore{err: errors.New("index gone")}
	repo := NewRepo(store)

	if _, err := repo.KNN(context.Background(), []float32{0.1}, 5, filter.Expression{}); !errors.Is(err, domain.ErrStore) {
		t.Errorf("knn: expected ErrStore, got %v", err)
	}
	if _, err := repo.Keyword(context.Background(), "q", 5, filter.Expression{}, false); !errors.Is(err, domain.ErrStore) {
		t.Errorf("keyword: expected ErrStore, got %v", err)
	}
}
