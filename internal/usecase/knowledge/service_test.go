package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// --- Mocks ---

type mockRepo struct {
	inserted  []domdoc.Document
	insertErr error

	docs map[string]domdoc.Document

	deleted   []string
	deleteErr map[string]error

	summaries []domdoc.Summary
	staleIDs  []string

	pages [][]domdoc.Document

	rebuilds   int
	rebuildErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: map[string]domdoc.Document{}, deleteErr: map[string]error{}}
}

func (m *mockRepo) Insert(_ context.Context, doc *domdoc.Document) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, *doc)
	m.docs[doc.ID()] = *doc
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (domdoc.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	if err, ok := m.deleteErr[id]; ok {
		return err
	}
	m.deleted = append(m.deleted, id)
	delete(m.docs, id)
	return nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) { return len(m.docs), nil }

func (m *mockRepo) Summaries(_ context.Context) ([]domdoc.Summary, error) {
	return m.summaries, nil
}

func (m *mockRepo) IDsOlderThan(_ context.Context, _ time.Time) ([]string, error) {
	return m.staleIDs, nil
}

func (m *mockRepo) Page(_ context.Context, offset, _ int) ([]domdoc.Document, error) {
	page := offset / duplicateScanPage
	if page >= len(m.pages) {
		return nil, nil
	}
	return m.pages[page], nil
}

func (m *mockRepo) RebuildIndex(_ context.Context) error {
	if m.rebuildErr != nil {
		return m.rebuildErr
	}
	m.rebuilds++
	return nil
}

type mockSearch struct {
	knnResults []result.Result
	knnErr     error
	knnCalls   int
	lastKNNK   int

	kwResults      []result.Result
	kwErr          error
	kwCalls        int
	lastSortRecent bool
}

func (m *mockSearch) KNN(
	_ context.Context, _ []float32, k int, _ filter.Expression,
) ([]result.Result, error) {
	m.knnCalls++
	m.lastKNNK = k
	return m.knnResults, m.knnErr
}

func (m *mockSearch) Keyword(
	_ context.Context, _ string, _ int, _ filter.Expression, sortRecent bool,
) ([]result.Result, error) {
	m.kwCalls++
	m.lastSortRecent = sortRecent
	return m.kwResults, m.kwErr
}

type mockEngine struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockEngine) Generate(_ context.Context, _ string) ([]float32, error) {
	m.calls++
	return m.vec, m.err
}

func newTestService(repo *mockRepo, search *mockSearch, engine *mockEngine) *Service {
	return New(repo, search, engine, nopPacer{}, Config{}, zap.NewNop())
}

type nopPacer struct{}

func (nopPacer) Wait(context.Context) error { return nil }

// --- Ingestion ---

func TestStore_PersistsDocumentWithVector(t *testing.T) {
	repo := newMockRepo()
	engine := &mockEngine{vec: []float32{0.1, 0.2}}
	svc := newTestService(repo, &mockSearch{}, engine)

	doc, err := svc.Store(context.Background(), "How to use VLOOKUP in Excel.", domdoc.Metadata{Source: "manual"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.inserted))
	}
	if len(doc.Vector()) != 2 {
		t.Errorf("expected vector set on document")
	}
	if doc.TokenCount() != len(doc.Content())/4 {
		t.Errorf("token count %d does not match chars/4", doc.TokenCount())
	}
	if doc.Meta().Source != "manual" {
		t.Errorf("metadata lost: %+v", doc.Meta())
	}
}

func TestStore_TooShortContentRejectedWithoutPersist(t *testing.T) {
	repo := newMockRepo()
	engine := &mockEngine{vec: []float32{1}}
	svc := newTestService(repo, &mockSearch{}, engine)

	_, err := svc.Store(context.Background(), "四文字", domdoc.Metadata{})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Error("nothing must be persisted for invalid content")
	}
	if engine.calls != 0 {
		t.Error("embedding must not run for invalid content")
	}
}

func TestStore_EmbeddingFailureDropsItem(t *testing.T) {
	repo := newMockRepo()
	engine := &mockEngine{err: domain.NewProviderError("openai", errors.New("quota"))}
	svc := newTestService(repo, &mockSearch{}, engine)

	_, err := svc.Store(context.Background(), "valid content here", domdoc.Metadata{})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Error("failed embedding must not persist a document")
	}
}

// --- Search ---

func TestSemanticSearch_ThresholdRespected(t *testing.T) {
	search := &mockSearch{knnResults: []result.Result{
		result.New("a", 0.95, "high", nil, mode.Semantic),
		result.New("b", 0.71, "mid", nil, mode.Semantic),
		result.New("c", 0.40, "low", nil, mode.Semantic),
	}}
	svc := newTestService(newMockRepo(), search, &mockEngine{vec: []float32{1}})

	hits, err := svc.SemanticSearch(context.Background(), "query", 5, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above threshold, got %d", len(hits))
	}
	for _, h := range hits {
		if h.Score() < 0.7 {
			t.Errorf("hit %s below threshold: %g", h.ID(), h.Score())
		}
	}
}

func TestSemanticSearch_FetchesWidenedCandidateSet(t *testing.T) {
	search := &mockSearch{}
	svc := newTestService(newMockRepo(), search, &mockEngine{vec: []float32{1}})

	if _, err := svc.SemanticSearch(context.Background(), "q", 5, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if search.lastKNNK != 10 {
		t.Errorf("expected k=10 candidates for limit 5, got %d", search.lastKNNK)
	}
}

func TestKeywordSearch_OrdersByRecency(t *testing.T) {
	search := &mockSearch{kwResults: []result.Result{
		result.New("new", 0, "newer", nil, mode.Keyword),
	}}
	svc := newTestService(newMockRepo(), search, &mockEngine{vec: []float32{1}})

	hits, err := svc.KeywordSearch(context.Background(), "vlookup", 5, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !search.lastSortRecent {
		t.Error("keyword search must request recency ordering")
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestHybridSearch_OverlapRankedFirst(t *testing.T) {
	// 3 docs only semantic, 2 only keyword, 1 in both.
	search := &mockSearch{
		knnResults: []result.Result{
			result.New("both", 0.80, "both legs", nil, mode.Semantic),
			result.New("s1", 0.90, "sem only", nil, mode.Semantic),
			result.New("s2", 0.85, "sem only", nil, mode.Semantic),
			result.New("s3", 0.80, "sem only", nil, mode.Semantic),
		},
		kwResults: []result.Result{
			result.New("both", 0, "both legs", nil, mode.Keyword),
			result.New("k1", 0, "kw only", nil, mode.Keyword),
			result.New("k2", 0, "kw only", nil, mode.Keyword),
		},
	}
	svc := newTestService(newMockRepo(), search, &mockEngine{vec: []float32{1}})

	hits, err := svc.HybridSearch(context.Background(), "vlookup error", 5, filter.Expression{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hits) > 5 {
		t.Fatalf("expected at most 5 hits, got %d", len(hits))
	}
	if hits[0].ID() != "both" {
		t.Errorf("overlapping document must rank first, got %s", hits[0].ID())
	}
	if hits[0].SearchType() != mode.Hybrid {
		t.Errorf("overlapping document must be tagged hybrid, got %s", hits[0].SearchType())
	}
}

func TestHybridSearch_SemanticLegFailureIsError(t *testing.T) {
	search := &mockSearch{knnErr: errors.New("index gone")}
	svc := newTestService(newMockRepo(), search, &mockEngine{vec: []float32{1}})

	_, err := svc.HybridSearch(context.Background(), "q", 5, filter.Expression{})
	if err == nil {
		t.Fatal("search failure must not be masked as empty result")
	}
}

// --- Maintenance ---

func TestDelete_NotFound(t *testing.T) {
	repo := newMockRepo()
	repo.deleteErr["missing"] = domain.ErrDocumentNotFound
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestCleanup_RemovesOnlyStale(t *testing.T) {
	repo := newMockRepo()
	repo.staleIDs = []string{"old1", "old2"}
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	removed, err := svc.Cleanup(context.Background(), 6*30*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if len(repo.deleted) != 2 {
		t.Errorf("expected 2 deletes, got %d", len(repo.deleted))
	}
}

func TestCleanup_ToleratesConcurrentDelete(t *testing.T) {
	repo := newMockRepo()
	repo.staleIDs = []string{"old1", "gone", "old2"}
	repo.deleteErr["gone"] = domain.ErrDocumentNotFound
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	removed, err := svc.Cleanup(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed (one raced away), got %d", removed)
	}
}

func TestStatistics_Aggregates(t *testing.T) {
	now := time.Now().UTC()
	repo := newMockRepo()
	repo.summaries = []domdoc.Summary{
		{ID: "a", TokenCount: 100, CreatedAt: now.Add(-time.Hour), Source: "manual", Language: "en"},
		{ID: "b", TokenCount: 200, CreatedAt: now.Add(-10 * 24 * time.Hour), Source: "forum", Language: "ja"},
		{ID: "c", TokenCount: 300, CreatedAt: now.Add(-time.Minute), Source: "manual", Language: "en"},
	}
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	stats, err := svc.Statistics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalDocuments != 3 {
		t.Errorf("total: got %d", stats.TotalDocuments)
	}
	if stats.TotalTokens != 600 {
		t.Errorf("tokens: got %d", stats.TotalTokens)
	}
	if stats.AverageTokens != 200 {
		t.Errorf("average: got %g", stats.AverageTokens)
	}
	if stats.RecentDocuments != 2 {
		t.Errorf("recent: got %d", stats.RecentDocuments)
	}
	if len(stats.Sources) != 2 || len(stats.Languages) != 2 {
		t.Errorf("distinct values: sources=%v languages=%v", stats.Sources, stats.Languages)
	}
}

func TestReindex_DelegatesToRepository(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	if err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.rebuilds != 1 {
		t.Errorf("expected 1 rebuild, got %d", repo.rebuilds)
	}
}

func TestReindex_Error(t *testing.T) {
	repo := newMockRepo()
	repo.rebuildErr = errors.New("index busy")
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	if err := svc.Reindex(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestResolveDuplicates_KeepsNewest(t *testing.T) {
	now := time.Now().UTC()
	older := domdoc.Reconstruct("old", "duplicate body", domdoc.Metadata{}, nil, 3, now.Add(-time.Hour))
	newer := domdoc.Reconstruct("new", "duplicate body", domdoc.Metadata{}, nil, 3, now)
	unique := domdoc.Reconstruct("uniq", "different body", domdoc.Metadata{}, nil, 3, now)

	repo := newMockRepo()
	repo.pages = [][]domdoc.Document{{older, newer, unique}}
	svc := newTestService(repo, &mockSearch{}, &mockEngine{})

	removed, err := svc.ResolveDuplicates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "old" {
		t.Errorf("expected older duplicate deleted, got %v", repo.deleted)
	}
}
