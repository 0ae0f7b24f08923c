// Package knowledge implements the document store use cases: ingestion,
// semantic / keyword / hybrid search, statistics, and maintenance.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/ragdex/internal/domain"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Service defaults.
const (
	DefaultSearchLimit    = 5
	DefaultScoreThreshold = 0.7
	DefaultBatchSize      = 10
	DefaultCleanupAge     = 180 * 24 * time.Hour

	// recentWindow is the "created recently" horizon in statistics.
	recentWindow = 7 * 24 * time.Hour

	// candidateFactor widens search legs before threshold filtering and fusion.
	candidateFactor = 2

	// duplicateScanPage bounds one page of the duplicate sweep.
	duplicateScanPage = 200
)

// Config holds knowledge service settings.
type Config struct {
	DefaultLimit    int
	ScoreThreshold  float64
	BatchSize       int
	PacingThreshold int
	CleanupAge      time.Duration
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultSearchLimit
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = DefaultScoreThreshold
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PacingThreshold <= 0 {
		c.PacingThreshold = c.BatchSize
	}
	if c.CleanupAge <= 0 {
		c.CleanupAge = DefaultCleanupAge
	}
}

// Service is the knowledge document store.
type Service struct {
	repo   Repository
	search SearchRepository
	engine Engine
	pacer  Pacer
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a knowledge service.
func New(
	repo Repository, search SearchRepository, engine Engine,
	pacer Pacer, cfg Config, logger *zap.Logger,
) *Service {
	cfg.ApplyDefaults()
	return &Service{
		repo:   repo,
		search: search,
		engine: engine,
		pacer:  pacer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Store sanitizes, validates, vectorizes, and persists a knowledge document.
// Embedding happens before persistence; a failure in between drops the item.
func (s *Service) Store(
	ctx context.Context, content string, meta domdoc.Metadata,
) (domdoc.Document, error) {
	doc, err := s.buildDocument(ctx, content, meta)
	if err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return domdoc.Document{}, err
	}

	if err := s.repo.Insert(ctx, &doc); err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return domdoc.Document{}, fmt.Errorf("persist document: %w", err)
	}

	metrics.DocumentsIngestedTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("Stored knowledge document",
		zap.String("id", doc.ID()),
		zap.Int("tokens", doc.TokenCount()),
	)
	return doc, nil
}

// buildDocument runs the pre-persistence half of ingestion.
func (s *Service) buildDocument(
	ctx context.Context, content string, meta domdoc.Metadata,
) (domdoc.Document, error) {
	sanitized := sanitizeContent(content, domdoc.MaxContentLen)

	doc, err := domdoc.New(uuid.NewString(), sanitized, meta, s.now())
	if err != nil {
		return domdoc.Document{}, err
	}

	vec, err := s.engine.Generate(ctx, doc.Content())
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("vectorize content: %w", err)
	}
	doc.SetVector(vec)

	return doc, nil
}

// Get loads a document by ID.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes a document. Missing ID is domain.ErrDocumentNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// SemanticSearch embeds the query and returns nearest documents with
// similarity >= threshold, ordered by similarity descending.
// threshold <= 0 disables the cutoff.
func (s *Service) SemanticSearch(
	ctx context.Context, query string, limit int, threshold float64,
) (_ []result.Result, err error) {
	defer s.observeSearch(mode.Semantic, s.now())(&err)

	limit = s.normalizeLimit(limit)

	hits, err := s.semanticCandidates(ctx, query, limit*candidateFactor, filter.Expression{})
	if err != nil {
		return nil, err
	}

	if threshold > 0 {
		filtered := hits[:0]
		for _, h := range hits {
			if h.Score() >= threshold {
				filtered = append(filtered, h)
			}
		}
		hits = filtered
	}

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// KeywordSearch runs full-text matching with metadata filters, most recent
// first. Recency is the primary order, not a tie-break: the index backend
// returns no relevance scores when sorting by a field, so hits within the
// match set cannot be ranked by match quality.
func (s *Service) KeywordSearch(
	ctx context.Context, query string, limit int, filters filter.Expression,
) (_ []result.Result, err error) {
	defer s.observeSearch(mode.Keyword, s.now())(&err)

	limit = s.normalizeLimit(limit)

	hits, err := s.search.Keyword(ctx, query, limit, filters, true)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return hits, nil
}

// HybridSearch runs semantic and keyword legs concurrently over 2x limit
// candidates each and fuses them into one ranked list.
func (s *Service) HybridSearch(
	ctx context.Context, query string, limit int, filters filter.Expression,
) (_ []result.Result, err error) {
	defer s.observeSearch(mode.Hybrid, s.now())(&err)

	limit = s.normalizeLimit(limit)
	k := limit * candidateFactor

	var semanticHits, keywordHits []result.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var legErr error
		semanticHits, legErr = s.semanticCandidates(gctx, query, k, filters)
		return legErr
	})
	g.Go(func() error {
		hits, legErr := s.search.Keyword(gctx, query, k, filters, false)
		if legErr != nil {
			return fmt.Errorf("keyword leg: %w", legErr)
		}
		keywordHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fuse(semanticHits, keywordHits, limit), nil
}

// semanticCandidates embeds the query and runs the KNN leg.
func (s *Service) semanticCandidates(
	ctx context.Context, query string, k int, filters filter.Expression,
) ([]result.Result, error) {
	vec, err := s.engine.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.search.KNN(ctx, vec, k, filters)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	return hits, nil
}

// Stats is the aggregate corpus report.
type Stats struct {
	TotalDocuments  int
	TotalTokens     int
	AverageTokens   float64
	RecentDocuments int
	Sources         []string
	Languages       []string
}

// Statistics computes aggregate corpus statistics from a full summary scan.
func (s *Service) Statistics(ctx context.Context) (Stats, error) {
	summaries, err := s.repo.Summaries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("scan summaries: %w", err)
	}

	stats := Stats{TotalDocuments: len(summaries)}
	recentCutoff := s.now().Add(-recentWindow)
	sources := make(map[string]bool)
	languages := make(map[string]bool)

	for _, sum := range summaries {
		stats.TotalTokens += sum.TokenCount
		if sum.CreatedAt.After(recentCutoff) {
			stats.RecentDocuments++
		}
		if sum.Source != "" {
			sources[sum.Source] = true
		}
		if sum.Language != "" {
			languages[sum.Language] = true
		}
	}

	if stats.TotalDocuments > 0 {
		stats.AverageTokens = float64(stats.TotalTokens) / float64(stats.TotalDocuments)
	}
	stats.Sources = sortedKeys(sources)
	stats.Languages = sortedKeys(languages)

	return stats, nil
}

// Cleanup hard-deletes documents older than age and returns the count
// removed. age <= 0 uses the configured default.
func (s *Service) Cleanup(ctx context.Context, age time.Duration) (int, error) {
	if age <= 0 {
		age = s.cfg.CleanupAge
	}
	cutoff := s.now().Add(-age)

	ids, err := s.repo.IDsOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("scan stale documents: %w", err)
	}

	removed := 0
	for _, id := range ids {
		if err := s.repo.Delete(ctx, id); err != nil {
			// Гонка с другим удалением, не ошибка.
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue
			}
			return removed, fmt.Errorf("delete stale document %s: %w", id, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed stale documents",
			zap.Int("count", removed),
			zap.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// ResolveDuplicates removes exact-content duplicates, keeping the newest
// document of each group. Duplicate identity is the SHA-256 of content.
func (s *Service) ResolveDuplicates(ctx context.Context) (int, error) {
	newest := make(map[string]domdoc.Document)
	var losers []string

	for offset := 0; ; offset += duplicateScanPage {
		docs, err := s.repo.Page(ctx, offset, duplicateScanPage)
		if err != nil {
			return 0, fmt.Errorf("scan documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			h := contentHash(doc.Content())
			prev, seen := newest[h]
			switch {
			case !seen:
				newest[h] = doc
			case doc.CreatedAt().After(prev.CreatedAt()):
				losers = append(losers, prev.ID())
				newest[h] = doc
			default:
				losers = append(losers, doc.ID())
			}
		}

		if len(docs) < duplicateScanPage {
			break
		}
	}

	removed := 0
	for _, id := range losers {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				continue
			}
			return removed, fmt.Errorf("delete duplicate %s: %w", id, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed duplicate documents", zap.Int("count", removed))
	}
	return removed, nil
}

// Reindex drops and recreates the search index. Stored rows re-enter the
// index as the engine rescans the key prefix in the background.
func (s *Service) Reindex(ctx context.Context) error {
	if err := s.repo.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.logger.Info("Rebuilt knowledge index")
	return nil
}

func (s *Service) normalizeLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	return limit
}

// observeSearch records search metrics. "no matches" counts as success;
// a failed search is never reported as an empty result.
func (s *Service) observeSearch(m mode.Mode, start time.Time) func(*error) {
	return func(err *error) {
		status := "success"
		if *err != nil {
			status = "error"
		}
		metrics.SearchRequestsTotal.WithLabelValues(string(m), status).Inc()
		metrics.SearchDuration.WithLabelValues(string(m)).Observe(s.now().Sub(start).Seconds())
	}
}

// sanitizeContent trims surrounding whitespace and truncates to maxLen bytes
// at a rune boundary.
func sanitizeContent(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return strings.TrimSpace(content[:cut])
}

func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
