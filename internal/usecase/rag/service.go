// Package rag is the retrieval orchestrator: it builds RAG-enhanced context
// and tiered prompts, stamps and ingests Excel knowledge, and runs corpus
// maintenance. It holds no state beyond its two collaborators.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	"github.com/kailas-cloud/ragdex/internal/usecase/knowledge"
)

// previewLen bounds the per-hit content preview in the context block, in runes.
const previewLen = 200

// Config holds orchestrator settings.
type Config struct {
	DefaultLimit   int
	ScoreThreshold float64
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = knowledge.DefaultSearchLimit
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = knowledge.DefaultScoreThreshold
	}
}

// Service is the retrieval orchestrator.
type Service struct {
	store  Store
	cache  CacheStatsProvider
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates an orchestrator service.
func New(store Store, cache CacheStatsProvider, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	return &Service{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Enhancement is the result of RAG query enhancement.
type Enhancement struct {
	OriginalQuery   string
	EnhancedContext string
	Documents       []result.Result
	SearchType      mode.Mode
	DocumentsFound  int
}

// Enhance retrieves knowledge relevant to the query plus caller context and
// formats it into a readable context block. A failed search is an error;
// zero matches is a valid enhancement with an empty context block.
func (s *Service) Enhance(
	ctx context.Context, query, callerContext string, limit int, m mode.Mode,
) (Enhancement, error) {
	if !m.IsValid() {
		m = mode.Default
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	searchText := query
	if callerContext != "" {
		searchText = query + " " + callerContext
	}

	var (
		hits []result.Result
		err  error
	)
	switch m {
	case mode.Semantic:
		hits, err = s.store.SemanticSearch(ctx, searchText, limit, s.cfg.ScoreThreshold)
	case mode.Keyword:
		hits, err = s.store.KeywordSearch(ctx, searchText, limit, filter.Expression{})
	default:
		hits, err = s.store.HybridSearch(ctx, searchText, limit, filter.Expression{})
	}
	if err != nil {
		return Enhancement{}, fmt.Errorf("search knowledge: %w", err)
	}

	return Enhancement{
		OriginalQuery:   query,
		EnhancedContext: formatContextBlock(hits),
		Documents:       hits,
		SearchType:      m,
		DocumentsFound:  len(hits),
	}, nil
}

// BuildPrompt assembles a tiered system/user prompt pair around the RAG
// enhancement for the query.
func (s *Service) BuildPrompt(
	ctx context.Context, query, callerContext string, attachments int, tier Tier,
) (Prompt, error) {
	enh, err := s.Enhance(ctx, query, callerContext, s.cfg.DefaultLimit, mode.Default)
	if err != nil {
		return Prompt{}, err
	}

	if !tier.IsValid() {
		tier = DefaultTier
	}

	system := systemPrompt(tier)
	user := buildUserPrompt(enh.EnhancedContext, callerContext, query, attachments)

	return Prompt{
		System:          system,
		User:            user,
		EstimatedTokens: estimatePromptTokens(system, user),
		DocumentsFound:  enh.DocumentsFound,
	}, nil
}

// IndexKnowledge stamps standard metadata and stores one knowledge document.
func (s *Service) IndexKnowledge(
	ctx context.Context, content string, meta domdoc.Metadata,
) (domdoc.Document, error) {
	s.stampMetadata(&meta, content)
	return s.store.Store(ctx, content, meta)
}

// BatchIndexKnowledge stamps standard metadata on every item and delegates to
// batch ingestion.
func (s *Service) BatchIndexKnowledge(
	ctx context.Context, items []knowledge.Item, failFast bool,
) ([]domdoc.Document, dombatch.Report, error) {
	stamped := make([]knowledge.Item, len(items))
	for i, item := range items {
		s.stampMetadata(&item.Meta, item.Content)
		stamped[i] = item
	}
	return s.store.BatchStore(ctx, stamped, failFast)
}

// SearchKnowledge is a convenience hybrid search scoped to Excel knowledge.
func (s *Service) SearchKnowledge(
	ctx context.Context, query string, filters filter.Expression,
) ([]result.Result, error) {
	scoped := filters.WithMatch("content_type", domdoc.ContentTypeExcel)
	return s.store.HybridSearch(ctx, query, s.cfg.DefaultLimit, scoped)
}

// StatsReport combines corpus statistics with embedding cache counters.
type StatsReport struct {
	Store knowledge.Stats
	Cache embedding.CacheStats
}

// Statistics returns the combined RAG statistics report.
func (s *Service) Statistics(ctx context.Context) (StatsReport, error) {
	stats, err := s.store.Statistics(ctx)
	if err != nil {
		return StatsReport{}, fmt.Errorf("store statistics: %w", err)
	}
	return StatsReport{Store: stats, Cache: s.cache.CacheStats()}, nil
}

// OptimizeReport is the before/after outcome of a maintenance pass.
type OptimizeReport struct {
	Before            knowledge.Stats
	After             knowledge.Stats
	RemovedStale      int
	RemovedDuplicates int
}

// Optimize runs age-based cleanup and duplicate resolution, bracketed by
// statistics snapshots.
func (s *Service) Optimize(ctx context.Context) (OptimizeReport, error) {
	before, err := s.store.Statistics(ctx)
	if err != nil {
		return OptimizeReport{}, fmt.Errorf("statistics before: %w", err)
	}

	stale, err := s.store.Cleanup(ctx, 0)
	if err != nil {
		return OptimizeReport{}, fmt.Errorf("cleanup: %w", err)
	}

	dups, err := s.store.ResolveDuplicates(ctx)
	if err != nil {
		return OptimizeReport{}, fmt.Errorf("resolve duplicates: %w", err)
	}

	after, err := s.store.Statistics(ctx)
	if err != nil {
		return OptimizeReport{}, fmt.Errorf("statistics after: %w", err)
	}

	s.logger.Info("Optimized knowledge corpus",
		zap.Int("removed_stale", stale),
		zap.Int("removed_duplicates", dups),
	)

	return OptimizeReport{
		Before:            before,
		After:             after,
		RemovedStale:      stale,
		RemovedDuplicates: dups,
	}, nil
}

// stampMetadata fills the standard ingestion tags in place. Caller-supplied
// values win over heuristics.
func (s *Service) stampMetadata(meta *domdoc.Metadata, content string) {
	meta.IndexedAt = s.now().UTC().Format(time.RFC3339)
	meta.ContentType = domdoc.ContentTypeExcel
	if meta.Category == "" {
		meta.Category = domdoc.CategoryExcel
	}
	if meta.Language == "" {
		meta.Language = DetectLanguage(content)
	}
}

// formatContextBlock renders hits into a numbered, human-readable block.
func formatContextBlock(hits []result.Result) string {
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Reference knowledge:\n")

	for i := range hits {
		h := &hits[i]

		fmt.Fprintf(&b, "\n[%d] relevance=%.2f", i+1, h.Score())
		if src := h.Tags()["source"]; src != "" {
			fmt.Fprintf(&b, " source=%s", src)
		}
		if funcs := DetectExcelFunctions(h.Content()); len(funcs) > 0 {
			fmt.Fprintf(&b, " functions=%s", strings.Join(funcs, ","))
		}
		b.WriteString("\n")
		b.WriteString(truncatePreview(h.Content(), previewLen))
		b.WriteString("\n")
	}

	return b.String()
}

// truncatePreview cuts text to maxRunes runes with an ellipsis.
func truncatePreview(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
