// Package embedding implements the embedding engine: preprocessing,
// chunking, chunk-vector combination, a bounded cache, and paced batch
// generation against an external provider.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/metrics"
)

// Engine defaults.
const (
	DefaultMaxInputLen     = 8000
	DefaultMaxChunkSize    = 1000
	DefaultBatchSize       = 20
	DefaultPacingThreshold = 10
	DefaultCacheCapacity   = 1000
	DefaultDimensions      = 1536
)

// Config holds engine settings.
type Config struct {
	// Dimensions is the provider's contractual vector dimension D.
	Dimensions int
	// MaxInputLen bounds the preprocessed text length in bytes.
	MaxInputLen int
	// MaxChunkSize bounds a single provider call input in bytes.
	MaxChunkSize int
	// BatchSize is the group size for batch generation.
	BatchSize int
	// PacingThreshold is the input count above which the pacer kicks in.
	PacingThreshold int
	// CacheCapacity bounds the embedding cache entry count.
	CacheCapacity int
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.MaxInputLen <= 0 {
		c.MaxInputLen = DefaultMaxInputLen
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PacingThreshold <= 0 {
		c.PacingThreshold = DefaultPacingThreshold
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
}

// Engine converts text to fixed-dimension vectors.
type Engine struct {
	provider domain.Embedder
	cache    *Cache
	pacer    Pacer
	cfg      Config
	logger   *zap.Logger
}

// New creates an embedding engine.
func New(provider domain.Embedder, pacer Pacer, cfg Config, logger *zap.Logger) *Engine {
	cfg.ApplyDefaults()
	if pacer == nil {
		pacer = NopPacer()
	}
	return &Engine{
		provider: provider,
		cache:    NewCache(cfg.CacheCapacity),
		pacer:    pacer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Dimensions returns the contractual vector dimension.
func (e *Engine) Dimensions() int { return e.cfg.Dimensions }

// CacheStats returns the embedding cache counters.
func (e *Engine) CacheStats() CacheStats { return e.cache.Stats() }

// Generate converts text to a vector. Identical input returns the cached
// vector without a provider call. Longer texts are chunked and the chunk
// vectors are combined by element-wise arithmetic mean — a cheap,
// order-independent approximation of whole-document meaning.
func (e *Engine) Generate(ctx context.Context, text string) ([]float32, error) {
	pre := Preprocess(text, e.cfg.MaxInputLen)
	if pre == "" {
		return nil, fmt.Errorf("text is empty after preprocessing: %w", domain.ErrInvalidDocument)
	}

	key := cacheKey(pre)
	if vec, ok := e.cache.Get(key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()

	chunks := SplitChunks(pre, e.cfg.MaxChunkSize)

	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		res, err := e.provider.Embed(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d/%d: %w", i+1, len(chunks), err)
		}
		// Contract check: a wrong dimension must abort, never be combined or stored.
		if len(res.Embedding) != e.cfg.Dimensions {
			return nil, domain.NewDimensionError(len(res.Embedding), e.cfg.Dimensions)
		}
		vectors[i] = res.Embedding
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	}

	vec := meanVector(vectors)
	e.cache.Put(key, vec)

	if len(chunks) > 1 {
		e.logger.Debug("Combined chunked embedding",
			zap.Int("chunks", len(chunks)),
			zap.Int("input_bytes", len(pre)),
		)
	}

	return vec, nil
}

// GenerateBatch vectorizes texts in input order, in groups of BatchSize.
// Above PacingThreshold inputs the pacer inserts a delay after each group —
// deliberate backpressure against provider rate limits, not a concurrency
// primitive. Aborts on the first failure; per-item isolation is the
// ingestion layer's policy.
func (e *Engine) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	paced := len(texts) > e.cfg.PacingThreshold

	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(texts))

		for i := start; i < end; i++ {
			vec, err := e.Generate(ctx, texts[i])
			if err != nil {
				return nil, fmt.Errorf("batch item %d: %w", i, err)
			}
			vectors[i] = vec
		}

		if paced && end < len(texts) {
			if err := e.pacer.Wait(ctx); err != nil {
				return nil, fmt.Errorf("pacing wait: %w", err)
			}
		}
	}

	return vectors, nil
}

// cacheKey hashes the preprocessed text into a stable cache key.
func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// meanVector combines chunk vectors by element-wise arithmetic mean.
// A single vector passes through unchanged.
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 1 {
		return vectors[0]
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			sum[i] += float64(x)
		}
	}

	out := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out
}
