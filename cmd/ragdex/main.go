package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/config"
	"github.com/kailas-cloud/ragdex/internal/db"
	dbRedis "github.com/kailas-cloud/ragdex/internal/db/redis"
	"github.com/kailas-cloud/ragdex/internal/domain"
	logpkg "github.com/kailas-cloud/ragdex/internal/logger"
	"github.com/kailas-cloud/ragdex/internal/metrics"
	documentrepo "github.com/kailas-cloud/ragdex/internal/repository/document"
	"github.com/kailas-cloud/ragdex/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/ragdex/internal/repository/search"
	"github.com/kailas-cloud/ragdex/internal/transport/httpapi"
	openaiEmb "github.com/kailas-cloud/ragdex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/ragdex/internal/usecase/embedding"
	knowledgeuc "github.com/kailas-cloud/ragdex/internal/usecase/knowledge"
	raguc "github.com/kailas-cloud/ragdex/internal/usecase/rag"
	"github.com/kailas-cloud/ragdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragdex server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()
	metrics.RegisterHTTP()

	// Embedder chain: OpenAI provider -> shared store-backed cache.
	// The engine's in-memory bounded cache sits above this chain.
	provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	cached := embcache.New(provider, store, logger)

	engine := embeddinguc.New(
		cached,
		embeddinguc.NewPacer(time.Duration(cfg.Engine.PacingIntervalMS)*time.Millisecond),
		embeddinguc.Config{
			Dimensions:      cfg.Embedding.Dimensions,
			MaxInputLen:     cfg.Engine.MaxInputLen,
			MaxChunkSize:    cfg.Engine.MaxChunkSize,
			BatchSize:       cfg.Engine.BatchSize,
			PacingThreshold: cfg.Engine.PacingThreshold,
			CacheCapacity:   cfg.Engine.CacheCapacity,
		},
		logger,
	)
	logger.Info("Embedding engine created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	docRepo := documentrepo.NewRepo(store, engine.Dimensions())
	if err := docRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure knowledge index", zap.Error(err))
	}
	searchRepo := searchrepo.NewRepo(store)

	knowledgeSvc := knowledgeuc.New(
		docRepo, searchRepo, engine,
		embeddinguc.NewPacer(time.Duration(cfg.Engine.PacingIntervalMS)*time.Millisecond),
		knowledgeuc.Config{
			DefaultLimit:    cfg.Knowledge.DefaultLimit,
			ScoreThreshold:  cfg.Knowledge.ScoreThreshold,
			BatchSize:       cfg.Knowledge.BatchSize,
			PacingThreshold: cfg.Knowledge.PacingThreshold,
			CleanupAge:      time.Duration(cfg.Knowledge.CleanupAgeDays) * 24 * time.Hour,
		},
		logger,
	)
	ragSvc := raguc.New(knowledgeSvc, engine, raguc.Config{
		DefaultLimit:   cfg.Knowledge.DefaultLimit,
		ScoreThreshold: cfg.Knowledge.ScoreThreshold,
	}, logger)

	server := httpapi.NewServer(knowledgeSvc, ragSvc, newHealthChecker(store, provider), logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// healthChecker reports database and embedding provider readiness.
type healthChecker struct {
	store    db.Pinger
	embedder domain.HealthChecker
}

func newHealthChecker(store db.Pinger, embedder domain.HealthChecker) *healthChecker {
	return &healthChecker{store: store, embedder: embedder}
}

func (h *healthChecker) Check(ctx context.Context) map[string]string {
	checks := map[string]string{"database": "ok", "embedding": "ok"}

	if err := h.store.Ping(ctx); err != nil {
		checks["database"] = err.Error()
	}
	if err := h.embedder.HealthCheck(ctx); err != nil {
		checks["embedding"] = err.Error()
	}

	return checks
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
