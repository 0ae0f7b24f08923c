// Package httpapi exposes the knowledge and RAG services over a chi router.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
	"github.com/kailas-cloud/ragdex/internal/domain/search/filter"
	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	knowledgeuc "github.com/kailas-cloud/ragdex/internal/usecase/knowledge"
	raguc "github.com/kailas-cloud/ragdex/internal/usecase/rag"
)

// maxBatchSize bounds one batch ingestion request.
const maxBatchSize = 100

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// HealthChecker reports readiness of the server's dependencies.
// Keys are dependency names, values "ok" or an error description.
type HealthChecker interface {
	Check(ctx context.Context) map[string]string
}

// Server is the HTTP API over the knowledge store and the RAG orchestrator.
type Server struct {
	knowledge     *knowledgeuc.Service
	rag           *raguc.Service
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	knowledge *knowledgeuc.Service, rag *raguc.Service,
	health HealthChecker, logger *zap.Logger,
) *Server {
	s := &Server{
		knowledge: knowledge,
		rag:       rag,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, "document_not_found"),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, "embedding_contract_violation"),
		sentinelHandler(domain.ErrStore, http.StatusServiceUnavailable, "store_error"),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.storeDocument)
		r.Post("/documents/batch", s.batchStoreDocuments)
		r.Get("/documents/{id}", s.getDocument)
		r.Delete("/documents/{id}", s.deleteDocument)

		r.Post("/search", s.searchDocuments)

		r.Post("/rag/enhance", s.enhanceQuery)
		r.Post("/rag/prompt", s.buildPrompt)
		r.Post("/rag/knowledge", s.indexKnowledge)
		r.Post("/rag/knowledge/batch", s.batchIndexKnowledge)
		r.Post("/rag/knowledge/search", s.searchKnowledge)

		r.Get("/stats", s.getStatistics)
		r.Post("/optimize", s.optimize)

		r.Post("/admin/reindex", s.reindex)
	})

	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// storeDocument handles POST /api/v1/documents.
func (s *Server) storeDocument(w http.ResponseWriter, r *http.Request) {
	var req storeDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.knowledge.Store(ctx, req.Content, req.Metadata.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, documentToDTO(&doc))
}

// batchStoreDocuments handles POST /api/v1/documents/batch.
func (s *Server) batchStoreDocuments(w http.ResponseWriter, r *http.Request) {
	var req batchStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"documents count must be between 1 and "+strconv.Itoa(maxBatchSize))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	_, report, err := s.knowledge.BatchStore(ctx, req.toItems(), req.FailFast)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, batchReportToDTO(report))
}

// getDocument handles GET /api/v1/documents/{id}.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.knowledge.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToDTO(&doc))
}

// deleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// searchDocuments handles POST /api/v1/search.
func (s *Server) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	m := mode.Default
	if req.Mode != "" {
		m = mode.Mode(req.Mode)
		if !m.IsValid() {
			writeError(w, http.StatusBadRequest, "validation_failed", "unsupported search mode: "+req.Mode)
			return
		}
	}

	filters := filter.FromTags(req.Filters)

	ctx, usage := domain.NewContextWithUsage(r.Context())

	var (
		hits []result.Result
		err  error
	)
	switch m {
	case mode.Semantic:
		hits, err = s.knowledge.SemanticSearch(ctx, req.Query, req.Limit, req.Threshold)
	case mode.Keyword:
		hits, err = s.knowledge.KeywordSearch(ctx, req.Query, req.Limit, filters)
	default:
		hits, err = s.knowledge.HybridSearch(ctx, req.Query, req.Limit, filters)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResultsToDTO(hits))
}

// enhanceQuery handles POST /api/v1/rag/enhance.
func (s *Server) enhanceQuery(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	enh, err := s.rag.Enhance(ctx, req.Query, req.Context, req.Limit, mode.Mode(req.Mode))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, enhancementToDTO(enh))
}

// buildPrompt handles POST /api/v1/rag/prompt.
func (s *Server) buildPrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	prompt, err := s.rag.BuildPrompt(ctx, req.Query, req.Context, req.Attachments, raguc.Tier(req.Tier))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, promptResponse{
		System:          prompt.System,
		User:            prompt.User,
		EstimatedTokens: prompt.EstimatedTokens,
		DocumentsFound:  prompt.DocumentsFound,
	})
}

// indexKnowledge handles POST /api/v1/rag/knowledge.
func (s *Server) indexKnowledge(w http.ResponseWriter, r *http.Request) {
	var req storeDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	doc, err := s.rag.IndexKnowledge(ctx, req.Content, req.Metadata.toDomain())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, documentToDTO(&doc))
}

// batchIndexKnowledge handles POST /api/v1/rag/knowledge/batch.
func (s *Server) batchIndexKnowledge(w http.ResponseWriter, r *http.Request) {
	var req batchStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > maxBatchSize {
		writeError(w, http.StatusBadRequest, "validation_failed",
			"documents count must be between 1 and "+strconv.Itoa(maxBatchSize))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	_, report, err := s.rag.BatchIndexKnowledge(ctx, req.toItems(), req.FailFast)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, batchReportToDTO(report))
}

// searchKnowledge handles POST /api/v1/rag/knowledge/search.
func (s *Server) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	hits, err := s.rag.SearchKnowledge(ctx, req.Query, filter.FromTags(req.Filters))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, searchResultsToDTO(hits))
}

// getStatistics handles GET /api/v1/stats.
func (s *Server) getStatistics(w http.ResponseWriter, r *http.Request) {
	report, err := s.rag.Statistics(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsToDTO(report))
}

// optimize handles POST /api/v1/optimize.
func (s *Server) optimize(w http.ResponseWriter, r *http.Request) {
	report, err := s.rag.Optimize(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, optimizeToDTO(report))
}

// reindex handles POST /api/v1/admin/reindex.
func (s *Server) reindex(w http.ResponseWriter, r *http.Request) {
	if err := s.knowledge.Reindex(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reindexing"})
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := s.health.Check(r.Context())

	status := "healthy"
	httpStatus := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrInvalidDocument,
		domain.ErrEmbeddingProvider,
		domain.ErrVectorDimMismatch,
		domain.ErrStore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return "document_not_found"
	case errors.Is(err, domain.ErrInvalidDocument):
		return "validation_failed"
	case errors.Is(err, domain.ErrEmbeddingProvider):
		return "embedding_provider_error"
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return "embedding_contract_violation"
	case errors.Is(err, domain.ErrStore):
		return "store_error"
	default:
		return "internal_error"
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
