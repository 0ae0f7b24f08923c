package httpapi

import (
	"time"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
	"github.com/kailas-cloud/ragdex/internal/usecase/knowledge"
	"github.com/kailas-cloud/ragdex/internal/usecase/rag"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type metadataDTO struct {
	Source      string            `json:"source,omitempty"`
	Language    string            `json:"language,omitempty"`
	Category    string            `json:"category,omitempty"`
	Difficulty  string            `json:"difficulty,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	IndexedAt   string            `json:"indexed_at,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func (m *metadataDTO) toDomain() domdoc.Metadata {
	if m == nil {
		return domdoc.Metadata{}
	}
	return domdoc.Metadata{
		Source:      m.Source,
		Language:    m.Language,
		Category:    m.Category,
		Difficulty:  m.Difficulty,
		ContentType: m.ContentType,
		IndexedAt:   m.IndexedAt,
		Extra:       m.Extra,
	}
}

func metadataFromDomain(m domdoc.Metadata) metadataDTO {
	return metadataDTO{
		Source:      m.Source,
		Language:    m.Language,
		Category:    m.Category,
		Difficulty:  m.Difficulty,
		ContentType: m.ContentType,
		IndexedAt:   m.IndexedAt,
		Extra:       m.Extra,
	}
}

type storeDocumentRequest struct {
	Content  string       `json:"content"`
	Metadata *metadataDTO `json:"metadata,omitempty"`
}

type documentResponse struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	Metadata   metadataDTO `json:"metadata"`
	TokenCount int         `json:"token_count"`
	CreatedAt  time.Time   `json:"created_at"`
}

func documentToDTO(doc *domdoc.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID(),
		Content:    doc.Content(),
		Metadata:   metadataFromDomain(doc.Meta()),
		TokenCount: doc.TokenCount(),
		CreatedAt:  doc.CreatedAt(),
	}
}

type batchStoreRequest struct {
	Documents []storeDocumentRequest `json:"documents"`
	FailFast  bool                   `json:"fail_fast,omitempty"`
}

func (r *batchStoreRequest) toItems() []knowledge.Item {
	items := make([]knowledge.Item, len(r.Documents))
	for i, d := range r.Documents {
		items[i] = knowledge.Item{Content: d.Content, Meta: d.Metadata.toDomain()}
	}
	return items
}

type batchResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchResponse struct {
	Items     []batchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

func batchReportToDTO(report dombatch.Report) batchResponse {
	items := make([]batchResultItem, len(report.Results))
	for i, res := range report.Results {
		items[i] = batchResultItem{
			ID:     res.ID(),
			Status: string(res.Status()),
		}
		if res.Err() != nil {
			items[i].Error = &errorResponse{
				Code:    errorCode(res.Err()),
				Message: safeDomainMessage(res.Err()),
			}
		}
	}
	return batchResponse{
		Items:     items,
		Succeeded: report.Succeeded(),
		Failed:    len(report.Failed()),
	}
}

type searchRequest struct {
	Query     string            `json:"query"`
	Mode      string            `json:"mode,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Threshold float64           `json:"threshold,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
}

type searchResultItem struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Content    string            `json:"content"`
	Tags       map[string]string `json:"tags,omitempty"`
	SearchType string            `json:"search_type"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

func searchResultsToDTO(hits []result.Result) searchResponse {
	items := make([]searchResultItem, len(hits))
	for i := range hits {
		h := &hits[i]
		items[i] = searchResultItem{
			ID:         h.ID(),
			Score:      h.Score(),
			Content:    h.Content(),
			Tags:       h.Tags(),
			SearchType: string(h.SearchType()),
		}
	}
	return searchResponse{Items: items, Total: len(items)}
}

type enhanceRequest struct {
	Query   string `json:"query"`
	Context string `json:"context,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

type enhanceResponse struct {
	OriginalQuery   string             `json:"original_query"`
	EnhancedContext string             `json:"enhanced_context"`
	Documents       []searchResultItem `json:"relevant_documents"`
	SearchType      string             `json:"search_type"`
	DocumentsFound  int                `json:"documents_found"`
}

func enhancementToDTO(enh rag.Enhancement) enhanceResponse {
	return enhanceResponse{
		OriginalQuery:   enh.OriginalQuery,
		EnhancedContext: enh.EnhancedContext,
		Documents:       searchResultsToDTO(enh.Documents).Items,
		SearchType:      string(enh.SearchType),
		DocumentsFound:  enh.DocumentsFound,
	}
}

type promptRequest struct {
	Query       string `json:"query"`
	Context     string `json:"context,omitempty"`
	Attachments int    `json:"attachments,omitempty"`
	Tier        string `json:"tier,omitempty"`
}

type promptResponse struct {
	System          string `json:"system_prompt"`
	User            string `json:"user_prompt"`
	EstimatedTokens int    `json:"estimated_tokens"`
	DocumentsFound  int    `json:"documents_found"`
}

type storeStatsDTO struct {
	TotalDocuments  int      `json:"total_documents"`
	TotalTokens     int      `json:"total_tokens"`
	AverageTokens   float64  `json:"average_tokens"`
	RecentDocuments int      `json:"recent_documents"`
	Sources         []string `json:"sources"`
	Languages       []string `json:"languages"`
}

type cacheStatsDTO struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

type statsResponse struct {
	Store storeStatsDTO `json:"store"`
	Cache cacheStatsDTO `json:"embedding_cache"`
}

func statsToDTO(report rag.StatsReport) statsResponse {
	return statsResponse{
		Store: storeStatsDTO{
			TotalDocuments:  report.Store.TotalDocuments,
			TotalTokens:     report.Store.TotalTokens,
			AverageTokens:   report.Store.AverageTokens,
			RecentDocuments: report.Store.RecentDocuments,
			Sources:         report.Store.Sources,
			Languages:       report.Store.Languages,
		},
		Cache: cacheStatsDTO{
			Size:      report.Cache.Size,
			Capacity:  report.Cache.Capacity,
			Hits:      report.Cache.Hits,
			Misses:    report.Cache.Misses,
			Evictions: report.Cache.Evictions,
		},
	}
}

type optimizeResponse struct {
	Before            storeStatsDTO `json:"before"`
	After             storeStatsDTO `json:"after"`
	RemovedStale      int           `json:"removed_stale"`
	RemovedDuplicates int           `json:"removed_duplicates"`
}

func optimizeToDTO(report rag.OptimizeReport) optimizeResponse {
	return optimizeResponse{
		Before:            statsToDTO(rag.StatsReport{Store: report.Before}).Store,
		After:             statsToDTO(rag.StatsReport{Store: report.After}).Store,
		RemovedStale:      report.RemovedStale,
		RemovedDuplicates: report.RemovedDuplicates,
	}
}
