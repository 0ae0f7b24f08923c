package knowledge

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	domdoc "github.com/kailas-cloud/ragdex/internal/domain/document"
)

// Item is one unit of batch ingestion input.
type Item struct {
	Content string
	Meta    domdoc.Metadata
}

// BatchStore ingests items in input order, in groups of BatchSize, with a
// pacing delay between groups above PacingThreshold. The default policy is
// skip-and-continue: a failed item is recorded in the report and processing
// moves on. failFast aborts on the first item failure instead.
//
// The returned error is non-nil only for whole-batch aborts (failFast hit,
// context cancelled, pacer failure); per-item outcomes live in the report.
func (s *Service) BatchStore(
	ctx context.Context, items []Item, failFast bool,
) ([]domdoc.Document, dombatch.Report, error) {
	docs := make([]domdoc.Document, 0, len(items))
	report := dombatch.Report{Results: make([]dombatch.Result, 0, len(items))}
	paced := len(items) > s.cfg.PacingThreshold

	for start := 0; start < len(items); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(items))

		for i := start; i < end; i++ {
			doc, err := s.Store(ctx, items[i].Content, items[i].Meta)
			if err != nil {
				// Failed items have no document ID yet, report by position.
				itemRef := "item_" + strconv.Itoa(i)
				report.Results = append(report.Results, dombatch.NewError(itemRef, err))
				if failFast {
					return docs, report, fmt.Errorf("batch item %d: %w", i, err)
				}
				s.logger.Warn("Skipped failed batch item",
					zap.Int("index", i),
					zap.Error(err),
				)
				continue
			}
			docs = append(docs, doc)
			report.Results = append(report.Results, dombatch.NewOK(doc.ID()))
		}

		if paced && end < len(items) {
			if err := s.pacer.Wait(ctx); err != nil {
				return docs, report, fmt.Errorf("pacing wait: %w", err)
			}
		}
	}

	return docs, report, nil
}
