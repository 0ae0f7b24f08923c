package knowledge

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/ragdex/internal/domain/batch"
	"github.com/kailas-cloud/ragdex/internal/domain/document"
)

type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

func batchItems(contents ...string) []Item {
	items := make([]Item, 0, len(contents))
	for _, c := range contents {
		items = append(items, Item{Content: c})
	}
	return items
}

func TestBatchStore_SkipAndContinue(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockSearch{}, &mockEngine{vec: []float32{1}})

	items := batchItems(
		"first valid document content",
		"bad", // below minimum length
		"third valid document content",
	)

	docs, report, err := svc.BatchStore(context.Background(), items, false)
	if err != nil {
		t.Fatalf("skip-and-continue must not return a batch error, got %v", err)
	}

	if len(docs) != 2 {
		t.Errorf("expected 2 stored documents, got %d", len(docs))
	}
	if report.Succeeded() != 2 {
		t.Errorf("expected 2 successes, got %d", report.Succeeded())
	}

	failed := report.Failed()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failed))
	}
	if failed[0].ID() != "item_1" {
		t.Errorf("failure must reference input position, got %s", failed[0].ID())
	}
	if failed[0].Status() != dombatch.StatusError {
		t.Errorf("unexpected status %s", failed[0].Status())
	}
}

func TestBatchStore_FailFastAborts(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockSearch{}, &mockEngine{vec: []float32{1}})

	items := batchItems(
		"first valid document content",
		"bad",
		"never reached document content",
	)

	docs, report, err := svc.BatchStore(context.Background(), items, true)
	if err == nil {
		t.Fatal("failFast must surface the item error")
	}

	if len(docs) != 1 {
		t.Errorf("expected partial result of 1 document, got %d", len(docs))
	}
	if len(report.Results) != 2 {
		t.Errorf("expected processing to stop after the failure, got %d results", len(report.Results))
	}
	if len(repo.inserted) != 1 {
		t.Errorf("third item must not be persisted, got %d inserts", len(repo.inserted))
	}
}

func TestBatchStore_PreservesInputOrder(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockSearch{}, &mockEngine{vec: []float32{1}})

	items := batchItems(
		"document alpha content here",
		"document bravo content here",
		"document charlie content here",
	)

	docs, _, err := svc.BatchStore(context.Background(), items, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, doc := range docs {
		if doc.Content() != items[i].Content {
			t.Errorf("position %d out of order: %q", i, doc.Content())
		}
	}
}

func TestBatchStore_PacingAboveThreshold(t *testing.T) {
	repo := newMockRepo()
	pacer := &countingPacer{}
	svc := New(repo, &mockSearch{}, &mockEngine{vec: []float32{1}},
		pacer, Config{BatchSize: 2, PacingThreshold: 3}, zap.NewNop())

	items := batchItems(
		"document one content here",
		"document two content here",
		"document three content here",
		"document four content here",
		"document five content here",
	)

	if _, _, err := svc.BatchStore(context.Background(), items, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Groups of 2 over 5 items, no wait after the final group.
	if pacer.waits != 2 {
		t.Errorf("expected 2 pacing waits, got %d", pacer.waits)
	}
}

func TestBatchStore_NoPacingBelowThreshold(t *testing.T) {
	repo := newMockRepo()
	pacer := &countingPacer{}
	svc := New(repo, &mockSearch{}, &mockEngine{vec: []float32{1}},
		pacer, Config{BatchSize: 2, PacingThreshold: 10}, zap.NewNop())

	items := batchItems(
		"document one content here",
		"document two content here",
		"document three content here",
	)

	if _, _, err := svc.BatchStore(context.Background(), items, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pacer.waits != 0 {
		t.Errorf("expected no pacing below threshold, got %d waits", pacer.waits)
	}
}

func TestBatchStore_OversizedContentTruncatedNotRejected(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockSearch{}, &mockEngine{vec: []float32{1}})

	items := batchItems(strings.Repeat("x", document.MaxContentLen+500))

	docs, report, err := svc.BatchStore(context.Background(), items, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded() != 1 {
		t.Fatalf("oversized content must be truncated and stored, failures: %v", report.Failed())
	}
	if len(docs[0].Content()) > document.MaxContentLen {
		t.Errorf("content not truncated: %d bytes", len(docs[0].Content()))
	}
}
