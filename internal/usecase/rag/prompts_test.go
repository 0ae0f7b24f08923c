package rag

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

func TestSystemPrompt_TiersAreStrictSupersets(t *testing.T) {
	basic := systemPrompt(TierBasic)
	intermediate := systemPrompt(TierIntermediate)
	expert := systemPrompt(TierExpert)

	if !strings.Contains(intermediate, basic) {
		t.Error("intermediate prompt must contain the basic prompt")
	}
	if !strings.Contains(expert, intermediate) {
		t.Error("expert prompt must contain the intermediate prompt")
	}
	if len(basic) >= len(intermediate) || len(intermediate) >= len(expert) {
		t.Error("each tier must strictly extend the one below")
	}
}

func TestBuildPrompt_InvalidTierFallsBack(t *testing.T) {
	svc := newTestRAG(&mockStore{})

	p, err := svc.BuildPrompt(context.Background(), "How do I use SUMIF?", "", 0, Tier("wizard"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.System != systemPrompt(DefaultTier) {
		t.Error("invalid tier must fall back to the default tier")
	}
}

func TestBuildPrompt_AssemblesUserPrompt(t *testing.T) {
	store := &mockStore{hits: []result.Result{
		result.New("a", 0.9, "SUMIF sums cells matching a condition.", nil, mode.Hybrid),
	}}
	svc := newTestRAG(store)

	p, err := svc.BuildPrompt(context.Background(), "How do I use SUMIF?", "monthly report", 2, TierExpert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(p.User, "Reference knowledge:") {
		t.Error("user prompt must embed the retrieved context block")
	}
	if !strings.Contains(p.User, "Additional context from the user:\nmonthly report") {
		t.Error("user prompt must embed the caller context")
	}
	if !strings.Contains(p.User, "attached 2 file(s)") {
		t.Error("user prompt must mention attachments")
	}
	if !strings.Contains(p.User, "Question: How do I use SUMIF?") {
		t.Error("user prompt must end sections with the question")
	}
	if p.DocumentsFound != 1 {
		t.Errorf("documents found: %d", p.DocumentsFound)
	}
}

func TestBuildPrompt_OmitsEmptySections(t *testing.T) {
	svc := newTestRAG(&mockStore{})

	p, err := svc.BuildPrompt(context.Background(), "What is XLOOKUP?", "", 0, TierBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(p.User, "Reference knowledge:") {
		t.Error("empty retrieval must omit the context block")
	}
	if strings.Contains(p.User, "Additional context") {
		t.Error("empty caller context must be omitted")
	}
	if strings.Contains(p.User, "attached") {
		t.Error("zero attachments must be omitted")
	}
	if !strings.HasPrefix(p.User, "Question: ") {
		t.Errorf("prompt must start at the question when sections are empty: %q", p.User)
	}
}

func TestBuildPrompt_TokenEstimate(t *testing.T) {
	svc := newTestRAG(&mockStore{})

	p, err := svc.BuildPrompt(context.Background(), "What is XLOOKUP?", "", 0, TierBasic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := len(p.System+p.User) / 4
	if want < 1 {
		want = 1
	}
	if p.EstimatedTokens != want {
		t.Errorf("estimate: got %d, want %d", p.EstimatedTokens, want)
	}
}

func TestBuildPrompt_SearchErrorPropagates(t *testing.T) {
	store := &mockStore{searchErr: errTest}
	svc := New(store, &mockCache{}, Config{}, zap.NewNop())

	if _, err := svc.BuildPrompt(context.Background(), "q", "", 0, TierBasic); err == nil {
		t.Fatal("retrieval failure must fail prompt building")
	}
}
