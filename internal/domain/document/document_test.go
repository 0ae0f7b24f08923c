package document

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func TestNew_ValidatesContentBounds(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"too short", "tiny", true},
		{"minimum length", strings.Repeat("a", MinContentLen), false},
		{"maximum length", strings.Repeat("a", MaxContentLen), false},
		{"over maximum", strings.Repeat("a", MaxContentLen+1), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("id-1", tc.content, Metadata{}, now)
			if tc.wantErr && !errors.Is(err, domain.ErrInvalidDocument) {
				t.Errorf("expected ErrInvalidDocument, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNew_RequiresID(t *testing.T) {
	_, err := New("", "valid content here", Metadata{}, time.Now())
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestNew_NormalizesCreatedAtToUTC(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	local := time.Date(2025, 3, 1, 9, 0, 0, 0, loc)

	doc, err := New("id-1", "valid content here", Metadata{}, local)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.CreatedAt().Location() != time.UTC {
		t.Errorf("expected UTC, got %v", doc.CreatedAt().Location())
	}
	if !doc.CreatedAt().Equal(local) {
		t.Error("UTC conversion must not change the instant")
	}
}

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}

	for _, tc := range cases {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%d bytes) = %d, want %d", len(tc.text), got, tc.want)
		}
	}
}

func TestReconstruct_SkipsValidation(t *testing.T) {
	// Hydration must accept data that New would reject.
	doc := Reconstruct("id-1", "x", Metadata{}, []float32{1, 2}, 1, time.Now())
	if doc.Content() != "x" {
		t.Errorf("content: %q", doc.Content())
	}
	if len(doc.Vector()) != 2 {
		t.Errorf("vector: %v", doc.Vector())
	}
}
