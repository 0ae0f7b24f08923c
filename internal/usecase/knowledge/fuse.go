package knowledge

import (
	"sort"

	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
	"github.com/kailas-cloud/ragdex/internal/domain/search/result"
)

// Fusion weights. A semantic hit contributes 0.7 of its similarity; a keyword
// hit contributes a flat 0.3 regardless of backend relevance score. A document
// present in both legs sums the two contributions, so it always outranks an
// otherwise-equal single-leg document.
const (
	semanticWeight = 0.7
	keywordWeight  = 0.3
)

// fuse merges the two candidate legs by document ID into one ranked list of
// at most limit results. Documents found by both legs are restamped hybrid;
// single-leg documents keep their leg's search type with the weighted score.
func fuse(semantic, keyword []result.Result, limit int) []result.Result {
	type merged struct {
		hit    result.Result
		score  float64
		inBoth bool
	}

	byID := make(map[string]*merged, len(semantic)+len(keyword))
	order := make([]string, 0, len(semantic)+len(keyword))

	for _, h := range semantic {
		byID[h.ID()] = &merged{hit: h, score: semanticWeight * h.Score()}
		order = append(order, h.ID())
	}

	for _, h := range keyword {
		if m, ok := byID[h.ID()]; ok {
			m.score += keywordWeight
			m.inBoth = true
			continue
		}
		byID[h.ID()] = &merged{hit: h, score: keywordWeight}
		order = append(order, h.ID())
	}

	out := make([]result.Result, 0, len(order))
	for _, id := range order {
		m := byID[id]
		searchType := m.hit.SearchType()
		if m.inBoth {
			searchType = mode.Hybrid
		}
		out = append(out, m.hit.WithScore(m.score, searchType))
	}

	// Stable: equal scores keep semantic-leg-first insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
