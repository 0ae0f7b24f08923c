package document

import "time"

// Summary is a lightweight per-document projection used by statistics and
// maintenance scans. Cheaper to load than the full aggregate.
type Summary struct {
	ID         string
	TokenCount int
	CreatedAt  time.Time
	Source     string
	Language   string
	Category   string
}
