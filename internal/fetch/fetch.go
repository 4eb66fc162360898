package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/smart-trendz/trendz/models"
)

// Fetcher is the contract every source adapter satisfies. A fetcher applies
// whatever source-specific extraction it needs but only ever exposes
// normalized ArticleRecords upward.
type Fetcher interface {
	SourceID() string
	Fetch(ctx context.Context) ([]models.ArticleRecord, error)
}

// FetchError wraps a per-source failure. One failing source never aborts
// aggregation of the others.
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RecordKey returns the uniqueness key for an article record: the canonical
// URL when one can be derived, otherwise source id plus lowercased title.
func RecordKey(rec models.ArticleRecord) string {
	if rec.URL != "" {
		if canonical, err := CanonicalURL(rec.URL); err == nil {
			return canonical
		}
	}
	return rec.SourceID + "\x00" + strings.ToLower(strings.TrimSpace(rec.Title))
}

// CleanText collapses runs of whitespace into single spaces.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
