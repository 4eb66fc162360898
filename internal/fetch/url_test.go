package fetch

import (
	"testing"
	"time"

	"github.com/smart-trendz/trendz/models"
)

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://Example.COM/Post", "https://example.com/Post"},
		{"strips default port", "https://example.com:443/a", "https://example.com/a"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"strips tracking params", "https://example.com/a?utm_source=x&id=7", "https://example.com/a?id=7"},
		{"sorts query", "https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
		{"defaults scheme", "example.com/a", "https://example.com/a"},
		{"cleans path", "https://example.com/a/../b", "https://example.com/b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalURL(tc.in)
			if err != nil {
				t.Fatalf("CanonicalURL(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("CanonicalURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestCanonicalURLEmpty(t *testing.T) {
	if _, err := CanonicalURL("  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestRecordKeyFallsBackToSourceAndTitle(t *testing.T) {
	rec := models.ArticleRecord{SourceID: "newsletter", Title: "Big AI News", FetchedAt: time.Now()}
	key := RecordKey(rec)
	if key != "newsletter\x00big ai news" {
		t.Fatalf("unexpected fallback key %q", key)
	}
}

func TestRecordKeyCollapsesEquivalentURLs(t *testing.T) {
	a := models.ArticleRecord{SourceID: "newsletter", URL: "https://example.com/p/post?utm_source=home"}
	b := models.ArticleRecord{SourceID: "newsapi", URL: "https://EXAMPLE.com/p/post"}
	if RecordKey(a) != RecordKey(b) {
		t.Fatalf("keys differ: %q vs %q", RecordKey(a), RecordKey(b))
	}
}
