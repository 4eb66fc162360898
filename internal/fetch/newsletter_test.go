package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const newsletterPage = `<!DOCTYPE html>
<html><body>
<section>
  <article>
    <a href="/p/gpt-5-is-here">GPT-5 is here</a>
    <p>.. PLUS: the new eval everyone argues about</p>
    <span>4 hours ago</span>
  </article>
  <article>
    <a href="/p/agents-eat-the-world">Agents eat the world</a>
    <span>Sep 29, 2025</span>
  </article>
  <article>
    <a href="/p/gpt-5-is-here">GPT-5 is here (duplicate card)</a>
  </article>
  <a href="/about">About us</a>
  <a href="/p/a-b">x</a>
</section>
</body></html>`

func TestNewsletterFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(newsletterPage))
	}))
	defer srv.Close()

	f := NewNewsletterFetcher(srv.URL, srv.Client(), nil, 0)
	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	first := records[0]
	if first.Title != "GPT-5 is here" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.URL != srv.URL+"/p/gpt-5-is-here" {
		t.Fatalf("unexpected url %q", first.URL)
	}
	if first.Excerpt == "" {
		t.Fatal("expected subheading excerpt on first record")
	}
	if first.PublishedAt.IsZero() {
		t.Fatal("expected relative date to resolve")
	}
	if first.SourceID != "newsletter" {
		t.Fatalf("unexpected source id %q", first.SourceID)
	}

	second := records[1]
	if got := second.PublishedAt.Format("2006-01-02"); got != "2025-09-29" {
		t.Fatalf("expected absolute date to parse, got %s", got)
	}

	// Short anchor text falls back to a slug-derived title.
	if records[2].Title != "A B" {
		t.Fatalf("expected slug title, got %q", records[2].Title)
	}
}

func TestNewsletterFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewNewsletterFetcher(srv.URL, srv.Client(), nil, 0)
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestNewsAPIFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"source":{"name":"Wired"},"title":"  Model   beats  benchmark ","description":"d","url":"https://wired.example/a","publishedAt":"2025-10-01T12:00:00Z"},
			{"source":{"name":"X"},"title":"","url":""}
		]}`))
	}))
	defer srv.Close()

	f := NewNewsAPIFetcher("k", srv.URL, "artificial intelligence", 10, srv.Client())
	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Title != "Model beats benchmark" {
		t.Fatalf("expected whitespace-collapsed title, got %q", records[0].Title)
	}
}

func TestNewsAPIFetcherMissingKey(t *testing.T) {
	f := NewNewsAPIFetcher("", "http://unused", "ai", 10, nil)
	_, err := f.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error without api key")
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.SourceID != "newsapi" {
		t.Fatalf("expected FetchError tagged newsapi, got %v", err)
	}
}

const arxivPage = `<html><body><dl>
<dt><a href="/abs/2510.01234">arXiv:2510.01234</a></dt>
<dd>
  <div class="list-title">Title: Scaling Laws Revisited</div>
  <p class="mathjax">Abstract: We revisit scaling laws.</p>
  <div class="list-date">announced 2 Oct 2025</div>
</dd>
</dl></body></html>`

func TestArxivFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(arxivPage))
	}))
	defer srv.Close()

	f := NewArxivFetcher([]string{srv.URL}, srv.Client())
	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Title != "Scaling Laws Revisited" {
		t.Fatalf("unexpected title %q", rec.Title)
	}
	if rec.Excerpt != "We revisit scaling laws." {
		t.Fatalf("unexpected excerpt %q", rec.Excerpt)
	}
	if rec.URL != "https://arxiv.org/abs/2510.01234" {
		t.Fatalf("unexpected url %q", rec.URL)
	}
	if got := rec.PublishedAt.Format("2006-01-02"); got != "2025-10-02" {
		t.Fatalf("unexpected published date %s", got)
	}
}
