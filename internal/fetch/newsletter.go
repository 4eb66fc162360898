package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/smart-trendz/trendz/models"
)

var (
	postLinkExpr   = regexp.MustCompile(`/p/[^/]+$`)
	relativeExpr   = regexp.MustCompile(`(?i)\d+\s+(hour|day|week|month)s?\s+ago`)
	absoluteExpr   = regexp.MustCompile(`[A-Z][a-z]{2}\s+\d{1,2},\s+\d{4}`)
	subheadingExpr = regexp.MustCompile(`(?i)\.\.|PLUS:`)
)

// NewsletterFetcher scrapes a beehiiv-style newsletter homepage that lists
// posts under /p/ links. Markup on these pages shifts often; everything
// source-specific stays behind this adapter.
type NewsletterFetcher struct {
	BaseURL  string
	Client   *http.Client
	Enricher *Enricher // optional excerpt enrichment
	EnrichN  int
}

func NewNewsletterFetcher(baseURL string, client *http.Client, enricher *Enricher, enrichN int) *NewsletterFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &NewsletterFetcher{BaseURL: baseURL, Client: client, Enricher: enricher, EnrichN: enrichN}
}

func (f *NewsletterFetcher) SourceID() string { return "newsletter" }

func (f *NewsletterFetcher) Fetch(ctx context.Context) ([]models.ArticleRecord, error) {
	if strings.TrimSpace(f.BaseURL) == "" {
		return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("base url not configured")}
	}

	doc, err := f.fetchDocument(ctx, f.BaseURL)
	if err != nil {
		return nil, &FetchError{SourceID: f.SourceID(), Err: err}
	}

	now := time.Now().UTC()
	seen := map[string]struct{}{}
	var records []models.ArticleRecord

	doc.Find("a").Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok || !postLinkExpr.MatchString(href) {
			return
		}
		absolute := resolveURL(f.BaseURL, href)
		if _, dup := seen[absolute]; dup {
			return
		}
		seen[absolute] = struct{}{}

		title := CleanText(link.Text())
		if len(title) <= 5 {
			title = titleFromSlug(href)
		}

		rec := models.ArticleRecord{
			SourceID:  f.SourceID(),
			Title:     title,
			URL:       absolute,
			Excerpt:   findSubheading(link),
			FetchedAt: now,
		}
		if published, ok := findPublishedAt(link, now); ok {
			rec.PublishedAt = published
		}
		records = append(records, rec)
	})

	if f.Enricher != nil && f.EnrichN > 0 {
		for i := range records {
			if i >= f.EnrichN {
				break
			}
			if records[i].Excerpt != "" {
				continue
			}
			if excerpt, err := f.Enricher.Excerpt(ctx, records[i].URL); err == nil {
				records[i].Excerpt = excerpt
			}
		}
	}

	return records, nil
}

func (f *NewsletterFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "trendz/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsletter returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// findSubheading walks up from a post link looking for the teaser text that
// beehiiv renders near it (".. PLUS:" style blurbs).
func findSubheading(link *goquery.Selection) string {
	container := link.Closest("article, section")
	if container.Length() == 0 {
		container = link.Parent().Parent()
	}
	if container.Length() == 0 {
		return ""
	}

	linkText := CleanText(link.Text())
	var found string
	container.Find("p, div, span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := CleanText(sel.Text())
		if len(text) < 15 || len(text) > 300 || text == linkText {
			return true
		}
		if subheadingExpr.MatchString(text) {
			found = text
			return false
		}
		return true
	})
	return found
}

// findPublishedAt looks for "4 hours ago" / "Sep 29, 2025" style dates near
// the link. Relative dates resolve against now coarsely; absolute ones parse.
func findPublishedAt(link *goquery.Selection, now time.Time) (time.Time, bool) {
	container := link.Closest("article, div, section")
	if container.Length() == 0 {
		return time.Time{}, false
	}

	var published time.Time
	var ok bool
	container.Find("span, div, p, time").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := CleanText(sel.Text())
		if match := absoluteExpr.FindString(text); match != "" {
			if parsed, err := time.Parse("Jan 2, 2006", match); err == nil {
				published, ok = parsed.UTC(), true
				return false
			}
		}
		if relativeExpr.MatchString(text) {
			published, ok = now.Truncate(24*time.Hour), true
			return false
		}
		return true
	})
	return published, ok
}

func titleFromSlug(href string) string {
	slug := href[strings.LastIndex(href, "/")+1:]
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
