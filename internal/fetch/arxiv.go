package fetch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/smart-trendz/trendz/models"
)

const arxivBaseURL = "https://arxiv.org"

var arxivDateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivFetcher scrapes arXiv category listing pages (dl/dt/dd markup) and
// emits one record per abstract entry.
type ArxivFetcher struct {
	Categories []string
	Client     *http.Client
}

func NewArxivFetcher(categories []string, client *http.Client) *ArxivFetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &ArxivFetcher{Categories: categories, Client: client}
}

func (f *ArxivFetcher) SourceID() string { return "arxiv" }

func (f *ArxivFetcher) Fetch(ctx context.Context) ([]models.ArticleRecord, error) {
	if len(f.Categories) == 0 {
		return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("no categories configured")}
	}

	now := time.Now().UTC()
	var records []models.ArticleRecord
	for _, cat := range f.Categories {
		doc, err := f.fetchDocument(ctx, cat)
		if err != nil {
			return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("category %s: %w", cat, err)}
		}
		records = append(records, f.extractEntries(doc, now)...)
	}
	return records, nil
}

func (f *ArxivFetcher) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "trendz/1.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (f *ArxivFetcher) extractEntries(doc *goquery.Document, now time.Time) []models.ArticleRecord {
	var out []models.ArticleRecord
	doc.Find("dl > dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.Next()

		link := dt.Find(`a[href*="/abs/"]`).First()
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = arxivBaseURL + href
		}

		title := CleanText(strings.TrimPrefix(CleanText(dd.Find(".list-title").First().Text()), "Title:"))
		abstract := CleanText(strings.TrimPrefix(CleanText(dd.Find(".mathjax").First().Text()), "Abstract:"))

		rec := models.ArticleRecord{
			SourceID:  f.SourceID(),
			Title:     title,
			URL:       href,
			Excerpt:   abstract,
			FetchedAt: now,
		}

		dateText := CleanText(dd.Find(".list-date, .list-dateline").First().Text())
		if match := arxivDateExpr.FindString(dateText); match != "" {
			if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
				rec.PublishedAt = parsed.UTC()
			}
		}

		out = append(out, rec)
	})
	return out
}
