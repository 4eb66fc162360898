package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
)

const excerptMaxChars = 600

// Enricher extracts a readable body excerpt from an article page. By default
// it does a plain HTTP fetch; RenderJS switches to a headless browser for
// pages that only render client-side.
type Enricher struct {
	Client   *http.Client
	RenderJS bool
}

func NewEnricher(client *http.Client, renderJS bool) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Enricher{Client: client, RenderJS: renderJS}
}

// Excerpt fetches the page and runs readability extraction, truncated to a
// short excerpt suitable for prompt context.
func (e *Enricher) Excerpt(ctx context.Context, pageURL string) (string, error) {
	if strings.TrimSpace(pageURL) == "" {
		return "", errors.New("invalid url")
	}

	var html string
	var err error
	if e.RenderJS {
		html, err = renderHTML(ctx, pageURL)
	} else {
		html, err = e.fetchHTML(ctx, pageURL)
	}
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}

	text := CleanText(article.TextContent)
	if len(text) > excerptMaxChars {
		text = text[:excerptMaxChars]
	}
	return text, nil
}

func (e *Enricher) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "trendz/1.0")

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func renderHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("trendz/1.0"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
