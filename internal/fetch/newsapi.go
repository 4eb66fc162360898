package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smart-trendz/trendz/models"
)

// NewsAPIFetcher pulls articles from the NewsAPI "everything" endpoint for a
// fixed query.
type NewsAPIFetcher struct {
	APIKey     string
	Endpoint   string
	Query      string
	MaxResults int
	Client     *http.Client
}

func NewNewsAPIFetcher(apiKey, endpoint, query string, maxResults int, client *http.Client) *NewsAPIFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxResults <= 0 || maxResults > 100 {
		maxResults = 50
	}
	return &NewsAPIFetcher{APIKey: apiKey, Endpoint: endpoint, Query: query, MaxResults: maxResults, Client: client}
}

func (f *NewsAPIFetcher) SourceID() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (f *NewsAPIFetcher) Fetch(ctx context.Context) ([]models.ArticleRecord, error) {
	if f.APIKey == "" {
		return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("api key not configured")}
	}

	params := url.Values{}
	params.Add("q", f.Query)
	params.Add("language", "en")
	params.Add("sortBy", "publishedAt")
	params.Add("pageSize", strconv.Itoa(f.MaxResults))
	params.Add("apiKey", f.APIKey)

	reqURL := fmt.Sprintf("%s?%s", f.Endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{SourceID: f.SourceID(), Err: err}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("failed to fetch news: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("newsapi error: %s", resp.Status)}
	}

	var result newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &FetchError{SourceID: f.SourceID(), Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	now := time.Now().UTC()
	records := make([]models.ArticleRecord, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.Title == "" && a.URL == "" {
			continue
		}
		records = append(records, models.ArticleRecord{
			SourceID:    f.SourceID(),
			Title:       CleanText(a.Title),
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			Excerpt:     CleanText(a.Description),
			FetchedAt:   now,
		})
	}
	return records, nil
}
