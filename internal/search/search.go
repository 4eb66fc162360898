package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/smart-trendz/trendz/config"
)

// Result is one web search hit used to ground chat answers.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Searcher finds recent web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// New builds a Searcher for the configured provider. An empty provider
// disables search and returns nil.
func New(cfg config.SearchConfig) (Searcher, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout == 0 {
		client.Timeout = 15 * time.Second
	}
	switch cfg.Provider {
	case "":
		return nil, nil
	case "serper":
		return &Serper{APIKey: cfg.SerperAPIKey, Client: client}, nil
	case "brave":
		return &Brave{APIKey: cfg.BraveAPIKey, Client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported search provider %q", cfg.Provider)
	}
}
