package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/smart-trendz/trendz/config"
	"github.com/smart-trendz/trendz/internal/aggregate"
	"github.com/smart-trendz/trendz/internal/fetch"
)

// aggregateCMD runs one aggregation pass and prints the snapshot, useful for
// checking source scrapers without the server.
func aggregateCMD() *cobra.Command {
	var force bool
	var cmd = &cobra.Command{
		Use:   "aggregate",
		Short: "Run one aggregation pass and print the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: cfg.Sources.Timeout}
			var enricher *fetch.Enricher
			if cfg.Sources.Newsletter.EnrichExcerpts > 0 {
				enricher = fetch.NewEnricher(client, cfg.Sources.Newsletter.RenderJS)
			}
			fetchers := []fetch.Fetcher{
				fetch.NewNewsletterFetcher(cfg.Sources.Newsletter.BaseURL, client, enricher, cfg.Sources.Newsletter.EnrichExcerpts),
				fetch.NewNewsAPIFetcher(cfg.Sources.NewsAPI.APIKey, cfg.Sources.NewsAPI.Endpoint, cfg.Sources.NewsAPI.Query, cfg.Sources.NewsAPI.MaxResults, client),
			}
			if cfg.Sources.Arxiv.Enabled {
				fetchers = append(fetchers, fetch.NewArxivFetcher(cfg.Sources.Arxiv.Categories, client))
			}

			agg := aggregate.New(fetchers, cfg.Aggregation.RefreshInterval,
				aggregate.WithSourceTimeout(cfg.Sources.Timeout))
			snap, err := agg.Aggregate(context.Background(), force)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore the refresh window")
	return cmd
}
