package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/smart-trendz/trendz/config"
	"github.com/smart-trendz/trendz/internal/aggregate"
	"github.com/smart-trendz/trendz/internal/artifact"
	"github.com/smart-trendz/trendz/internal/compose"
	"github.com/smart-trendz/trendz/internal/fetch"
	"github.com/smart-trendz/trendz/internal/leaderboard"
	"github.com/smart-trendz/trendz/internal/llm"
	"github.com/smart-trendz/trendz/internal/orchestrator"
	"github.com/smart-trendz/trendz/internal/profile"
	"github.com/smart-trendz/trendz/internal/search"
	"github.com/smart-trendz/trendz/internal/session"
	"github.com/smart-trendz/trendz/internal/store"
	"github.com/smart-trendz/trendz/internal/video"
)

// newEcho builds the echo instance with recovery, CORS and the unified JSON
// error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// Run wires every dependency from config and serves HTTP until the listener
// fails.
func Run(cfg *config.Config) error {
	e := newEcho()
	ctx := context.Background()

	// Durable snapshot store is optional; without Postgres the cache alone
	// carries snapshots between requests.
	var snapStore aggregate.SnapshotStore
	if dsn, err := cfg.Storage.Postgres.DSN(); err == nil {
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		st, err := store.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer st.Close()
		snapStore = st
	} else {
		log.Printf("[SERVER] postgres not configured, snapshots held in cache only: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	var cache aggregate.SnapshotCache
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Redis.Timeout)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("[SERVER] redis unavailable, snapshot cache disabled: %v", err)
	} else {
		cache = aggregate.NewRedisCache(rdb, 2*cfg.Aggregation.RefreshInterval)
	}
	cancel()

	httpClient := &http.Client{Timeout: cfg.Sources.Timeout}
	var enricher *fetch.Enricher
	if cfg.Sources.Newsletter.EnrichExcerpts > 0 {
		enricher = fetch.NewEnricher(httpClient, cfg.Sources.Newsletter.RenderJS)
	}
	fetchers := []fetch.Fetcher{
		fetch.NewNewsletterFetcher(cfg.Sources.Newsletter.BaseURL, httpClient, enricher, cfg.Sources.Newsletter.EnrichExcerpts),
		fetch.NewNewsAPIFetcher(cfg.Sources.NewsAPI.APIKey, cfg.Sources.NewsAPI.Endpoint, cfg.Sources.NewsAPI.Query, cfg.Sources.NewsAPI.MaxResults, httpClient),
	}
	if cfg.Sources.Arxiv.Enabled {
		fetchers = append(fetchers, fetch.NewArxivFetcher(cfg.Sources.Arxiv.Categories, httpClient))
	}

	agg := aggregate.New(fetchers, cfg.Aggregation.RefreshInterval,
		aggregate.WithStore(snapStore),
		aggregate.WithCache(cache),
		aggregate.WithKeep(cfg.Aggregation.KeepSnapshots),
		aggregate.WithSourceTimeout(cfg.Sources.Timeout),
	)

	profiles, err := profile.NewManager(cfg.Profiles.Dir, cfg.Profiles.Users)
	if err != nil {
		return err
	}
	artifacts, err := artifact.NewStore(filepath.Join(cfg.Storage.DataDir, "artifacts"))
	if err != nil {
		return err
	}

	searcher, err := search.New(cfg.Search)
	if err != nil {
		return err
	}

	var videos *video.Client
	if cfg.Video.APIKey != "" {
		videos = video.NewClient(cfg.Video)
	} else {
		log.Printf("[SERVER] YOUTUBE_API_KEY not set, video recommendations disabled")
	}

	orch := orchestrator.New(orchestrator.Deps{
		Profiles:  profiles,
		Snapshots: agg,
		Composer:  compose.NewComposer(),
		Generator: llm.NewClient(cfg.LLM),
		Searcher:  searcher,
		Sessions:  session.NewStore(time.Hour),
		Artifacts: artifacts,
		Producer:  leaderboard.NewProducer(cfg.Leaderboard, artifacts),
		Videos:    videos,
	})

	h := &Handler{Orch: orch, Profiles: profiles, Artifacts: artifacts}
	h.Register(e)

	if cfg.General.RefreshCron != "" {
		sched, err := NewScheduler(agg, cfg.General.RefreshCron)
		if err != nil {
			return fmt.Errorf("refresh_cron: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	return e.Start(cfg.General.Listen)
}
