package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smart-trendz/trendz/internal/fetch"
	"github.com/smart-trendz/trendz/models"
)

// SnapshotStore persists snapshots durably.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.Snapshot, keep int) error
	LatestSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotCache holds the latest snapshot for cheap freshness checks.
type SnapshotCache interface {
	Get(ctx context.Context) (*models.Snapshot, error)
	Set(ctx context.Context, snap models.Snapshot) error
}

// Aggregator runs all source fetchers and merges their output into an
// immutable snapshot. The fetcher slice order is the dedup precedence order:
// when two sources carry the same article, the earlier source keeps it.
type Aggregator struct {
	fetchers        []fetch.Fetcher
	store           SnapshotStore
	cache           SnapshotCache
	refreshInterval time.Duration
	keepSnapshots   int
	sourceTimeout   time.Duration
	logger          *log.Logger

	mu sync.Mutex // serializes refresh runs
}

type Option func(*Aggregator)

func WithStore(s SnapshotStore) Option       { return func(a *Aggregator) { a.store = s } }
func WithCache(c SnapshotCache) Option       { return func(a *Aggregator) { a.cache = c } }
func WithLogger(l *log.Logger) Option        { return func(a *Aggregator) { a.logger = l } }
func WithKeep(n int) Option                  { return func(a *Aggregator) { a.keepSnapshots = n } }
func WithSourceTimeout(d time.Duration) Option { return func(a *Aggregator) { a.sourceTimeout = d } }

func New(fetchers []fetch.Fetcher, refreshInterval time.Duration, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetchers:        fetchers,
		refreshInterval: refreshInterval,
		keepSnapshots:   10,
		sourceTimeout:   30 * time.Second,
		logger:          log.New(log.Writer(), "[AGG] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns a snapshot no older than the refresh interval, running a
// fresh aggregation only when the cached one has expired or force is set.
func (a *Aggregator) Aggregate(ctx context.Context, force bool) (*models.Snapshot, error) {
	if !force {
		if snap := a.recent(ctx); snap != nil {
			return snap, nil
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if !force {
		if snap := a.recent(ctx); snap != nil {
			return snap, nil
		}
	}
	return a.refresh(ctx)
}

// recent returns the latest known snapshot if it is still inside the refresh
// window, checking the cache first and falling back to the store.
func (a *Aggregator) recent(ctx context.Context) *models.Snapshot {
	fresh := func(snap *models.Snapshot) bool {
		return snap != nil && time.Since(snap.TakenAt) < a.refreshInterval
	}

	if a.cache != nil {
		snap, err := a.cache.Get(ctx)
		if err == nil && fresh(snap) {
			return snap
		}
		if err != nil && !errors.Is(err, ErrCacheMiss) {
			a.logger.Printf("snapshot cache read failed: %v", err)
		}
	}
	if a.store != nil {
		snap, err := a.store.LatestSnapshot(ctx)
		if err == nil && fresh(snap) {
			if a.cache != nil {
				if err := a.cache.Set(ctx, *snap); err != nil {
					a.logger.Printf("snapshot cache backfill failed: %v", err)
				}
			}
			return snap
		}
	}
	return nil
}

type fetchResult struct {
	index   int
	records []models.ArticleRecord
	err     error
}

func (a *Aggregator) refresh(ctx context.Context) (*models.Snapshot, error) {
	if len(a.fetchers) == 0 {
		return nil, errors.New("no sources configured")
	}

	results := make([]fetchResult, len(a.fetchers))
	var wg sync.WaitGroup
	for i, f := range a.fetchers {
		wg.Add(1)
		go func(i int, f fetch.Fetcher) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()
			records, err := f.Fetch(fctx)
			results[i] = fetchResult{index: i, records: records, err: err}
		}(i, f)
	}
	wg.Wait()

	snap := models.Snapshot{
		ID:       uuid.NewString(),
		TakenAt:  time.Now().UTC(),
		Coverage: make(map[string]models.SourceCoverage, len(a.fetchers)),
	}

	seen := make(map[string]struct{})
	failed := 0
	for i, f := range a.fetchers {
		res := results[i]
		if res.err != nil {
			failed++
			fetchFailures.WithLabelValues(f.SourceID()).Inc()
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("source %s failed: %v", f.SourceID(), res.err))
			a.logger.Printf("source %s failed: %v", f.SourceID(), res.err)
			snap.Coverage[f.SourceID()] = models.SourceCoverage{}
			continue
		}
		kept := 0
		for _, rec := range res.records {
			key := fetch.RecordKey(rec)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			snap.Articles = append(snap.Articles, rec)
			kept++
		}
		snap.Coverage[f.SourceID()] = models.SourceCoverage{Fetched: len(res.records), Kept: kept}
	}

	if failed == len(a.fetchers) {
		return nil, fmt.Errorf("all sources failed: %s", snap.Warnings[0])
	}

	// Persistence trouble degrades the snapshot, it does not fail the run.
	if a.store != nil {
		if err := a.store.SaveSnapshot(ctx, snap, a.keepSnapshots); err != nil {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("snapshot not persisted: %v", err))
			a.logger.Printf("snapshot persist failed: %v", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, snap); err != nil {
			a.logger.Printf("snapshot cache write failed: %v", err)
		}
	}

	a.logger.Printf("snapshot %s: %d articles from %d/%d sources",
		snap.ID, len(snap.Articles), len(a.fetchers)-failed, len(a.fetchers))
	return &snap, nil
}
