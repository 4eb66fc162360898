package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sort"
	"sync/atomic"
	"time"

	"github.com/smart-trendz/trendz/config"
	"github.com/smart-trendz/trendz/internal/artifact"
)

const filePrefix = "livebench_leaderboard_"

var filenameExpr = regexp.MustCompile(`^livebench_leaderboard_\d{8}_\d{6}\.html$`)

// ValidFilename reports whether a requested artifact name is a leaderboard
// page this producer could have published.
func ValidFilename(name string) bool {
	return filenameExpr.MatchString(name)
}

// ModelScore is one model's aggregated benchmark standing.
type ModelScore struct {
	Model    string
	AvgScore float64
	Samples  int
}

// Producer builds the leaderboard HTML artifact from the LiveBench judgment
// dataset. At most one build runs at a time; extra triggers are dropped.
type Producer struct {
	datasetURL  string
	metadataURL string
	pageSize    int
	maxPages    int
	topN        int
	client      *http.Client
	artifacts   *artifact.Store
	logger      *log.Logger

	running atomic.Bool
}

func NewProducer(cfg config.LeaderboardConfig, artifacts *artifact.Store) *Producer {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Minute
	}
	return &Producer{
		datasetURL:  cfg.DatasetURL,
		metadataURL: cfg.MetadataURL,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		topN:        cfg.TopN,
		client:      &http.Client{Timeout: timeout},
		artifacts:   artifacts,
		logger:      log.New(log.Writer(), "[LDB] ", log.LstdFlags),
	}
}

// Latest returns the newest published leaderboard filename, if any.
func (p *Producer) Latest() (string, bool) {
	name, err := p.artifacts.Latest(filePrefix)
	if err != nil {
		return "", false
	}
	return name, true
}

// Running reports whether a build is in flight.
func (p *Producer) Running() bool { return p.running.Load() }

// TriggerAsync starts a background build unless one is already running.
// It returns false when the trigger was dropped as a duplicate.
func (p *Producer) TriggerAsync(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer p.running.Store(false)
		name, err := p.Generate(ctx)
		if err != nil {
			p.logger.Printf("leaderboard build failed: %v", err)
			return
		}
		p.logger.Printf("leaderboard published: %s", name)
	}()
	return true
}

// Generate fetches, aggregates and publishes the leaderboard synchronously,
// returning the published artifact name.
func (p *Producer) Generate(ctx context.Context) (string, error) {
	rows, err := p.fetchRows(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("dataset returned no rows")
	}

	scores := aggregate(rows)
	if p.topN > 0 && len(scores) > p.topN {
		scores = scores[:p.topN]
	}

	page, err := renderPage(scores, p.fetchLastModified(ctx), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("render leaderboard: %w", err)
	}

	name := filePrefix + time.Now().UTC().Format("20060102_150405") + ".html"
	if err := p.artifacts.Put(name, page); err != nil {
		return "", fmt.Errorf("publish leaderboard: %w", err)
	}
	return name, nil
}

type judgmentRow struct {
	Model    string  `json:"model"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

type rowsResponse struct {
	Rows []struct {
		Row judgmentRow `json:"row"`
	} `json:"rows"`
}

// fetchRows pages through the datasets-server rows endpoint until a short
// page, an error status, or the page cap.
func (p *Producer) fetchRows(ctx context.Context) ([]judgmentRow, error) {
	var all []judgmentRow
	for page := 0; page < p.maxPages; page++ {
		offset := page * p.pageSize
		reqURL := fmt.Sprintf("%s?dataset=livebench%%2Fmodel_judgment&config=default&split=leaderboard&offset=%d&length=%d",
			p.datasetURL, offset, p.pageSize)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := p.client.Do(req)
		if err != nil {
			if len(all) > 0 {
				p.logger.Printf("page %d failed, keeping %d rows: %v", page, len(all), err)
				break
			}
			return nil, fmt.Errorf("fetch rows: %w", err)
		}

		if resp.StatusCode == http.StatusUnprocessableEntity {
			// Past the end of the dataset.
			resp.Body.Close()
			break
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if len(all) > 0 {
				break
			}
			return nil, fmt.Errorf("datasets server returned %s", resp.Status)
		}

		var body rowsResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		if len(body.Rows) == 0 {
			break
		}
		for _, r := range body.Rows {
			all = append(all, r.Row)
		}
		if len(body.Rows) < p.pageSize {
			break
		}
	}
	return all, nil
}

// fetchLastModified asks the dataset metadata endpoint for its lastModified
// stamp. Failures just leave the freshness line off the page.
func (p *Producer) fetchLastModified(ctx context.Context) string {
	if p.metadataURL == "" {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.metadataURL, nil)
	if err != nil {
		return ""
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var meta struct {
		LastModified string `json:"lastModified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return ""
	}
	return meta.LastModified
}

// aggregate computes each model's mean score and sample count, sorted by
// mean descending.
func aggregate(rows []judgmentRow) []ModelScore {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		if r.Model == "" {
			continue
		}
		sums[r.Model] += r.Score
		counts[r.Model]++
	}

	out := make([]ModelScore, 0, len(sums))
	for model, sum := range sums {
		out = append(out, ModelScore{
			Model:    model,
			AvgScore: sum / float64(counts[model]),
			Samples:  counts[model],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgScore != out[j].AvgScore {
			return out[i].AvgScore > out[j].AvgScore
		}
		return out[i].Model < out[j].Model
	})
	return out
}
