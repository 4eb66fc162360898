package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smart-trendz/trendz/internal/artifact"
	"github.com/smart-trendz/trendz/internal/compose"
	"github.com/smart-trendz/trendz/internal/leaderboard"
	"github.com/smart-trendz/trendz/internal/llm"
	"github.com/smart-trendz/trendz/internal/search"
	"github.com/smart-trendz/trendz/internal/session"
	"github.com/smart-trendz/trendz/internal/video"
	"github.com/smart-trendz/trendz/models"
)

// Post options accepted by GeneratePost.
const (
	PostFromReport  = "from_report"
	PostCustomTopic = "custom_topic"
)

var (
	// ErrNoReport is returned when a post is requested from a report that
	// was never generated.
	ErrNoReport = errors.New("no report available for user")
	// ErrUnknownPostOption is returned for post options other than
	// from_report and custom_topic.
	ErrUnknownPostOption = errors.New("unknown post option")
	// ErrVideosDisabled is returned when no YouTube API key is configured.
	ErrVideosDisabled = errors.New("video recommendations not configured")
)

// Snapshotter produces the current aggregated snapshot.
type Snapshotter interface {
	Aggregate(ctx context.Context, force bool) (*models.Snapshot, error)
}

// ProfileLoader resolves user profiles.
type ProfileLoader interface {
	Load(userID string) (*models.UserProfile, error)
}

// Orchestrator sequences aggregation, composition and generation for the
// user-facing operations.
type Orchestrator struct {
	profiles  ProfileLoader
	agg       Snapshotter
	composer  *compose.Composer
	gen       llm.Generator
	searcher  search.Searcher // nil disables web search
	sessions  *session.Store
	artifacts *artifact.Store
	producer  *leaderboard.Producer
	videos    *video.Client // nil disables video recommendations
	logger    *log.Logger
}

type Deps struct {
	Profiles  ProfileLoader
	Snapshots Snapshotter
	Composer  *compose.Composer
	Generator llm.Generator
	Searcher  search.Searcher
	Sessions  *session.Store
	Artifacts *artifact.Store
	Producer  *leaderboard.Producer
	Videos    *video.Client
	Logger    *log.Logger
}

func New(deps Deps) *Orchestrator {
	composer := deps.Composer
	if composer == nil {
		composer = compose.NewComposer()
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		profiles:  deps.Profiles,
		agg:       deps.Snapshots,
		composer:  composer,
		gen:       deps.Generator,
		searcher:  deps.Searcher,
		sessions:  deps.Sessions,
		artifacts: deps.Artifacts,
		producer:  deps.Producer,
		videos:    deps.Videos,
		logger:    logger,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func newJob(kind models.JobKind) models.GenerationJob {
	return models.GenerationJob{
		ID:          uuid.NewString(),
		Kind:        kind,
		Status:      models.JobPending,
		RequestedAt: time.Now().UTC(),
	}
}

func (o *Orchestrator) failJob(job models.GenerationJob, err error) models.GenerationJob {
	job.Status = models.JobFailed
	job.CompletedAt = timePtr(time.Now().UTC())
	job.Error = userFacing(err)
	o.logger.Printf("%s job %s failed: %v", job.Kind, job.ID, err)
	return job
}

// userFacing summarizes an error for clients. Generation backend error text
// is never forwarded verbatim.
func userFacing(err error) string {
	var gen *llm.GenerationError
	if errors.As(err, &gen) {
		return gen.UserMessage()
	}
	return err.Error()
}

type reportDocument struct {
	User        string    `json:"user"`
	GeneratedAt time.Time `json:"generated_at"`
	SnapshotID  string    `json:"snapshot_id"`
	Report      string    `json:"report"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// GenerateReport aggregates (respecting the refresh window unless force is
// set), curates articles for the user and generates a markdown report. The
// report is also published as a JSON artifact named
// <user>_report_<timestamp>.json.
func (o *Orchestrator) GenerateReport(ctx context.Context, userID string, force bool) (models.GenerationJob, error) {
	job := newJob(models.JobReport)

	prof, err := o.profiles.Load(userID)
	if err != nil {
		return job, err
	}

	snap, err := o.agg.Aggregate(ctx, force)
	if err != nil {
		return o.failJob(job, fmt.Errorf("aggregation failed: %w", err)), nil
	}

	system, user := o.composer.ReportPrompt(*prof, snap)
	report, err := o.gen.Complete(ctx, system, []models.Turn{{Role: models.RoleUser, Content: user}})
	if err != nil {
		return o.failJob(job, err), nil
	}

	now := time.Now().UTC()
	doc := reportDocument{
		User:        prof.UserID,
		GeneratedAt: now,
		SnapshotID:  snap.ID,
		Report:      report,
		Warnings:    snap.Warnings,
	}
	name := fmt.Sprintf("%s_report_%s.json", prof.UserID, now.Format("20060102_150405"))
	if raw, err := json.Marshal(doc); err == nil {
		if err := o.artifacts.Put(name, raw); err != nil {
			o.logger.Printf("report artifact not saved: %v", err)
			name = ""
		}
	}

	job.Status = models.JobReady
	job.CompletedAt = timePtr(now)
	job.Result = report
	job.ResultRef = name
	return job, nil
}

// ChatTurn appends the user message to the session (creating one if needed),
// grounds the reply on snapshot articles and optional live search, and
// appends the assistant reply. A failed generation rolls the user turn back.
func (o *Orchestrator) ChatTurn(ctx context.Context, userID, sessionID, message string) (string, string, error) {
	prof, err := o.profiles.Load(userID)
	if err != nil {
		return "", "", err
	}

	sess, err := o.sessions.Ensure(sessionID)
	if err != nil {
		return "", "", err
	}
	if sess.ID() != sessionID {
		// Fresh session: ground it on the current snapshot. Snapshot
		// trouble degrades chat to ungrounded answers.
		if snap, err := o.agg.Aggregate(ctx, false); err == nil {
			if err := sess.IndexArticles(snap.Articles); err != nil {
				o.logger.Printf("session grounding index failed: %v", err)
			}
		} else {
			o.logger.Printf("chat continues without snapshot: %v", err)
		}
	}

	if err := sess.AppendUser(message); err != nil {
		return sess.ID(), "", err
	}

	grounding, err := sess.Ground(message, 5)
	if err != nil {
		o.logger.Printf("grounding search failed: %v", err)
	}

	var results []search.Result
	if o.searcher != nil && compose.NeedsWebSearch(message) {
		query := "AI artificial intelligence " + message
		if results, err = o.searcher.Search(ctx, query, 5); err != nil {
			o.logger.Printf("web search failed: %v", err)
			results = nil
		}
	}

	system := o.composer.ChatSystem(*prof, grounding, results)
	turns := o.composer.TruncateHistory(sess.Turns())

	reply, err := o.gen.Complete(ctx, system, turns)
	if err != nil {
		sess.DropLastUser()
		return sess.ID(), "", errors.New(userFacing(err))
	}
	if err := sess.AppendAssistant(reply); err != nil {
		return sess.ID(), "", err
	}
	return sess.ID(), reply, nil
}

// CloseChat drops the session and its history.
func (o *Orchestrator) CloseChat(sessionID string) {
	o.sessions.Close(sessionID)
}

// GeneratePost writes a LinkedIn post either from the user's latest report
// or about a custom topic. The custom topic path never touches the snapshot.
func (o *Orchestrator) GeneratePost(ctx context.Context, userID, option, topic string) (models.GenerationJob, error) {
	job := newJob(models.JobPost)

	prof, err := o.profiles.Load(userID)
	if err != nil {
		return job, err
	}

	var system, user string
	switch option {
	case PostFromReport:
		name, err := o.artifacts.Latest(prof.UserID + "_report_")
		if err != nil {
			return job, ErrNoReport
		}
		raw, err := o.artifacts.Get(name)
		if err != nil {
			return job, ErrNoReport
		}
		var doc reportDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return job, fmt.Errorf("corrupt report artifact %s: %w", name, err)
		}
		system, user = o.composer.PostFromReport(*prof, doc.Report)

	case PostCustomTopic:
		if topic == "" {
			return job, fmt.Errorf("custom_topic requires a topic")
		}
		var results []search.Result
		if o.searcher != nil {
			query := fmt.Sprintf("AI artificial intelligence %s latest news trends", topic)
			if results, err = o.searcher.Search(ctx, query, 5); err != nil {
				o.logger.Printf("topic search failed: %v", err)
				results = nil
			}
		}
		system, user = o.composer.PostFromTopic(*prof, topic, results)

	default:
		return job, ErrUnknownPostOption
	}

	post, err := o.gen.Complete(ctx, system, []models.Turn{{Role: models.RoleUser, Content: user}})
	if err != nil {
		return o.failJob(job, err), nil
	}

	job.Status = models.JobReady
	job.CompletedAt = timePtr(time.Now().UTC())
	job.Result = post
	return job, nil
}

// RecommendVideos asks the generation backend for search keywords tailored to
// the user's profile, then queries YouTube with them. Returns the videos and
// the keywords that found them.
func (o *Orchestrator) RecommendVideos(ctx context.Context, userID string) ([]video.Video, string, error) {
	if o.videos == nil {
		return nil, "", ErrVideosDisabled
	}

	prof, err := o.profiles.Load(userID)
	if err != nil {
		return nil, "", err
	}

	system, user := o.composer.VideoKeywordsPrompt(*prof)
	keywords, err := o.gen.Complete(ctx, system, []models.Turn{{Role: models.RoleUser, Content: user}})
	if err != nil {
		return nil, "", errors.New(userFacing(err))
	}
	keywords = strings.Trim(strings.TrimSpace(keywords), `"`)

	videos, err := o.videos.Search(ctx, keywords)
	if err != nil {
		return nil, "", fmt.Errorf("youtube search: %w", err)
	}
	o.logger.Printf("recommended %d videos for %s with keywords %q", len(videos), prof.UserID, keywords)
	return videos, keywords, nil
}

// Leaderboard triggers a background leaderboard build and reports the newest
// published artifact. Clients poll by resubmitting: while the first build
// runs the job stays pending, afterwards it is ready with the artifact name.
func (o *Orchestrator) Leaderboard(ctx context.Context) models.GenerationJob {
	job := newJob(models.JobLeaderboard)

	started := o.producer.TriggerAsync(context.WithoutCancel(ctx))
	if !started {
		o.logger.Printf("leaderboard build already running, trigger dropped")
	}

	if name, ok := o.producer.Latest(); ok {
		job.Status = models.JobReady
		job.CompletedAt = timePtr(time.Now().UTC())
		job.ResultRef = name
		return job
	}
	return job
}
