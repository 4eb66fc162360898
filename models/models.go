package models

import (
	"errors"
	"time"
)

// ErrProfileNotFound is returned when no profile exists for a user id.
var ErrProfileNotFound = errors.New("profile not found")

// ArticleRecord is the normalized article shape every source fetcher produces.
// Source-specific fields never leak past the fetcher boundary.
type ArticleRecord struct {
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SourceCoverage records how many articles a source contributed to a snapshot.
type SourceCoverage struct {
	Fetched int `json:"fetched"`
	Kept    int `json:"kept"`
}

// Snapshot is an immutable, timestamped aggregated article set. A new
// aggregation run supersedes the previous snapshot, it never merges into it.
type Snapshot struct {
	ID       string                    `json:"id"`
	TakenAt  time.Time                 `json:"taken_at"`
	Articles []ArticleRecord           `json:"articles"`
	Coverage map[string]SourceCoverage `json:"coverage"`
	Warnings []string                  `json:"warnings,omitempty"`
}

// UserProfile is loaded by the profile collaborator and treated as an
// immutable input per request.
type UserProfile struct {
	UserID      string   `json:"user_id" yaml:"user_id"`
	DisplayName string   `json:"name" yaml:"name"`
	JobTitle    string   `json:"job_title" yaml:"job_title"`
	Interests   string   `json:"interests" yaml:"interests"`
	Tags        []string `json:"tags" yaml:"tags"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a chat session.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type JobKind string

const (
	JobReport      JobKind = "report"
	JobPost        JobKind = "post"
	JobLeaderboard JobKind = "leaderboard"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobReady   JobStatus = "ready"
	JobFailed  JobStatus = "failed"
)

// GenerationJob describes the outcome of a generation request. Report and
// post are synchronous but share the status vocabulary with the asynchronous
// leaderboard job. Status transitions are monotone: pending may move to ready
// or failed, terminal states never change.
type GenerationJob struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	Status      JobStatus  `json:"status"`
	ResultRef   string     `json:"result_ref,omitempty"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
