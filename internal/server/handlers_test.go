package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/smart-trendz/trendz/config"
	"github.com/smart-trendz/trendz/internal/artifact"
	"github.com/smart-trendz/trendz/internal/leaderboard"
	"github.com/smart-trendz/trendz/internal/orchestrator"
	"github.com/smart-trendz/trendz/internal/profile"
	"github.com/smart-trendz/trendz/internal/session"
	"github.com/smart-trendz/trendz/models"
)

type stubSnapshots struct{}

func (stubSnapshots) Aggregate(ctx context.Context, force bool) (*models.Snapshot, error) {
	return &models.Snapshot{
		ID:      "snap-1",
		TakenAt: time.Now().UTC(),
		Articles: []models.ArticleRecord{
			{SourceID: "newsletter", Title: "LLM news", URL: "https://e.com/a"},
		},
	}, nil
}

type stubGenerator struct{ reply string }

func (s stubGenerator) Complete(ctx context.Context, system string, turns []models.Turn) (string, error) {
	return s.reply, nil
}

func newTestHandler(t *testing.T) (*Handler, *artifact.Store) {
	t.Helper()

	dir := t.TempDir()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	profiles, err := profile.NewManager(dir, map[string]string{"demo": string(hash)})
	if err != nil {
		t.Fatalf("profile manager: %v", err)
	}
	profileYAML := "user_id: demo\nname: Demo\njob_title: Engineer\ninterests: llm\ntags: [llm]\n"
	if err := os.WriteFile(filepath.Join(dir, "demo.yaml"), []byte(profileYAML), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	artifacts, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Profiles:  profiles,
		Snapshots: stubSnapshots{},
		Generator: stubGenerator{reply: "generated text"},
		Sessions:  session.NewStore(time.Minute),
		Artifacts: artifacts,
		Producer:  leaderboard.NewProducer(config.LeaderboardConfig{DatasetURL: "http://127.0.0.1:0", PageSize: 1, MaxPages: 1, Timeout: time.Second}, artifacts),
		Logger:    log.New(io.Discard, "", 0),
	})
	return &Handler{Orch: orch, Profiles: profiles, Artifacts: artifacts}, artifacts
}

func doJSON(t *testing.T, e http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newEcho()
	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestLogin(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/login", `{"user_id":"demo","password":"s3cret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid login = %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodPost, "/api/auth/login", `{"user_id":"demo","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", rec.Code)
	}
}

func TestGenerateReportEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/reports", `{"user_id":"demo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reports = %d %s", rec.Code, rec.Body.String())
	}
	var job models.GenerationJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Status != models.JobReady || job.Result != "generated text" {
		t.Fatalf("unexpected job %+v", job)
	}
	if !strings.HasPrefix(job.ResultRef, "demo_report_") {
		t.Fatalf("unexpected result ref %q", job.ResultRef)
	}
}

func TestGenerateReportUnknownUserIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/reports", `{"user_id":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Fatalf("error body must be JSON with error key: %s", rec.Body.String())
	}
}

func TestGeneratePostBadOption(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/posts", `{"user_id":"demo","option":"whatever"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGeneratePostFromReportWithoutReportIs409(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/posts", `{"user_id":"demo","option":"from_report"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestChatEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", `{"user_id":"demo","message":"hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("chat = %d %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["session_id"] == "" || resp["reply"] != "generated text" {
		t.Fatalf("unexpected chat response %v", resp)
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/chat/"+resp["session_id"], "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close chat = %d", rec.Code)
	}
}

func TestChatValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/chat", `{"user_id":"demo"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing message should 400, got %d", rec.Code)
	}
}

func TestServeLeaderboard(t *testing.T) {
	h, artifacts := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodGet, "/leaderboard/..%2Fsecrets.html", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("traversal name should 400, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/leaderboard/livebench_leaderboard_20251002_090000.html", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing artifact should 404, got %d", rec.Code)
	}

	if err := artifacts.Put("livebench_leaderboard_20251002_090000.html", []byte("<html>board</html>")); err != nil {
		t.Fatalf("publish artifact: %v", err)
	}
	rec = doJSON(t, e, http.MethodGet, "/leaderboard/livebench_leaderboard_20251002_090000.html", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "board") {
		t.Fatalf("serve leaderboard = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetReportEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/reports", `{"user_id":"demo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reports = %d %s", rec.Code, rec.Body.String())
	}
	var job models.GenerationJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/reports/"+job.ResultRef+"?user_id=demo", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get report = %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "generated text") {
		t.Fatalf("report body missing content: %s", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/api/reports/"+job.ResultRef+"?user_id=other", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign report should 403, got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/reports/demo_report_19990101_000000.json?user_id=demo", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing report should 404, got %d", rec.Code)
	}
}

func TestRecommendVideosEndpointDisabled(t *testing.T) {
	h, _ := newTestHandler(t)
	e := newEcho()
	h.Register(e)

	rec := doJSON(t, e, http.MethodPost, "/api/videos", `{"user_id":"demo"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured videos should 503, got %d %s", rec.Code, rec.Body.String())
	}
}
