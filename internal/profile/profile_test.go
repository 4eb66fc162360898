package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/smart-trendz/trendz/models"
)

const demoProfile = `user_id: demo
name: Demo User
job_title: ML Engineer
interests: large language models, evaluation
tags:
  - llm
  - benchmarks
`

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "demo.yaml"), []byte(demoProfile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	m, err := NewManager(dir, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	p, err := m.Load("demo")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.DisplayName != "Demo User" || p.JobTitle != "ML Engineer" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "llm" {
		t.Fatalf("unexpected tags %v", p.Tags)
	}
}

func TestLoadUnknownUser(t *testing.T) {
	m, _ := NewManager(t.TempDir(), nil)
	if _, err := m.Load("nobody"); !errors.Is(err, models.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestLoadRejectsPathEscapes(t *testing.T) {
	m, _ := NewManager(t.TempDir(), nil)
	for _, bad := range []string{"../etc/passwd", "a/b", "", "x.y"} {
		if _, err := m.Load(bad); !errors.Is(err, models.ErrProfileNotFound) {
			t.Fatalf("Load(%q) should report not found, got %v", bad, err)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	m, _ := NewManager(t.TempDir(), nil)
	p := &models.UserProfile{UserID: "dana", DisplayName: "Dana", JobTitle: "Researcher"}
	if err := m.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := m.Load("dana")
	if err != nil {
		t.Fatalf("Load after Save: %v", err)
	}
	if got.DisplayName != "Dana" || got.JobTitle != "Researcher" {
		t.Fatalf("round trip mismatch %+v", got)
	}
}

func TestAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	m, _ := NewManager(t.TempDir(), map[string]string{"demo": string(hash)})

	if !m.Authenticate("demo", "s3cret") {
		t.Fatal("valid credentials rejected")
	}
	if m.Authenticate("demo", "wrong") {
		t.Fatal("wrong password accepted")
	}
	if m.Authenticate("ghost", "s3cret") {
		t.Fatal("unknown user accepted")
	}
}
