package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/smart-trendz/trendz/models"
)

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		ID:      "snap-1",
		TakenAt: time.Date(2025, 10, 2, 8, 0, 0, 0, time.UTC),
		Articles: []models.ArticleRecord{
			{SourceID: "newsletter", Title: "GPT-5 is here", URL: "https://example.com/p/gpt-5"},
		},
		Coverage: map[string]models.SourceCoverage{
			"newsletter": {Fetched: 1, Kept: 1},
		},
	}
}

func TestSaveSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	snap := testSnapshot()

	insert := regexp.QuoteMeta(`INSERT INTO snapshots (id,taken_at,payload) VALUES ($1,$2,$3)`)
	mock.ExpectExec(insert).
		WithArgs(snap.ID, snap.TakenAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	prune := regexp.QuoteMeta(`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT $1)`)
	mock.ExpectExec(prune).
		WithArgs(10).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := st.SaveSnapshot(context.Background(), snap, 10); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveSnapshotSkipsPruneWhenKeepUnset(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	snap := testSnapshot()

	insert := regexp.QuoteMeta(`INSERT INTO snapshots (id,taken_at,payload) VALUES ($1,$2,$3)`)
	mock.ExpectExec(insert).
		WithArgs(snap.ID, snap.TakenAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.SaveSnapshot(context.Background(), snap, 0); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestSnapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	snap := testSnapshot()
	payload, _ := json.Marshal(snap)

	query := regexp.QuoteMeta(`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT 1`)
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := st.LatestSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if got.ID != snap.ID || !got.TakenAt.Equal(snap.TakenAt) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Articles) != 1 || got.Articles[0].Title != "GPT-5 is here" {
		t.Fatalf("articles mismatch: %+v", got.Articles)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLatestSnapshotEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}

	query := regexp.QuoteMeta(`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT 1`)
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	_, err = st.LatestSnapshot(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestRecentSnapshots(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	st := &Store{DB: db}
	first := testSnapshot()
	second := testSnapshot()
	second.ID = "snap-2"
	p1, _ := json.Marshal(second)
	p2, _ := json.Marshal(first)

	query := regexp.QuoteMeta(`SELECT payload FROM snapshots ORDER BY taken_at DESC LIMIT 2`)
	mock.ExpectQuery(query).
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(p1).AddRow(p2))

	got, err := st.RecentSnapshots(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(got) != 2 || got[0].ID != "snap-2" || got[1].ID != "snap-1" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
