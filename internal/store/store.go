package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"github.com/smart-trendz/trendz/models"
)

// ErrNoSnapshot is returned when no snapshot has been persisted yet.
var ErrNoSnapshot = errors.New("no snapshot available")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store persists aggregation snapshots in Postgres. Snapshots are written
// once and never updated; retention keeps only the most recent N rows.
type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// SaveSnapshot inserts the snapshot and prunes rows beyond keep. Pruning
// failure is reported but the insert stays committed.
func (s *Store) SaveSnapshot(ctx context.Context, snap models.Snapshot, keep int) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query, args, err := psql.Insert("snapshots").
		Columns("id", "taken_at", "payload").
		Values(snap.ID, snap.TakenAt, payload).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if keep > 0 {
		if err := s.prune(ctx, keep); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
	}
	return nil
}

func (s *Store) prune(ctx context.Context, keep int) error {
	query, args, err := psql.Delete("snapshots").
		Where("id NOT IN (SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT ?)", keep).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, query, args...)
	return err
}

// LatestSnapshot returns the most recently taken snapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	query, args, err := psql.Select("payload").
		From("snapshots").
		OrderBy("taken_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var payload []byte
	if err := s.DB.QueryRowContext(ctx, query, args...).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// RecentSnapshots returns up to n snapshots, newest first.
func (s *Store) RecentSnapshots(ctx context.Context, n int) ([]models.Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	query, args, err := psql.Select("payload").
		From("snapshots").
		OrderBy("taken_at DESC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap models.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
