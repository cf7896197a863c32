// Package storage is a SQLite-backed source for the reports/interventions feed.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rendis/denguemap/internal/model"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL DEFAULT 'report',
		status TEXT NOT NULL DEFAULT '',
		lat REAL,
		lng REAL,
		barangay TEXT,
		description TEXT,
		reported_at TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_reports_kind ON reports(kind);
	CREATE INDEX IF NOT EXISTS idx_reports_coords ON reports(lat, lng);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// InsertBatch stores reports, ignoring IDs already present. It returns how many
// rows were inserted.
func (s *Store) InsertBatch(ctx context.Context, reports []model.Report) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO reports
		(id, kind, status, lat, lng, barangay, description, reported_at)
		VALUES (?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range reports {
		var reportedAt any
		if !r.ReportedAt.IsZero() {
			reportedAt = r.ReportedAt.UTC().Format(time.RFC3339)
		}
		res, err := stmt.ExecContext(ctx,
			r.ID, string(r.Kind), r.Status, r.Lat, r.Lng,
			r.Barangay, r.Description, reportedAt,
		)
		if err != nil {
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}
	return inserted, nil
}

// ListReports returns every stored report ordered by ID.
func (s *Store) ListReports(ctx context.Context) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, status, lat, lng, barangay, description, reported_at
		FROM reports ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		var (
			r                     model.Report
			kind                  string
			lat, lng              sql.NullFloat64
			barangay, description sql.NullString
			reportedAt            sql.NullString
		)
		if err := rows.Scan(&r.ID, &kind, &r.Status, &lat, &lng, &barangay, &description, &reportedAt); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		r.Kind = model.ReportKind(kind)
		r.Lat, r.Lng = lat.Float64, lng.Float64
		r.Barangay, r.Description = barangay.String, description.String
		if reportedAt.Valid {
			if t, err := time.Parse(time.RFC3339, reportedAt.String); err == nil {
				r.ReportedAt = t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reports adapts the store to the engine's report source.
func (s *Store) Reports(ctx context.Context) model.Result[[]model.Report] {
	reports, err := s.ListReports(ctx)
	if err != nil {
		return model.Err[[]model.Report](err)
	}
	return model.Ok(reports)
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM reports").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
