package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLite implements the Store interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveReport(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.GeneratedAt.IsZero() {
		snap.GeneratedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_snapshots (id, generated_at, window_hours, region, total_invocations, estimated_cost, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.GeneratedAt, snap.WindowHours, snap.Region,
		snap.TotalInvocations, snap.EstimatedCost, snap.Document,
	)
	if err != nil {
		return fmt.Errorf("insert report snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) ListReports(ctx context.Context, limit int) ([]Snapshot, error) {
	query := `SELECT id, generated_at, window_hours, region, total_invocations, estimated_cost, document
		 FROM report_snapshots ORDER BY generated_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list report snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.GeneratedAt, &snap.WindowHours, &snap.Region,
			&snap.TotalInvocations, &snap.EstimatedCost, &snap.Document); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLite) GetReport(ctx context.Context, id string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRowContext(ctx,
		`SELECT id, generated_at, window_hours, region, total_invocations, estimated_cost, document
		 FROM report_snapshots WHERE id = ?`, id,
	).Scan(&snap.ID, &snap.GeneratedAt, &snap.WindowHours, &snap.Region,
		&snap.TotalInvocations, &snap.EstimatedCost, &snap.Document)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report snapshot %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get report snapshot: %w", err)
	}
	return &snap, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
