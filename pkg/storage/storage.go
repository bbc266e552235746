// Package storage persists generated report snapshots for trend review.
package storage

import (
	"context"
	"time"
)

// Snapshot is one saved report generation: a few indexed columns for
// listing, plus the full JSON document.
type Snapshot struct {
	ID               string    `json:"id" db:"id"`
	GeneratedAt      time.Time `json:"generated_at" db:"generated_at"`
	WindowHours      int       `json:"window_hours" db:"window_hours"`
	Region           string    `json:"region" db:"region"`
	TotalInvocations int64     `json:"total_invocations" db:"total_invocations"`
	EstimatedCost    float64   `json:"estimated_cost" db:"estimated_cost"`
	Document         string    `json:"document" db:"document"`
}

// Store defines the persistence layer for report snapshots.
type Store interface {
	// SaveReport persists a snapshot, assigning an ID if missing.
	SaveReport(ctx context.Context, snap *Snapshot) error

	// ListReports returns the most recent snapshots, newest first. A
	// non-positive limit returns all of them.
	ListReports(ctx context.Context, limit int) ([]Snapshot, error)

	// GetReport retrieves a snapshot by ID.
	GetReport(ctx context.Context, id string) (*Snapshot, error)

	// Close releases resources.
	Close() error
}
