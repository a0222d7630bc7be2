// Package store persists saved sessions.
package store

import (
	"context"
	"time"

	"chromalyzer/internal/session"
)

// SessionSummary is the list view of a stored session, cheap to query
// because it never touches the trace payload.
type SessionSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	TraceCount int       `json:"trace_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Catalog stores full session documents keyed by session ID.
type Catalog interface {
	Save(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	List(ctx context.Context) ([]SessionSummary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
