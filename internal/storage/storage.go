// Package storage defines the Storage interface for remembered sign-ins.
//
// The dashboard keeps live UI state in memory, but a signed-in user's
// token survives a restart through one of the implementations:
//
//	memory — process-local map (default)
//	sqlite — single file on disk
//	redis  — shared between dashboard replicas
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// ErrNotFound is returned when no live session exists for an id.
var ErrNotFound = errors.New("storage: session not found")

// Storage is the session persistence contract.
type Storage interface {
	// SaveSession inserts or replaces the session; it is kept for at most ttl.
	SaveSession(ctx context.Context, session types.AuthSession, ttl time.Duration) error

	// GetSession returns the session or ErrNotFound when it is missing or
	// its ttl has passed.
	GetSession(ctx context.Context, id string) (types.AuthSession, error)

	// DeleteSession removes the session. Deleting a missing id is not an error.
	DeleteSession(ctx context.Context, id string) error

	Close() error
}
