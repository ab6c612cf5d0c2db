// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
type SQLite struct {
	Db  *sql.DB
	now func() time.Time
}

// New opens the database at path, creating the file's directory and the
// sessions table when missing.
func New(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite.New: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// Schema:
	//   id            — browser session id (cookie value)
	//   expires_at    — token expiry, unix seconds (0 = unknown)
	//   stored_until  — row ttl, unix seconds
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT    PRIMARY KEY,
			user_id       TEXT    NOT NULL,
			email         TEXT    NOT NULL,
			id_token      TEXT    NOT NULL,
			refresh_token TEXT    NOT NULL,
			admin         INTEGER NOT NULL,
			expires_at    INTEGER NOT NULL,
			stored_until  INTEGER NOT NULL
		)
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db, now: time.Now}, nil
}

// SaveSession upserts the row for session.SessionID.
func (s *SQLite) SaveSession(ctx context.Context, session types.AuthSession, ttl time.Duration) error {
	stmt, err := s.Db.PrepareContext(ctx, `
		INSERT INTO sessions (id, user_id, email, id_token, refresh_token, admin, expires_at, stored_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			id_token = excluded.id_token,
			refresh_token = excluded.refresh_token,
			admin = excluded.admin,
			expires_at = excluded.expires_at,
			stored_until = excluded.stored_until
	`)
	if err != nil {
		return fmt.Errorf("SaveSession: prepare: %w", err)
	}
	defer stmt.Close()

	var expiresAt int64
	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt.Unix()
	}

	_, err = stmt.ExecContext(ctx,
		session.SessionID,
		session.UserID,
		session.Email,
		session.IDToken,
		session.RefreshToken,
		session.Admin,
		expiresAt,
		s.now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("SaveSession: exec: %w", err)
	}
	return nil
}

// GetSession fetches one live row. Rows past stored_until are removed.
func (s *SQLite) GetSession(ctx context.Context, id string) (types.AuthSession, error) {
	stmt, err := s.Db.PrepareContext(ctx, `
		SELECT id, user_id, email, id_token, refresh_token, admin, expires_at, stored_until
		FROM sessions WHERE id = ? LIMIT 1
	`)
	if err != nil {
		return types.AuthSession{}, fmt.Errorf("GetSession: prepare: %w", err)
	}
	defer stmt.Close()

	var (
		session     types.AuthSession
		expiresAt   int64
		storedUntil int64
	)
	err = stmt.QueryRowContext(ctx, id).Scan(
		&session.SessionID,
		&session.UserID,
		&session.Email,
		&session.IDToken,
		&session.RefreshToken,
		&session.Admin,
		&expiresAt,
		&storedUntil,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.AuthSession{}, storage.ErrNotFound
		}
		return types.AuthSession{}, fmt.Errorf("GetSession: scan: %w", err)
	}

	if s.now().Unix() >= storedUntil {
		if err := s.DeleteSession(ctx, id); err != nil {
			return types.AuthSession{}, err
		}
		return types.AuthSession{}, storage.ErrNotFound
	}

	if expiresAt != 0 {
		session.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	return session, nil
}

// DeleteSession removes a row by id.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	_, err := s.Db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteSession: exec: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}
