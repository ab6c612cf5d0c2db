// Package middleware attaches a per-browser dashboard Shell to every
// request.
//
// A browser is identified by a random session cookie. Live dashboard state
// stays in the process and is dropped after the session has been idle for
// its ttl; only the sign-in itself is written to storage, so a restarted
// dashboard picks the user's session back up on their next request.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/student-dashboard/internal/dashboard"
	"github.com/aanand-mishra/student-dashboard/internal/metrics"
	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// ShellFactory builds the state for a new browser session.
type ShellFactory func() *dashboard.Shell

type entry struct {
	shell    *dashboard.Shell
	lastSeen time.Time
}

// Sessions is the registry of live shells, keyed by session id.
type Sessions struct {
	mu      sync.Mutex
	entries map[string]*entry

	newShell ShellFactory
	store    storage.Storage
	ttl      time.Duration
	now      func() time.Time
}

func NewSessions(newShell ShellFactory, store storage.Storage, ttl time.Duration) *Sessions {
	return &Sessions{
		entries:  make(map[string]*entry),
		newShell: newShell,
		store:    store,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Open returns the shell for id, creating one when it is not live. A new
// shell is signed back in when the store remembers a sign-in for id.
func (s *Sessions) Open(ctx context.Context, id string) *dashboard.Shell {
	now := s.now()

	s.mu.Lock()
	if e, ok := s.entries[id]; ok {
		e.lastSeen = now
		s.mu.Unlock()
		return e.shell
	}
	s.mu.Unlock()

	shell := s.newShell()
	s.restore(ctx, id, shell, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		// Another request for the same browser won the race.
		shell.Close()
		e.lastSeen = now
		return e.shell
	}
	s.entries[id] = &entry{shell: shell, lastSeen: now}
	metrics.SetActiveSessions(len(s.entries))
	return shell
}

func (s *Sessions) restore(ctx context.Context, id string, shell *dashboard.Shell, now time.Time) {
	session, err := s.store.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Error("failed to load session", slog.String("session", id), slog.String("error", err.Error()))
		return
	}
	if session.Expired(now) {
		_ = s.store.DeleteSession(ctx, id)
		return
	}
	shell.Restore(session)
	slog.Info("session restored", slog.String("session", id), slog.String("email", session.Email))
}

// Remember persists a sign-in under id.
func (s *Sessions) Remember(ctx context.Context, id string, session types.AuthSession) error {
	session.SessionID = id
	ttl := s.ttl
	if !session.ExpiresAt.IsZero() {
		if left := session.ExpiresAt.Sub(s.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.store.SaveSession(ctx, session, ttl); err != nil {
		return fmt.Errorf("remember session: %w", err)
	}
	return nil
}

// Forget removes the persisted sign-in for id. The live shell stays.
func (s *Sessions) Forget(ctx context.Context, id string) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("forget session: %w", err)
	}
	return nil
}

// Len is the number of live shells.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evict closes and drops shells idle for longer than the ttl. It returns
// how many were dropped.
func (s *Sessions) Evict(now time.Time) int {
	s.mu.Lock()
	var idle []*dashboard.Shell
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			idle = append(idle, e.shell)
			delete(s.entries, id)
		}
	}
	metrics.SetActiveSessions(len(s.entries))
	s.mu.Unlock()

	for _, shell := range idle {
		shell.Close()
	}
	return len(idle)
}

// Run evicts idle shells every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}

type ctxKey struct{}

type current struct {
	id    string
	shell *dashboard.Shell
}

// Shell returns the request's dashboard state. It panics when the Session
// middleware is missing from the chain.
func Shell(ctx context.Context) *dashboard.Shell {
	return ctx.Value(ctxKey{}).(current).shell
}

// SessionID returns the request's session id.
func SessionID(ctx context.Context) string {
	c, _ := ctx.Value(ctxKey{}).(current)
	return c.id
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Session reads or issues the session cookie and puts the browser's
// Shell in the request context.
func Session(sessions *Sessions, opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(opts.Name); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				slog.Debug("new browser session", slog.String("session", id))
			}
			http.SetCookie(w, &http.Cookie{
				Name:     opts.Name,
				Value:    id,
				Path:     "/",
				MaxAge:   int(opts.MaxAge.Seconds()),
				HttpOnly: true,
				Secure:   opts.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			shell := sessions.Open(r.Context(), id)
			ctx := context.WithValue(r.Context(), ctxKey{}, current{id: id, shell: shell})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
