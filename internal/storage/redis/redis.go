// Package redis stores sessions in Redis so several dashboard processes
// can share sign-ins.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

const keyPrefix = "dashboard:session:"

// Redis keeps each session as a JSON value under keyPrefix+id and lets the
// server expire it with the key's ttl.
type Redis struct {
	client *goredis.Client
}

// New connects and pings the server.
func New(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}
	return &Redis{client: client}, nil
}

// SaveSession writes the session with SET ... EX ttl, replacing any
// previous value.
func (r *Redis) SaveSession(ctx context.Context, session types.AuthSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("SaveSession: marshal: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+session.SessionID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("SaveSession: set: %w", err)
	}
	return nil
}

// GetSession reads and decodes the session. A missing or expired key is
// storage.ErrNotFound.
func (r *Redis) GetSession(ctx context.Context, id string) (types.AuthSession, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return types.AuthSession{}, storage.ErrNotFound
		}
		return types.AuthSession{}, fmt.Errorf("GetSession: get: %w", err)
	}
	var session types.AuthSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return types.AuthSession{}, fmt.Errorf("GetSession: decode: %w", err)
	}
	return session, nil
}

// DeleteSession removes the key; deleting a missing key is not an error.
func (r *Redis) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("DeleteSession: del: %w", err)
	}
	return nil
}

// Close closes the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
