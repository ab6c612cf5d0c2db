// Package storagetest holds the behaviour every storage.Storage must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/storage"
	"github.com/aanand-mishra/student-dashboard/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s. s must be empty.
func Run(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	session := types.AuthSession{
		SessionID:    "sess-1",
		UserID:       "user-1",
		Email:        "alice@example.com",
		IDToken:      "id-token",
		RefreshToken: "refresh-token",
		Admin:        true,
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}

	_, err := s.GetSession(ctx, session.SessionID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.SaveSession(ctx, session, time.Hour))
	got, err := s.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Email, got.Email)
	assert.Equal(t, session.IDToken, got.IDToken)
	assert.Equal(t, session.RefreshToken, got.RefreshToken)
	assert.True(t, got.Admin)
	assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt), "expires at %s, got %s", session.ExpiresAt, got.ExpiresAt)

	session.Admin = false
	require.NoError(t, s.SaveSession(ctx, session, time.Hour))
	got, err = s.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.False(t, got.Admin, "save must replace")

	require.NoError(t, s.DeleteSession(ctx, session.SessionID))
	_, err = s.GetSession(ctx, session.SessionID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, s.DeleteSession(ctx, "missing"))
}
