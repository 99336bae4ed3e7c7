package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "hostelhunt/internal/domain/auth"
	domainuser "hostelhunt/internal/domain/user"
)

func newStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client, "test"), mr
}

func session(t *testing.T, id string, user domainuser.ID, ttl time.Duration) *domainauth.Session {
	t.Helper()
	s, err := domainauth.NewSession(domainauth.CreateSessionParams{
		ID:     domainauth.SessionID(id),
		UserID: user,
		Role:   domainuser.RoleStudent,
		TTL:    ttl,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session(t, "s1", "u1", time.Hour)))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domainuser.ID("u1"), got.UserID)
	assert.Equal(t, domainuser.RoleStudent, got.Role)
	assert.True(t, mr.TTL("test:session:s1") > 59*time.Minute)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	require.NoError(t, store.Delete(ctx, "s1"))
}

func TestSessionExpiresWithTTL(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session(t, "s1", "u1", time.Minute)))
	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestDeleteByUserRevokesAllSessions(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session(t, "a", "u1", time.Hour)))
	require.NoError(t, store.Save(ctx, session(t, "b", "u1", time.Hour)))
	require.NoError(t, store.Save(ctx, session(t, "c", "u2", time.Hour)))

	require.NoError(t, store.DeleteByUser(ctx, "u1"))
	for _, id := range []domainauth.SessionID{"a", "b"} {
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	}
	_, err := store.Get(ctx, "c")
	assert.NoError(t, err)
}
