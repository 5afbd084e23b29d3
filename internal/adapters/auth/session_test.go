package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinylhub/eventsync/internal/adapters/database/redis/sessions"
	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
)

type recordingListener struct {
	logins  []int64
	logouts []int64
}

func (l *recordingListener) OnLogin(_ context.Context, userID int64, _ time.Time) {
	l.logins = append(l.logins, userID)
}

func (l *recordingListener) OnLogout(_ context.Context, userID int64) {
	l.logouts = append(l.logouts, userID)
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	s := NewSession(nil, nil)
	l := &recordingListener{}
	s.AddListener(l)

	_, ok := s.UserID()
	assert.False(t, ok)

	require.NoError(t, s.Login(ctx, 1, time.Now()))
	userID, ok := s.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(1), userID)
	assert.Equal(t, []int64{1}, l.logins)

	require.NoError(t, s.Logout(ctx))
	require.NoError(t, s.Logout(ctx))
	_, ok = s.UserID()
	assert.False(t, ok)
	assert.Equal(t, []int64{1}, l.logouts)

	err := s.Login(ctx, 0, time.Now())
	assert.True(t, errorz.IsValidation(err))
}

func TestRestoreFromRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := sessions.NewStorage(client, "test")

	first := NewSession(store, nil)
	require.NoError(t, first.Login(ctx, 7, time.Now()))

	second := NewSession(store, nil)
	l := &recordingListener{}
	second.AddListener(l)
	userID, ok, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), userID)
	assert.Empty(t, l.logins)

	require.NoError(t, second.Logout(ctx))
	_, ok, err = NewSession(store, nil).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
