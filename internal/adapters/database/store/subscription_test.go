package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/entity"
)

func TestSubscriptionCreateDuplicateFails(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptionStorage(newTestDB(t))

	_, err := subs.Create(ctx, &entity.Subscription{EventID: 5, UserID: 1, SubscribedAt: base})
	require.NoError(t, err)

	_, err = subs.Create(ctx, &entity.Subscription{EventID: 5, UserID: 1, SubscribedAt: base})
	require.Error(t, err)
	assert.True(t, errorz.IsPersistence(err))
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSubscriptionUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptionStorage(newTestDB(t))

	first, err := subs.Upsert(ctx, &entity.Subscription{EventID: 5, UserID: 1, NotificationEnabled: true, SubscribedAt: base})
	require.NoError(t, err)
	assert.True(t, first.NotificationEnabled)

	later := base.Add(time.Hour)
	second, err := subs.Upsert(ctx, &entity.Subscription{EventID: 5, UserID: 1, NotificationEnabled: false, SubscribedAt: later})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.NotificationEnabled)
	assert.True(t, second.SubscribedAt.Equal(later))

	rows, err := subs.GetByEventID(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSubscriptionSetNotification(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptionStorage(newTestDB(t))

	_, err := subs.Upsert(ctx, &entity.Subscription{EventID: 5, UserID: 1, NotificationEnabled: true, SubscribedAt: base})
	require.NoError(t, err)

	require.NoError(t, subs.SetNotification(ctx, 5, 1, false))
	got, err := subs.Get(ctx, 5, 1)
	require.NoError(t, err)
	assert.False(t, got.NotificationEnabled)

	err = subs.SetNotification(ctx, 5, 2, true)
	require.ErrorIs(t, err, errorz.ErrNotFound)
}

func TestSubscriptionDeleteAndLookups(t *testing.T) {
	ctx := context.Background()
	subs := NewSubscriptionStorage(newTestDB(t))

	for _, s := range []entity.Subscription{
		{EventID: 5, UserID: 1, NotificationEnabled: true, SubscribedAt: base},
		{EventID: 5, UserID: 2, SubscribedAt: base},
		{EventID: 9, UserID: 1, SubscribedAt: base},
	} {
		s := s
		_, err := subs.Create(ctx, &s)
		require.NoError(t, err)
	}

	count, err := subs.CountByEventID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	mine, err := subs.GetByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(5), mine[0].EventID)
	assert.Equal(t, int64(9), mine[1].EventID)

	existed, err := subs.Delete(ctx, 5, 1)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = subs.Delete(ctx, 5, 1)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = subs.Get(ctx, 5, 1)
	require.ErrorIs(t, err, errorz.ErrNotFound)

	removed, err := subs.DeleteByEventID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
