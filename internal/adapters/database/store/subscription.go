package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/internal/domain/entity"
)

type SubscriptionStorage struct {
	db *gorm.DB
}

func NewSubscriptionStorage(db *gorm.DB) *SubscriptionStorage {
	return &SubscriptionStorage{
		db: db,
	}
}

// Create inserts a subscription and fails on an existing (event, user) pair.
func (s *SubscriptionStorage) Create(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	err := s.db.WithContext(ctx).Create(sub).Error
	return sub, wrap("create subscription", err)
}

// Upsert inserts a subscription or, on an existing (event, user) pair, replaces its
// notification flag and subscription time. Nothing is merged: the last write wins.
func (s *SubscriptionStorage) Upsert(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"notification_enabled", "subscribed_at"}),
		}).
		Create(sub).Error
	if err != nil {
		return nil, wrap("upsert subscription", err)
	}
	return s.Get(ctx, sub.EventID, sub.UserID)
}

func (s *SubscriptionStorage) Get(ctx context.Context, eventID int64, userID int64) (*entity.Subscription, error) {
	var sub entity.Subscription
	err := s.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).First(&sub).Error
	if err != nil {
		return nil, wrap(fmt.Sprintf("get subscription (event_id=%d, user_id=%d)", eventID, userID), err)
	}
	return &sub, nil
}

// SetNotification flips the alert flag of an existing subscription.
func (s *SubscriptionStorage) SetNotification(ctx context.Context, eventID int64, userID int64, enabled bool) error {
	op := fmt.Sprintf("set notification (event_id=%d, user_id=%d)", eventID, userID)
	res := s.db.WithContext(ctx).
		Model(&entity.Subscription{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Update("notification_enabled", enabled)
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errorz.ErrNotFound)
	}
	return nil
}

// Delete removes one subscription and reports whether a row existed.
func (s *SubscriptionStorage) Delete(ctx context.Context, eventID int64, userID int64) (bool, error) {
	res := s.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&entity.Subscription{})
	if res.Error != nil {
		return false, wrap(fmt.Sprintf("delete subscription (event_id=%d, user_id=%d)", eventID, userID), res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *SubscriptionStorage) DeleteByEventID(ctx context.Context, eventID int64) (int64, error) {
	res := s.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&entity.Subscription{})
	return res.RowsAffected, wrap(fmt.Sprintf("delete subscriptions of event %d", eventID), res.Error)
}

func (s *SubscriptionStorage) GetByEventID(ctx context.Context, eventID int64) ([]entity.Subscription, error) {
	var subs []entity.Subscription
	err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&subs).Error
	return subs, wrap(fmt.Sprintf("get subscriptions of event %d", eventID), err)
}

func (s *SubscriptionStorage) GetByUserID(ctx context.Context, userID int64) ([]entity.Subscription, error) {
	var subs []entity.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&subs).Error
	return subs, wrap(fmt.Sprintf("get subscriptions of user %d", userID), err)
}

func (s *SubscriptionStorage) CountByEventID(ctx context.Context, eventID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Subscription{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, wrap(fmt.Sprintf("count subscriptions of event %d", eventID), err)
}
