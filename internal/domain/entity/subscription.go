package entity

import "time"

// Subscription is one user's interest in one event. At most one row exists per
// (EventID, UserID).
type Subscription struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement"`
	EventID             int64     `gorm:"column:event_id;not null;index:idx_subscriptions_event;uniqueIndex:idx_subscriptions_event_user,priority:1"`
	UserID              int64     `gorm:"column:user_id;not null;index:idx_subscriptions_user;uniqueIndex:idx_subscriptions_event_user,priority:2"`
	NotificationEnabled bool      `gorm:"column:notification_enabled;not null"`
	SubscribedAt        time.Time `gorm:"column:subscribed_at;type:text;not null;serializer:instant"`
}

func (Subscription) TableName() string {
	return "event_subscriptions"
}
