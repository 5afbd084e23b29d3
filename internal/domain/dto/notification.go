package dto

import "time"

// PendingNotification is one reminder the backend currently holds.
type PendingNotification struct {
	Key     string    `json:"key"`
	FiresAt time.Time `json:"fires_at"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
}

// ReconcileReport summarises one cancel-then-rebuild pass.
type ReconcileReport struct {
	RunID      string        `json:"run_id"`
	UserID     int64         `json:"user_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Cancelled  int           `json:"cancelled"`
	Kept       int           `json:"kept"`
	Scheduled  int           `json:"scheduled"`
	Failed     int           `json:"failed"`
	TargetKeys []string      `json:"target_keys"`
}

// NotificationStatus is the diagnostics view of the scheduler.
type NotificationStatus struct {
	Scheduled     int64            `json:"scheduled"`
	Cancelled     int64            `json:"cancelled"`
	Failures      int64            `json:"failures"`
	LastError     string           `json:"last_error,omitempty"`
	LastErrorAt   *time.Time       `json:"last_error_at,omitempty"`
	LastReconcile *ReconcileReport `json:"last_reconcile,omitempty"`
}
