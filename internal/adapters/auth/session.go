package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vinylhub/eventsync/internal/domain/common/errorz"
	"github.com/vinylhub/eventsync/pkg/logger/types"
)

// Listener is told about sign-in changes. Calls happen after the session changed.
type Listener interface {
	OnLogin(ctx context.Context, userID int64, now time.Time)
	OnLogout(ctx context.Context, userID int64)
}

// Store persists the active user between restarts.
type Store interface {
	Get(ctx context.Context) (int64, bool, error)
	Set(ctx context.Context, userID int64) error
	Clear(ctx context.Context) error
}

// Session holds the single active user of this process.
type Session struct {
	mu     sync.RWMutex
	userID int64
	active bool

	store     Store
	listeners []Listener
	logger    *types.Logger
}

// NewSession builds an empty session. store may be nil.
func NewSession(store Store, logger *types.Logger) *Session {
	if logger == nil {
		logger = types.Nop()
	}
	return &Session{store: store, logger: logger}
}

func (s *Session) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// UserID returns the active user; ok is false when nobody is signed in.
func (s *Session) UserID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.active
}

// Restore loads the active user from the store without notifying listeners.
func (s *Session) Restore(ctx context.Context) (int64, bool, error) {
	if s.store == nil {
		return 0, false, nil
	}
	userID, ok, err := s.store.Get(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("restore session: %w", err)
	}
	s.mu.Lock()
	s.userID, s.active = userID, ok
	s.mu.Unlock()
	return userID, ok, nil
}

// Login makes userID the active user and notifies listeners.
func (s *Session) Login(ctx context.Context, userID int64, now time.Time) error {
	if userID <= 0 {
		return errorz.Invalid("user_id", "must be positive")
	}
	if s.store != nil {
		if err := s.store.Set(ctx, userID); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	s.mu.Lock()
	s.userID, s.active = userID, true
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	s.logger.Infof("User signed in (user_id=%d)", userID)
	for _, l := range listeners {
		l.OnLogin(ctx, userID, now)
	}
	return nil
}

// Logout clears the active user and notifies listeners. Logging out with nobody
// signed in is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	userID, active := s.userID, s.active
	s.userID, s.active = 0, false
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if !active {
		return nil
	}
	if s.store != nil {
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Errorf("failed to clear stored session (user_id=%d): %v", userID, err)
		}
	}

	s.logger.Infof("User signed out (user_id=%d)", userID)
	for _, l := range listeners {
		l.OnLogout(ctx, userID)
	}
	return nil
}
