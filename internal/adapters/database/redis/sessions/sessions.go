package sessions

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Storage remembers the signed-in user across restarts.
type Storage struct {
	redis *redis.Client
	key   string
}

func NewStorage(client *redis.Client, prefix string) *Storage {
	return &Storage{
		redis: client,
		key:   prefix + ":session:active_user",
	}
}

// Get returns the stored user id; ok is false when nobody is signed in.
func (s *Storage) Get(ctx context.Context) (int64, bool, error) {
	data, err := s.redis.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	userID, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (s *Storage) Set(ctx context.Context, userID int64) error {
	return s.redis.Set(ctx, s.key, strconv.FormatInt(userID, 10), 0).Err()
}

func (s *Storage) Clear(ctx context.Context) error {
	return s.redis.Del(ctx, s.key).Err()
}
