package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vinylhub/eventsync/internal/domain/dto"
)

// Storage keeps pending reminders in redis so they survive a restart. A sorted set
// indexes keys by fire time (unix milliseconds) and a hash holds the payloads.
// Immediate notifications go to a list drained by Due.
type Storage struct {
	redis *redis.Client

	scheduleKey string
	payloadKey  string
	shownKey    string
}

func NewStorage(client *redis.Client, prefix string) *Storage {
	return &Storage{
		redis:       client,
		scheduleKey: prefix + ":notifications:schedule",
		payloadKey:  prefix + ":notifications:payload",
		shownKey:    prefix + ":notifications:shown",
	}
}

// ScheduleAt stores a reminder, replacing one with the same key.
func (s *Storage) ScheduleAt(ctx context.Context, key string, firesAt time.Time, title, body string) error {
	payload, err := json.Marshal(dto.PendingNotification{Key: key, FiresAt: firesAt.UTC(), Title: title, Body: body})
	if err != nil {
		return err
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.scheduleKey, redis.Z{Score: float64(firesAt.UnixMilli()), Member: key})
		pipe.HSet(ctx, s.payloadKey, key, payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", key, err)
	}
	return nil
}

// Cancel drops a reminder. Unknown keys are ignored.
func (s *Storage) Cancel(ctx context.Context, key string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, s.scheduleKey, key)
		pipe.HDel(ctx, s.payloadKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cancel %s: %w", key, err)
	}
	return nil
}

// ListPending returns reminders ordered by fire time, then key.
func (s *Storage) ListPending(ctx context.Context) ([]dto.PendingNotification, error) {
	raw, err := s.redis.HGetAll(ctx, s.payloadKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	out := make([]dto.PendingNotification, 0, len(raw))
	for key, data := range raw {
		var p dto.PendingNotification
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode pending %s: %w", key, err)
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FiresAt.Equal(out[j].FiresAt) {
			return out[i].FiresAt.Before(out[j].FiresAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Show queues a notification for immediate delivery.
func (s *Storage) Show(ctx context.Context, key, title, body string) error {
	payload, err := json.Marshal(dto.PendingNotification{Key: key, FiresAt: time.Now().UTC(), Title: title, Body: body})
	if err != nil {
		return err
	}
	return s.redis.RPush(ctx, s.shownKey, payload).Err()
}

// Due removes and returns every reminder firing at or before now, plus anything
// queued through Show. A reminder is returned by at most one caller: only the
// caller whose ZREM removed the key gets it. The claim and the payload removal run
// in one MULTI so a claimed reminder never lingers in ListPending.
func (s *Storage) Due(ctx context.Context, now time.Time) ([]dto.PendingNotification, error) {
	due, err := s.drainShown(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := s.redis.ZRangeByScore(ctx, s.scheduleKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return due, fmt.Errorf("range due: %w", err)
	}

	for _, key := range keys {
		var (
			removed *redis.IntCmd
			payload *redis.StringCmd
			cleared *redis.IntCmd
		)
		_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			removed = pipe.ZRem(ctx, s.scheduleKey, key)
			payload = pipe.HGet(ctx, s.payloadKey, key)
			cleared = pipe.HDel(ctx, s.payloadKey, key)
			return nil
		})
		if err != nil && !errors.Is(err, redis.Nil) {
			return due, fmt.Errorf("claim %s: %w", key, err)
		}
		if err := removed.Err(); err != nil {
			return due, fmt.Errorf("claim %s: %w", key, err)
		}
		if removed.Val() == 0 {
			continue
		}
		data, err := payload.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return due, fmt.Errorf("load %s: %w", key, err)
		}

		var p dto.PendingNotification
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return due, fmt.Errorf("decode pending %s: %w", key, err)
		}
		due = append(due, p)

		if err := cleared.Err(); err != nil {
			return due, fmt.Errorf("clear payload %s: %w", key, err)
		}
	}
	return due, nil
}

func (s *Storage) drainShown(ctx context.Context) ([]dto.PendingNotification, error) {
	var due []dto.PendingNotification
	for {
		data, err := s.redis.LPop(ctx, s.shownKey).Result()
		if errors.Is(err, redis.Nil) {
			return due, nil
		}
		if err != nil {
			return due, fmt.Errorf("pop shown: %w", err)
		}
		var p dto.PendingNotification
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return due, fmt.Errorf("decode shown: %w", err)
		}
		due = append(due, p)
	}
}
