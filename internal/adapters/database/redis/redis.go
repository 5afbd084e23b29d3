package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vinylhub/eventsync/internal/adapters/database/redis/pending"
	"github.com/vinylhub/eventsync/internal/adapters/database/redis/sessions"
)

type Client struct {
	Pending  *pending.Storage
	Sessions *sessions.Storage

	clients []*redis.Client
}

type Options struct {
	Host     string
	Port     string
	Password string
	// DB is the index of the pending-notification database; sessions use DB+1.
	DB     int
	Prefix string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "eventsync"
	}

	pendingStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := pendingStorage.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping pending storage: %w", err)
	}

	sessionStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB + 1,
	})
	if err := sessionStorage.Ping(ctx).Err(); err != nil {
		_ = pendingStorage.Close()
		return nil, fmt.Errorf("failed to ping session storage: %w", err)
	}

	return &Client{
		Pending:  pending.NewStorage(pendingStorage, prefix),
		Sessions: sessions.NewStorage(sessionStorage, prefix),
		clients:  []*redis.Client{pendingStorage, sessionStorage},
	}, nil
}

func (c *Client) Close() error {
	var firstErr error
	for _, client := range c.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
