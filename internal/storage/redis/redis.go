// Package redis keeps session keys in a Redis hash so several console hosts can share one login.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"mergealert/internal/storage"
)

const keyPrefix = "mergealert:session:"

type Store struct {
	cli *redis.Client
	key string
}

// New connects to url and stores values in the hash mergealert:session:<profile>.
func New(ctx context.Context, url, profile string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(cli, profile), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(cli *redis.Client, profile string) *Store {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	return &Store{cli: cli, key: keyPrefix + profile}
}

// Key returns the hash key backing this store.
func (s *Store) Key() string {
	return s.key
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.cli.HGet(ctx, s.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %q: %w", key, err)
	}
	return val, true, nil
}

// SetMany writes every field in a single HSET, which Redis applies atomically.
func (s *Store) SetMany(ctx context.Context, values map[string]string) error {
	if err := storage.ValidateKeys(values); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	if err := s.cli.HSet(ctx, s.key, args...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.cli.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}
