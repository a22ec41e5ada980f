// Package redis stores learner documents as Redis string values.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/waypoint/internal/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces progress documents
const DefaultKeyPrefix = "waypoint:progress:"

// Config holds Redis connection settings
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration // 0 keeps documents forever
}

// Store implements storage.Storage on a Redis client
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Open connects to Redis and verifies the connection
func Open(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewStore(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewStore wraps an existing client
func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Save writes a document, refreshing its TTL
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Load reads a document
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Delete removes a document
func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Store)(nil)
