package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/matsen/scout/internal/agent"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces thread keys.
const DefaultRedisPrefix = "scout:thread:"

// RedisConfig describes the Redis connection.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration // zero keeps threads forever
}

// RedisStore keeps each thread as a JSON array under one key.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) key(threadID string) string {
	return s.prefix + threadID
}

// Load reads the thread. Missing keys yield an empty thread.
func (s *RedisStore) Load(ctx context.Context, threadID string) ([]agent.Message, error) {
	data, err := s.client.Get(ctx, s.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading thread %s: %w", threadID, err)
	}
	var msgs []agent.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decoding thread %s: %w", threadID, err)
	}
	return msgs, nil
}

// Save writes the thread, refreshing its TTL.
func (s *RedisStore) Save(ctx context.Context, threadID string, msgs []agent.Message) error {
	data, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding thread %s: %w", threadID, err)
	}
	if err := s.client.Set(ctx, s.key(threadID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing thread %s: %w", threadID, err)
	}
	return nil
}

// Clear deletes the thread key.
func (s *RedisStore) Clear(ctx context.Context, threadID string) error {
	return s.client.Del(ctx, s.key(threadID)).Err()
}

// Threads scans for thread keys and returns their ids sorted.
func (s *RedisStore) Threads(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning threads: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
