package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "fence:usage"

// RedisConfig describes the Redis connection used by RedisSink.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// hashIncrementer is the subset of *redis.Client used by RedisSink.
type hashIncrementer interface {
	HIncrBy(ctx context.Context, key, field string, incr int64) *redis.IntCmd
}

// RedisSink accumulates per-model usage counters in Redis hashes keyed
// "<prefix>:<model>".
type RedisSink struct {
	client hashIncrementer
	prefix string
}

// NewRedisSink connects to Redis and verifies the connection.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Address, err)
	}
	return newRedisSink(client, cfg.KeyPrefix), nil
}

func newRedisSink(client hashIncrementer, prefix string) *RedisSink {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	return &RedisSink{client: client, prefix: prefix}
}

// Key returns the hash key holding the counters for model.
func (s *RedisSink) Key(model string) string {
	return s.prefix + ":" + model
}

// Record increments the invocation count and the four usage counters.
func (s *RedisSink) Record(ctx context.Context, r Record) error {
	key := s.Key(r.Model)
	fields := []struct {
		name  string
		value int
	}{
		{"invocations", 1},
		{"input_token_count", r.InputTokenCount},
		{"output_token_count", r.OutputTokenCount},
		{"input_word_count", r.InputWordCount},
		{"output_word_count", r.OutputWordCount},
	}

	var errs []error
	for _, f := range fields {
		if err := s.client.HIncrBy(ctx, key, f.name, int64(f.value)).Err(); err != nil {
			errs = append(errs, fmt.Errorf("incrementing %s %s: %w", key, f.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the underlying Redis connection.
func (s *RedisSink) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
