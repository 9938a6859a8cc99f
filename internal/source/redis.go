package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KVConfig configures the fast key-value client.
type KVConfig struct {
	Address string
	Timeout time.Duration
}

// RedisClient is the narrow command surface KV needs. Satisfied by
// *redis.Client and by test fakes.
type RedisClient interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// KV reads cached aggregates from Redis. The client is optional; the
// engine runs without it and skips the collectors that need it.
type KV struct {
	rdb     RedisClient
	timeout time.Duration
}

// NewKV builds the client. Address uses redis:// URL notation. The
// client connects lazily; use Ping to probe.
func NewKV(cfg KVConfig) (*KV, error) {
	opts, err := redis.ParseURL(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("parsing redis address %q: %w", cfg.Address, err)
	}
	opts.DialTimeout = cfg.Timeout
	opts.ReadTimeout = cfg.Timeout
	opts.WriteTimeout = cfg.Timeout

	return &KV{rdb: redis.NewClient(opts), timeout: cfg.Timeout}, nil
}

// Ping probes connectivity within the client timeout.
func (k *KV) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	if err := k.rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", classify(err))
	}
	return nil
}

// NewKVFromClient wraps an existing client. Used by tests.
func NewKVFromClient(rdb RedisClient, timeout time.Duration) *KV {
	return &KV{rdb: rdb, timeout: timeout}
}

// Close releases the connection.
func (k *KV) Close() error {
	return k.rdb.Close()
}

// HGetAllFloat reads a hash and parses every field value as float64.
func (k *KV) HGetAllFloat(ctx context.Context, key string) (map[string]float64, error) {
	getCtx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	fields, err := k.rdb.HGetAll(getCtx, key).Result()
	if err != nil {
		return nil, classify(err)
	}

	result := make(map[string]float64, len(fields))
	for field, raw := range fields {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing field %q value %q: %w", field, raw, ErrQuery)
		}
		result[field] = v
	}
	return result, nil
}
