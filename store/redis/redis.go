// Package redis provides a Redis-backed SharedStore for budgetguard.
//
// Spend counters are plain string keys incremented with INCRBYFLOAT via
// an atomic Lua script that applies the window TTL on first write. This
// makes it safe for multi-instance deployments.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ineyio/budgetguard"
)

// Store is a Redis-backed SharedStore.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ budgetguard.SharedStore = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix namespaces all keys under the given prefix. The default
// is no prefix, keeping keys byte-identical across both cache tiers.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// New creates a new Redis-backed SharedStore.
// The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// incrScript atomically increments a float counter and sets the TTL only
// when the key carries none, so the window expires relative to its first
// spend rather than its last.
// KEYS[1] = spend key
// ARGV[1] = delta
// ARGV[2] = ttl (seconds)
var incrScript = goredis.NewScript(`
local value = redis.call("INCRBYFLOAT", KEYS[1], ARGV[1])
if redis.call("TTL", KEYS[1]) == -1 then
    redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return value
`)

// Increment atomically adds delta to key and returns the new value.
func (s *Store) Increment(ctx context.Context, key string, delta float64, ttl time.Duration) (float64, error) {
	res, err := incrScript.Run(ctx, s.client, []string{s.keyPrefix + key}, delta, int64(ttl.Seconds())).Result()
	if err != nil {
		return 0, fmt.Errorf("budgetguard/redis: increment %s: %w", key, err)
	}
	return parseFloatReply(key, res)
}

// BatchGet returns the values for all keys that exist, in one MGET.
func (s *Store) BatchGet(ctx context.Context, keys []string) (map[string]float64, error) {
	if len(keys) == 0 {
		return map[string]float64{}, nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.keyPrefix + key
	}

	values, err := s.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("budgetguard/redis: batch get: %w", err)
	}

	out := make(map[string]float64, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		f, err := parseFloatReply(keys[i], v)
		if err != nil {
			return nil, err
		}
		out[keys[i]] = f
	}
	return out, nil
}

func parseFloatReply(key string, v any) (float64, error) {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("budgetguard/redis: non-numeric value for %s: %w", key, err)
		}
		return f, nil
	case int64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("budgetguard/redis: unexpected reply type %T for %s", v, key)
	}
}
