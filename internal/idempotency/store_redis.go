package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"custodia/pkg/platform/sentinel"
)

var checkDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "custodia_idempotency_check_duration_ms",
	Help:    "Latency of idempotency record lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const recordKeyPrefix = "idem:key:"

// DefaultTTL bounds how long a key replays. Long enough to outlive client
// retry windows, short enough that keys can eventually be reused.
const DefaultTTL = 24 * time.Hour

// RedisStore is the distributed idempotency store. Recommended whenever more
// than one instance serves traffic, since replay detection must be shared.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL overrides the record retention window.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Check(ctx context.Context, key, fingerprint string) (Outcome, *Record, error) {
	start := time.Now()
	defer func() {
		checkDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	raw, err := s.client.Get(ctx, recordKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Fresh, nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return Conflict, &rec, nil
	}
	return Replay, &rec, nil
}

// Save writes the record with SET NX so a concurrent writer cannot overwrite
// an existing response for the same key.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	ok, err := s.client.SetNX(ctx, recordKeyPrefix+rec.Key, raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("save idempotency record: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}
