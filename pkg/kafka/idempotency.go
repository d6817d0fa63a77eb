package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore remembers which event ids have been handled.
type IdempotencyStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// MemoryIdempotencyStore keeps ids in process memory until ttl elapses.
// It only deduplicates within one instance.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryIdempotencyStore) Seen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	if s.now().Sub(at) > s.ttl {
		delete(s.entries, id)
		return false, nil
	}
	return true, nil
}

func (s *MemoryIdempotencyStore) Mark(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = s.now()
	return nil
}

// RedisIdempotencyStore shares processed ids between instances of a
// consumer group.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client redis.UniversalClient, group string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: TopicPrefix + ":processed:" + group + ":", ttl: ttl}
}

func (s *RedisIdempotencyStore) Seen(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+id).Result()
	return n > 0, err
}

func (s *RedisIdempotencyStore) Mark(ctx context.Context, id string) error {
	return s.client.Set(ctx, s.prefix+id, 1, s.ttl).Err()
}

// Idempotent skips events whose id the store has already seen and marks
// ids once inner succeeds. A failing store never blocks processing.
func Idempotent(store IdempotencyStore, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, e *Event) error {
		if e.ID == "" {
			return inner(ctx, e)
		}
		seen, err := store.Seen(ctx, e.ID)
		if err != nil {
			logger.WarnContext(ctx, "idempotency lookup failed", slog.String("event_id", e.ID), slog.String("error", err.Error()))
		}
		if seen {
			consumed.WithLabelValues(e.Type, "duplicate").Inc()
			return nil
		}
		if err := inner(ctx, e); err != nil {
			return err
		}
		if err := store.Mark(ctx, e.ID); err != nil {
			logger.WarnContext(ctx, "idempotency mark failed", slog.String("event_id", e.ID), slog.String("error", err.Error()))
		}
		return nil
	}
}
