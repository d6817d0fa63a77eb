// Package redis caches the catalog ranking lists in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/pkg/breaker"
)

const keyPrefix = "bookify:ranking:"

// RankingCache implements repository.RankingCache. Every call goes through a
// circuit breaker so a struggling Redis is skipped instead of slowing reads.
type RankingCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	cb     *breaker.Breaker
}

func NewRankingCache(client redis.UniversalClient, ttl time.Duration, cb *breaker.Breaker) *RankingCache {
	return &RankingCache{client: client, ttl: ttl, cb: cb}
}

func key(list string) string { return keyPrefix + list }

// Get returns the cached list. A miss is (nil, false, nil).
func (c *RankingCache) Get(ctx context.Context, list string) ([]domain.Book, bool, error) {
	data, err := breaker.Do(c.cb, func() ([]byte, error) {
		b, err := c.client.Get(ctx, key(list)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get ranking %s: %w", list, err)
	}
	if data == nil {
		return nil, false, nil
	}

	var books []domain.Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, false, fmt.Errorf("unmarshal ranking %s: %w", list, err)
	}
	return books, true, nil
}

func (c *RankingCache) Set(ctx context.Context, list string, books []domain.Book) error {
	data, err := json.Marshal(books)
	if err != nil {
		return fmt.Errorf("marshal ranking %s: %w", list, err)
	}
	_, err = breaker.Do(c.cb, func() (struct{}, error) {
		return struct{}{}, c.client.Set(ctx, key(list), data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("redis set ranking %s: %w", list, err)
	}
	return nil
}

func (c *RankingCache) Invalidate(ctx context.Context, lists ...string) error {
	if len(lists) == 0 {
		return nil
	}
	keys := make([]string, len(lists))
	for i, l := range lists {
		keys[i] = key(l)
	}
	_, err := breaker.Do(c.cb, func() (int64, error) {
		return c.client.Del(ctx, keys...).Result()
	})
	if err != nil {
		return fmt.Errorf("redis del rankings: %w", err)
	}
	return nil
}
