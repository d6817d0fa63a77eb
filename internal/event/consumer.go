package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	pkgkafka "github.com/Mahmoudramadan21/Bookify/pkg/kafka"
)

// RankingInvalidator drops cached ranking lists when an event changes what
// they would contain.
type RankingInvalidator struct {
	cache  repository.RankingCache
	logger *slog.Logger
}

func NewRankingInvalidator(cache repository.RankingCache, logger *slog.Logger) *RankingInvalidator {
	return &RankingInvalidator{cache: cache, logger: logger}
}

// Topics lists the topics Handle reacts to.
func (c *RankingInvalidator) Topics() []string {
	return []string{
		TopicBookCreated,
		TopicBookUpdated,
		TopicBookDeleted,
		TopicReviewCreated,
		TopicOrderDelivered,
	}
}

func affectedLists(eventType string) []string {
	switch eventType {
	case TopicReviewCreated:
		return []string{repository.RankingTopRated}
	case TopicOrderDelivered:
		return []string{repository.RankingBestSelling}
	case TopicBookCreated:
		// Unrated until its first review, so only best-selling can change.
		return []string{repository.RankingBestSelling}
	case TopicBookUpdated, TopicBookDeleted:
		return []string{repository.RankingTopRated, repository.RankingBestSelling}
	default:
		return nil
	}
}

// Handle is a pkgkafka.Handler.
func (c *RankingInvalidator) Handle(ctx context.Context, e *pkgkafka.Event) error {
	lists := affectedLists(e.Type)
	if len(lists) == 0 {
		return nil
	}
	if err := c.cache.Invalidate(ctx, lists...); err != nil {
		return fmt.Errorf("invalidate rankings for %s: %w", e.Type, err)
	}
	c.logger.DebugContext(ctx, "rankings invalidated",
		slog.String("event_type", e.Type),
		slog.String("aggregate_id", e.AggregateID),
		slog.Any("lists", lists),
	)
	return nil
}
