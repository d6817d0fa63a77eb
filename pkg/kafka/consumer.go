package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// maxAttempts bounds handler retries before a message is dead-lettered
// (or dropped when no DLQ is configured) and committed.
const maxAttempts = 3

// Handler processes one event. Returning an error triggers a retry.
type Handler func(ctx context.Context, e *Event) error

// ConsumerConfig describes one consumer group subscription.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
}

// messageReader is the part of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a set of topics as one consumer group and commits each
// message after it has been handled or dead-lettered.
type Consumer struct {
	reader    messageReader
	group     string
	handler   Handler
	dlq       *DeadLetters
	logger    *slog.Logger
	backoff   time.Duration
	closeOnce sync.Once
}

func NewConsumer(cfg ConsumerConfig, handler Handler, dlq *DeadLetters, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
	return newConsumer(r, cfg.GroupID, handler, dlq, logger)
}

func newConsumer(r messageReader, group string, handler Handler, dlq *DeadLetters, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:  r,
		group:   group,
		handler: handler,
		dlq:     dlq,
		logger:  logger,
		backoff: 200 * time.Millisecond,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started", slog.String("group", c.group))
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.ErrorContext(ctx, "fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		if !c.process(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process handles msg with retries. It returns false only when ctx was
// cancelled mid-retry, in which case msg must not be committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	e, err := UnmarshalEvent(msg.Value)
	if err != nil {
		consumed.WithLabelValues(msg.Topic, "malformed").Inc()
		c.logger.WarnContext(ctx, "dropping malformed message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
		return true
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start := time.Now()
		lastErr = c.handler(ctx, e)
		handleDuration.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())
		if lastErr == nil {
			consumed.WithLabelValues(msg.Topic, "ok").Inc()
			return true
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("topic", msg.Topic),
			slog.String("event_type", e.Type),
			slog.String("aggregate_id", e.AggregateID),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}

	consumed.WithLabelValues(msg.Topic, "failed").Inc()
	c.logger.ErrorContext(ctx, "giving up on message",
		slog.String("topic", msg.Topic),
		slog.String("event_id", e.ID),
		slog.Int64("offset", msg.Offset),
		slog.String("error", lastErr.Error()),
	)
	c.deadLetter(ctx, msg, lastErr)
	return true
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Send(ctx, msg, cause, c.group); err != nil {
		c.logger.ErrorContext(ctx, "dead-letter message", slog.String("error", err.Error()))
	}
}

// Close is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.reader.Close() })
	return err
}
