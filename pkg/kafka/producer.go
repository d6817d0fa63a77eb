package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config is loaded from the environment, usually under a KAFKA_ prefix.
type Config struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	Brokers      []string      `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	GroupID      string        `env:"GROUP_ID" envDefault:"bookify"`
	BatchTimeout time.Duration `env:"BATCH_TIMEOUT" envDefault:"10ms"`
	EnableDLQ    bool          `env:"ENABLE_DLQ" envDefault:"true"`
}

// messageWriter is the part of *kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events keyed by aggregate id, so events about one book
// or order stay ordered within a partition.
type Producer struct {
	writer  messageWriter
	brokers []string
	logger  *slog.Logger
}

func NewProducer(cfg Config, logger *slog.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		brokers: cfg.Brokers,
		logger:  logger,
	}
}

func (p *Producer) Publish(ctx context.Context, topic string, e *Event) error {
	value, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(e.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "source", Value: []byte(e.Source)},
		},
	}
	if e.CorrelationID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		published.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	published.WithLabelValues(topic, "ok").Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", e.Type),
		slog.String("aggregate_id", e.AggregateID),
	)
	return nil
}

// Ping reports whether any configured broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers dials each broker in turn until one returns its metadata.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}
	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("kafka: all brokers unreachable: %w", lastErr)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
