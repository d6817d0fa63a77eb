package kafka

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// DLQTopic names the dead-letter topic for a source topic.
func DLQTopic(topic string) string {
	return TopicPrefix + ".dlq." + topic
}

// DeadLetters parks messages that a consumer gave up on, with headers
// describing where they came from and why they failed.
type DeadLetters struct {
	writer messageWriter
}

func NewDeadLetters(brokers []string) *DeadLetters {
	return &DeadLetters{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              1,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (d *DeadLetters) Send(ctx context.Context, msg kafka.Message, cause error, group string) error {
	headers := append([]kafka.Header{}, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(msg.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(group)},
	)
	if cause != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(cause.Error())})
	}

	topic := DLQTopic(msg.Topic)
	if err := d.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (d *DeadLetters) Close() error {
	return d.writer.Close()
}
