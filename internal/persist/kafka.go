package persist

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/reloquent/parity/internal/validation"
)

// KafkaSink publishes each summary as a JSON message keyed by summary ID.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a writer for topic. No connection is made until the
// first Persist.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

// Persist implements validation.Sink.
func (k *KafkaSink) Persist(ctx context.Context, s *validation.Summary) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", &Error{Backend: "kafka", Op: "persist", Cause: fmt.Errorf("marshaling summary: %w", err)}
	}
	msg := kafka.Message{
		Key:   []byte(s.ID),
		Value: data,
		Time:  s.CompletedAt,
		Headers: []kafka.Header{
			{Key: "overall_status", Value: []byte(s.OverallStatus)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return "", &Error{Backend: "kafka", Op: "persist", Cause: fmt.Errorf("writing message: %w", err)}
	}
	return "published to topic " + k.writer.Topic, nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
