package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/segmentio/kafka-go"
)

// KafkaDispatcher publishes requests as JSON, keyed by lower-case target
// name so every action against one player lands on the same partition.
type KafkaDispatcher struct {
	Writer *kafka.Writer
}

var _ Dispatcher = (*KafkaDispatcher)(nil)

func NewKafkaDispatcher(brokers []string, topic string) *KafkaDispatcher {
	return &KafkaDispatcher{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, req Request) error {
	msg, err := encodeKafka(req)
	if err != nil {
		return err
	}
	return d.Writer.WriteMessages(ctx, msg)
}

func encodeKafka(req Request) (kafka.Message, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strings.ToLower(req.Target)),
		Value: b,
		Time:  req.IssuedAt,
	}, nil
}

func (d *KafkaDispatcher) Close() error {
	return d.Writer.Close()
}
