package notify

import (
	"context"
	"encoding/json"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the relay uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRelay mirrors every event onto a topic. The writer is async, so Publish never blocks
// on the broker and failures are only logged.
type KafkaRelay struct {
	writer messageWriter
	log    *zap.Logger
}

func NewKafkaRelay(brokers []string, topic string, log *zap.Logger) *KafkaRelay {
	r := &KafkaRelay{log: log}
	r.writer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error("kafka relay write failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return r
}

func (r *KafkaRelay) Publish(ctx context.Context, ev domain.Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		logger.Error(ctx, r.log, "encode event failed", zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(ev.Type),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	// The request context is about to be cancelled; the async writer must outlive it.
	if err := r.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		logger.Error(ctx, r.log, "kafka relay enqueue failed", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func (r *KafkaRelay) Close() error {
	return r.writer.Close()
}
