package repository

import (
	"context"

	"MarketOverlay/internal/domain/models"
	pkgkafka "MarketOverlay/pkg/kafka"
)

type framePublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaFrameSink publishes overlay frames as JSON, keyed by instance id so a
// chart's frames stay ordered within one partition.
type KafkaFrameSink struct {
	pub   framePublisher
	topic string
}

func NewKafkaFrameSink(p *pkgkafka.Producer, topic string) *KafkaFrameSink {
	return &KafkaFrameSink{pub: p, topic: topic}
}

func (s *KafkaFrameSink) Publish(ctx context.Context, frames []*models.OverlayFrame) error {
	msgs := make([]pkgkafka.Message, 0, len(frames))
	for _, f := range frames {
		if f == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(f.InstanceID),
			Value: f,
			Headers: map[string]string{
				"kind":      string(f.Kind),
				"symbol":    f.Symbol,
				"timeframe": f.Timeframe,
			},
		})
	}
	return s.pub.PublishBatch(ctx, s.topic, msgs)
}

func (s *KafkaFrameSink) Close() error {
	return s.pub.Close()
}
