package repository

import (
	"context"
	"fmt"

	"PulseFeed/internal/domain/models"
	pkgkafka "PulseFeed/pkg/kafka"
)

// KafkaPublisher exports enriched records to a Kafka topic, keyed by
// signature so a record lands on a stable partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish sends one enriched record.
func (p *KafkaPublisher) Publish(ctx context.Context, rec *models.EnrichedRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(rec.Signature), rec); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

// Close closes the underlying producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
