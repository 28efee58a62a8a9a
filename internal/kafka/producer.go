package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go-apotek-pos/internal/events"

	"github.com/IBM/sarama"
)

// Producer publishes domain events to Kafka, one topic per event kind.
type Producer struct {
	producer sarama.SyncProducer
	log      *slog.Logger
}

// NewProducer dials the brokers, retrying while the cluster comes up.
func NewProducer(brokers []string, attempts int, log *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		producer, err := sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Info("kafka producer initialized", "brokers", brokers)
			return NewFromSyncProducer(producer, log), nil
		}
		lastErr = err
		log.Warn("waiting for kafka", "attempt", i, "of", attempts, "err", err)
		if i < attempts {
			time.Sleep(5 * time.Second)
		}
	}
	return nil, fmt.Errorf("kafka: start producer: %w", lastErr)
}

func NewFromSyncProducer(producer sarama.SyncProducer, log *slog.Logger) *Producer {
	return &Producer{producer: producer, log: log}
}

// Publish sends evt synchronously. Failures are logged; the sale or import
// that produced the event has already committed.
func (p *Producer) Publish(ctx context.Context, topic string, evt events.Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		p.log.ErrorContext(ctx, "kafka marshal event", "topic", topic, "err", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Value:     sarama.ByteEncoder(data),
		Timestamp: evt.OccurredAt,
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.ErrorContext(ctx, "kafka send", "topic", topic, "err", err)
		return
	}
	p.log.DebugContext(ctx, "kafka published", "topic", topic, "partition", partition, "offset", offset)
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
