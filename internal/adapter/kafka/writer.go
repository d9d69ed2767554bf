package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/config"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// RunPublisher produces run events to a Kafka topic.
// It implements dashboard.RunRecorder.
type RunPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewRunPublisher creates a Kafka producer for the configured run topic.
func NewRunPublisher(cfg *config.Config, logger *slog.Logger) *RunPublisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaRunTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &RunPublisher{writer: w, logger: logger}
}

// Record publishes one run event keyed by its ID.
func (p *RunPublisher) Record(ctx context.Context, event domain.RunEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run event %s: %w", event.ID, err)
	}
	p.logger.Debug("run event published", "id", event.ID, "kind", event.Kind)
	return nil
}

func (p *RunPublisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a RunEvent into a Kafka message.
func serializeToMessage(event domain.RunEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_kind", Value: []byte(event.Kind)},
			{Key: "occurred_at", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}
