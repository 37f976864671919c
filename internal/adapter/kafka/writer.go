package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/sheet-ladder-etl/internal/config"
	"github.com/couchcryptid/sheet-ladder-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes features to a Kafka topic, one message per feature.
// It implements pipeline.FeatureSink.
type Writer struct {
	writer messageWriter
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

// SubmitBatch publishes the batch in a single WriteMessages call. Kafka does
// not report per message, so a nil result means the whole batch was accepted.
func (w *Writer) SubmitBatch(ctx context.Context, features []domain.Feature) (*domain.BatchResult, error) {
	if len(features) == 0 {
		return nil, nil
	}
	msgs := make([]kafkago.Message, len(features))
	for i := range features {
		msg, err := serializeToMessage(features[i], w.runID)
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return nil, fmt.Errorf("write messages: %w", err)
	}
	w.logger.Debug("published features", "count", len(msgs))
	return nil, nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// MessageKey groups features of the same place and date onto one partition.
func MessageKey(f domain.Feature) string {
	return f.Attributes.Region + "|" + f.Attributes.City + "|" + f.Attributes.Date
}

// serializeToMessage marshals a Feature into a Kafka message.
func serializeToMessage(f domain.Feature, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(f)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "region", Value: []byte(f.Attributes.Region)},
		},
	}, nil
}
