package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/neo-risk-etl/internal/config"
	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

// publishBatchSize bounds the number of messages per WriteMessages call.
const publishBatchSize = 500

// Publisher produces scored approaches to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishScored serializes and publishes scored records in batches. The
// key is object_id|approach_date, so repeated runs land on the same
// partition per approach.
func (p *Publisher) PublishScored(ctx context.Context, records []domain.ScoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	processedAt := domain.Now()

	for start := 0; start < len(records); start += publishBatchSize {
		end := min(start+publishBatchSize, len(records))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(records[i], processedAt)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write scored records to %s: %w", p.writer.Topic, err)
		}
	}
	p.logger.Info("scored records published", "topic", p.writer.Topic, "records", len(records))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// MessageKey identifies one approach on the sink topic.
func MessageKey(r domain.ScoredRecord) string {
	return r.ObjectID + "|" + domain.FormatDate(r.ApproachDate)
}

// serializeToMessage marshals a ScoredRecord into a Kafka message.
func serializeToMessage(record domain.ScoredRecord, processedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scored record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(MessageKey(record)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(record.RiskLevel)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
