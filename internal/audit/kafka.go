package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "veridoc/pkg/domain-errors"
)

// KafkaStore publishes audit events to a Kafka topic so the compliance
// pipeline can consume them independently of this service's lifecycle.
// Reads are not supported; Kafka is a sink, not a query surface.
type KafkaStore struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewKafkaStore(brokers []string, topic string, logger *slog.Logger) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "connect kafka")
	}
	return &KafkaStore{client: client, topic: topic, logger: logger}, nil
}

// Append produces the event asynchronously. Delivery failures are logged, not
// propagated; an audit sink outage must not fail capture operations.
func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "marshal audit event")
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ApplicantID),
		Value: payload,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && s.logger != nil {
			s.logger.Error("audit event delivery failed",
				"action", event.Action,
				"error", err,
			)
		}
	})
	return nil
}

// ListByApplicant is unsupported on the Kafka sink.
func (s *KafkaStore) ListByApplicant(context.Context, string) ([]Event, error) {
	return nil, dErrors.New(dErrors.CodeBadRequest, "kafka audit sink does not support reads")
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
