package vault

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"unigraph/internal/vault/metrics"
)

// KafkaMirror streams sealed records to a Kafka topic for downstream
// compliance consumers. Strictly off the durability path: the chain is
// already persisted when Publish runs, and produce errors are only counted
// and logged.
type KafkaMirror struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewKafkaMirror(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*KafkaMirror, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaMirror{client: client, topic: topic, logger: logger, metrics: m}, nil
}

func (k *KafkaMirror) Publish(ctx context.Context, rec Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		k.logger.ErrorContext(ctx, "audit mirror marshal failed", "record_id", rec.ID, "error", err)
		return
	}
	k.client.Produce(ctx, &kgo.Record{Key: []byte(rec.ID), Value: payload}, func(_ *kgo.Record, err error) {
		if err != nil {
			if k.metrics != nil {
				k.metrics.MirrorFailures.Inc()
			}
			k.logger.Error("audit mirror produce failed", "record_id", rec.ID, "error", err)
		}
	})
}

// Flush blocks until buffered records are delivered or ctx ends.
func (k *KafkaMirror) Flush(ctx context.Context) error {
	return k.client.Flush(ctx)
}

func (k *KafkaMirror) Close() {
	k.client.Close()
}
