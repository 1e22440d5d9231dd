package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"memberd/internal/platform/metrics"
	id "memberd/pkg/domain"
)

var errAppendFailed = errors.New("audit append failed")

// RelayStore is the slice of the audit store the relay needs: a durable
// cursor over entries not yet handed to the broker.
type RelayStore interface {
	ListUnpublished(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []id.AuditEntryID) error
}

// Producer publishes one audit record to the broker.
type Producer interface {
	Produce(ctx context.Context, key, value []byte) error
}

// Relay drains committed audit entries to Kafka in the background.
// Postgres stays the source of truth; the broker feed is at-least-once, so
// downstream consumers must tolerate duplicates. A broker outage never
// affects the write path, only relay lag.
type Relay struct {
	store    RelayStore
	producer Producer
	logger   *slog.Logger
	metrics  *metrics.Metrics

	interval  time.Duration
	batchSize int
}

func NewRelay(store RelayStore, producer Producer, logger *slog.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		store:     store,
		producer:  producer,
		logger:    logger,
		metrics:   m,
		interval:  2 * time.Second,
		batchSize: 100,
	}
}

// Run polls for unpublished entries until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.ErrorContext(ctx, "audit relay drain failed", "error", err)
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	entries, err := r.store.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return fmt.Errorf("list unpublished: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]id.AuditEntryID, 0, len(entries))
	for _, entry := range entries {
		value, err := json.Marshal(entry)
		if err != nil {
			// Unmarshalable entries would wedge the cursor; skip past them.
			published = append(published, entry.ID)
			continue
		}
		if err := r.producer.Produce(ctx, []byte(entry.EntityID), value); err != nil {
			if r.metrics != nil {
				r.metrics.AuditRelayFailures.Inc()
			}
			// Stop the batch here so ordering per entity is preserved.
			break
		}
		published = append(published, entry.ID)
		if r.metrics != nil {
			r.metrics.AuditRelayPublished.Inc()
		}
	}

	if len(published) == 0 {
		return nil
	}
	return r.store.MarkPublished(ctx, published)
}

// KafkaProducer adapts a franz-go client to the Producer interface.
type KafkaProducer struct {
	client *kgo.Client
	topic  string
}

func NewKafkaProducer(brokers []string, topic string) (*KafkaProducer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaProducer{client: client, topic: topic}, nil
}

func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	record := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	return p.client.ProduceSync(ctx, record).FirstErr()
}

func (p *KafkaProducer) Close() {
	p.client.Close()
}
