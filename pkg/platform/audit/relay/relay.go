// Package relay moves committed outbox rows to Kafka. It is the second
// half of the transactional outbox: the business transaction writes the
// row, the relay delivers it.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	auditpg "regdesk/pkg/platform/audit/store/postgres"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

const fetchBatchSize = 100

// Relay polls the outbox and produces unpublished entries to one topic.
type Relay struct {
	store    *auditpg.Store
	client   *kgo.Client
	topic    string
	interval time.Duration
	logger   *slog.Logger
}

// New connects a Kafka producer and ensures the audit topic exists.
func New(ctx context.Context, store *auditpg.Store, brokers []string, topic string, interval time.Duration, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil && !isTopicExists(err) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}

	return &Relay{
		store:    store,
		client:   client,
		topic:    topic,
		interval: interval,
		logger:   logger,
	}, nil
}

func isTopicExists(err error) bool {
	// kadm surfaces broker errors by message; TOPIC_ALREADY_EXISTS is not
	// a failure for an idempotent ensure.
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "TOPIC_ALREADY_EXISTS")
}

// Run polls until ctx is cancelled. Errors are logged and retried on the
// next tick; the outbox keeps everything durable in between.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.publishBatch(ctx); err != nil {
				r.logger.Error("outbox relay batch failed", "error", err)
			}
		}
	}
}

func (r *Relay) publishBatch(ctx context.Context) error {
	for {
		entries, err := r.store.FetchUnpublished(ctx, fetchBatchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		records := make([]*kgo.Record, len(entries))
		for i, entry := range entries {
			records[i] = &kgo.Record{
				Topic: r.topic,
				Key:   []byte(entry.AggregateID),
				Value: entry.Payload,
			}
		}
		if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce audit batch: %w", err)
		}

		ids := make([]uuid.UUID, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ID
		}
		if err := r.store.MarkPublished(ctx, ids, time.Now().UTC()); err != nil {
			return err
		}
		if len(entries) < fetchBatchSize {
			return nil
		}
	}
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
