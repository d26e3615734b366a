// Package events publishes order events from the transactional outbox to
// Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"food-kart/internal/metrics"
	"food-kart/internal/model"
	"food-kart/internal/repository"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// HeaderEventType names the Kafka header carrying the event type.
const HeaderEventType = "event_type"

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer that hashes keys so every event of one
// order lands on the same partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// RelayConfig tunes the polling loop.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// Relay polls unsent outbox rows, publishes them and marks them sent.
// Delivery is at least once: a crash between publish and MarkSent
// republishes the event.
type Relay struct {
	repo    repository.OutboxRepository
	writer  MessageWriter
	cfg     RelayConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRelay creates a relay.
func NewRelay(repo repository.OutboxRepository, writer MessageWriter, cfg RelayConfig, m *metrics.Metrics, logger zerolog.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Relay{
		repo:    repo,
		writer:  writer,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "outbox_relay").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.logger.Info().
		Dur("poll_interval", r.cfg.PollInterval).
		Int("batch_size", r.cfg.BatchSize).
		Msg("outbox relay started")

	for {
		select {
		case <-ctx.Done():
			if err := r.writer.Close(); err != nil {
				r.logger.Error().Err(err).Msg("failed to close kafka writer")
			}
			r.logger.Info().Msg("outbox relay stopped")
			return
		case <-ticker.C:
			// Drain full batches without waiting for the next tick.
			for {
				n, err := r.ProcessBatch(ctx)
				if err != nil {
					r.logger.Warn().Err(err).Msg("outbox batch failed")
					break
				}
				if n < r.cfg.BatchSize {
					break
				}
			}
		}
	}
}

// ProcessBatch publishes one batch of pending events in creation order and
// returns how many were published. It stops at the first failure so that
// later events of the same order are never published ahead of it.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	pending, err := r.repo.FetchPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending events: %w", err)
	}

	for i, event := range pending {
		err := r.writer.WriteMessages(ctx, toMessage(event))
		r.metrics.OutboxPublish(err)
		if err != nil {
			r.logger.Error().Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			return i, fmt.Errorf("failed to publish event %s: %w", event.ID, err)
		}

		if err := r.repo.MarkSent(ctx, event.ID, r.now()); err != nil {
			return i, fmt.Errorf("failed to mark event %s sent: %w", event.ID, err)
		}

		r.logger.Debug().
			Str("event_id", event.ID.String()).
			Str("aggregate_id", event.AggregateID.String()).
			Str("event_type", event.EventType).
			Msg("event published")
	}

	return len(pending), nil
}

func toMessage(event model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}
}
