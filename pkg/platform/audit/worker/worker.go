// Package worker relays the audit outbox to Kafka.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"whaled/pkg/platform/audit/store/postgres"
)

// Bus is the publish side of the audit pipeline; satisfied by the
// internal/platform/kafka producer.
type Bus interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Relay drains unpublished outbox entries to the bus in batches. Entries are
// claimed with SKIP LOCKED so multiple service instances can run a relay
// without double publishing.
type Relay struct {
	store    *postgres.Store
	bus      Bus
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval overrides the poll interval (default 1s).
func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides the per-poll batch size (default 100).
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batch = n }
}

func NewRelay(store *postgres.Store, bus Bus, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:    store,
		bus:      bus,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				// Transient bus or database failures leave entries
				// unpublished; the next tick retries them.
				r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

func (r *Relay) relayOnce(ctx context.Context) error {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	entries, err := r.store.FetchUnpublished(ctx, tx, r.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := r.bus.Publish(ctx, entry.Category, entry.Payload); err != nil {
			// Stop at the first failure; everything already published gets
			// marked so redelivery stays bounded to the failed tail.
			r.logger.WarnContext(ctx, "audit publish failed",
				"entry_id", entry.ID,
				"error", err,
			)
			break
		}
		published = append(published, entry.ID)
	}

	if err := r.store.MarkPublished(ctx, tx, published); err != nil {
		return err
	}
	return tx.Commit()
}
