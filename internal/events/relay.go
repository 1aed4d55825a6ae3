package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Publisher delivers outbox entries to the event stream.
type Publisher interface {
	Publish(ctx context.Context, entries []Entry) error
}

// Relay polls the outbox and forwards committed reputation events to the
// stream. It runs until its context is cancelled.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// NewRelay creates an outbox relay.
func NewRelay(outbox Outbox, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		logger:    slog.Default(),
		batchSize: defaultBatchSize,
		interval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the poll loop. Publish failures are logged and retried on the
// next tick rather than crashing the process; the outbox keeps the entries
// until they are marked published.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil && ctx.Err() == nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// drain publishes pending batches until the outbox is empty.
func (r *Relay) drain(ctx context.Context) error {
	for {
		entries, err := r.outbox.NextBatch(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		if err := r.publisher.Publish(ctx, entries); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		if err := r.outbox.MarkPublished(ctx, ids); err != nil {
			return err
		}

		r.logger.DebugContext(ctx, "outbox batch published", "count", len(entries))
		if len(entries) < r.batchSize {
			return nil
		}
	}
}
