// Package settlement confirms that referenced payments reached a finalized
// state on the external ledger of record. The gateway fails closed: a lookup
// that errors out after bounded retries is reported as not found, never as
// confirmed.
package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"repute/internal/platform/metrics"
)

// Status is the confirmation state of a settlement reference.
type Status string

const (
	// StatusFinalized means the ledger reports the settlement as
	// irreversible. Only this status authorizes a reputation mutation.
	StatusFinalized Status = "finalized"
	// StatusPending means the transaction exists but is not yet final.
	StatusPending Status = "pending"
	// StatusNotFound means the ledger has no record of the reference, or
	// the lookup could not be completed. Fail-closed lookups land here.
	StatusNotFound Status = "not_found"
)

//go:generate mockgen -source=gateway.go -destination=mocks/gateway_mocks.go -package=mocks

// LedgerClient queries the external ledger for a transaction's finality.
// Implementations must be side-effect free and safe for repeated calls.
type LedgerClient interface {
	SignatureStatus(ctx context.Context, reference string) (Status, error)
}

// Cache remembers finalized references. Finality is irreversible, so cache
// entries never need invalidation.
type Cache interface {
	IsFinalized(ctx context.Context, reference string) (bool, error)
	MarkFinalized(ctx context.Context, reference string) error
}

// Gateway wraps a LedgerClient with timeout, bounded retry, caching, and
// instrumentation.
type Gateway struct {
	client     LedgerClient
	cache      Cache
	timeout    time.Duration
	maxRetries uint64
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithCache installs a finalized-reference cache.
func WithCache(cache Cache) Option {
	return func(g *Gateway) {
		g.cache = cache
	}
}

// WithMetrics installs lookup instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTimeout bounds a single confirmation attempt.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxRetries bounds retries of failed lookups before failing closed.
func WithMaxRetries(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.maxRetries = uint64(n)
		}
	}
}

// NewGateway creates a settlement confirmation gateway.
func NewGateway(client LedgerClient, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		client:     client,
		timeout:    5 * time.Second,
		maxRetries: 3,
		logger:     logger,
		tracer:     otel.Tracer("repute/settlement"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Confirm returns the confirmation status of reference.
//
// Transport errors are retried with exponential backoff up to the configured
// limit; when retries are exhausted the gateway logs the failure and returns
// StatusNotFound. Ledger answers (finalized, pending, not found) are returned
// as-is without retry. The call never returns StatusFinalized unless the
// ledger itself said so.
func (g *Gateway) Confirm(ctx context.Context, reference string) (Status, error) {
	ctx, span := g.tracer.Start(ctx, "settlement.Confirm",
		trace.WithAttributes(attribute.String("settlement.reference", reference)))
	defer span.End()

	if g.cache != nil {
		finalized, err := g.cache.IsFinalized(ctx, reference)
		if err != nil {
			g.logger.WarnContext(ctx, "settlement cache read failed", "error", err)
		} else if finalized {
			span.SetAttributes(attribute.Bool("settlement.cache_hit", true))
			return StatusFinalized, nil
		}
	}

	start := time.Now()
	status := g.lookup(ctx, reference)
	g.metrics.ObserveSettlementLookup(string(status), time.Since(start))
	span.SetAttributes(attribute.String("settlement.status", string(status)))

	if status == StatusFinalized && g.cache != nil {
		if err := g.cache.MarkFinalized(ctx, reference); err != nil {
			g.logger.WarnContext(ctx, "settlement cache write failed", "error", err)
		}
	}
	return status, nil
}

func (g *Gateway) lookup(ctx context.Context, reference string) Status {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var status Status
	policy := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(), g.maxRetries), ctx)

	err := backoff.Retry(func() error {
		s, err := g.client.SignatureStatus(ctx, reference)
		if err != nil {
			return err
		}
		status = s
		return nil
	}, policy)
	if err != nil {
		// Retries exhausted or context expired. Treating a lookup error
		// as confirmation would let a never-settled claim credit
		// reputation, so the answer is "not found".
		g.metrics.IncrementSettlementFailures()
		g.logger.ErrorContext(ctx, "settlement lookup failed closed",
			"reference", reference,
			"error", err,
		)
		return StatusNotFound
	}
	return status
}

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 1 * time.Second
	return b
}
