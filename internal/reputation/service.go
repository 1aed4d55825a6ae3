package reputation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"repute/internal/agent"
	"repute/internal/platform/metrics"
	"repute/internal/settlement"
	id "repute/pkg/domain"
	dErrors "repute/pkg/domain-errors"
	"repute/pkg/platform/sentinel"
	"repute/pkg/requestcontext"
)

// applyRetries bounds internal retries of the ledger's unit of work when a
// concurrent writer wins the race for the same settlement reference.
const applyRetries = 3

// Ledger is the slice of the agent store the reputation service needs.
type Ledger interface {
	FindByDID(ctx context.Context, did string) (*agent.Agent, error)
	FindEvent(ctx context.Context, did, reference string) (*agent.Event, error)
	ApplyEvent(ctx context.Context, did string, ev *agent.Event, compute func(current float64) float64, now time.Time) (*agent.Agent, error)
}

// Confirmer reports whether a settlement reference is finalized on the
// ledger of record.
type Confirmer interface {
	Confirm(ctx context.Context, reference string) (settlement.Status, error)
}

// UpdateParams carries a validated, authenticated settlement notification
// into the service.
type UpdateParams struct {
	Reference   string
	AgentDID    string
	Outcome     string
	Amount      float64
	Description string
}

// Service is the reputation ledger: it confirms settlements, derives deltas,
// and applies them atomically and idempotently.
type Service struct {
	ledger    Ledger
	confirmer Confirmer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the reputation service.
func NewService(ledger Ledger, confirmer Confirmer, opts ...Option) *Service {
	s := &Service{
		ledger:    ledger,
		confirmer: confirmer,
		logger:    slog.Default(),
		tracer:    otel.Tracer("repute/reputation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessSettlement runs the settlement pipeline for an authenticated
// notification: confirm finality, derive the delta, and apply it.
//
// Replays of an already-processed reference return the agent's current state
// without reapplying the delta, so callers may safely resubmit after any
// ambiguous failure.
func (s *Service) ProcessSettlement(ctx context.Context, params UpdateParams) (*agent.Agent, error) {
	ctx, span := s.tracer.Start(ctx, "reputation.ProcessSettlement",
		trace.WithAttributes(
			attribute.String("settlement.reference", params.Reference),
			attribute.String("agent.did", params.AgentDID),
		))
	defer span.End()

	// Surface an unknown agent before the (potentially expensive) ledger
	// confirmation.
	if _, err := s.ledger.FindByDID(ctx, params.AgentDID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}

	// A replayed reference short-circuits before the gateway: the first
	// accepted processing already confirmed it.
	if _, err := s.ledger.FindEvent(ctx, params.AgentDID, params.Reference); err == nil {
		return s.replay(ctx, params)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check settlement history")
	}

	status, err := s.confirmer.Confirm(ctx, params.Reference)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "settlement confirmation failed")
	}
	if status != settlement.StatusFinalized {
		return nil, dErrors.New(dErrors.CodeConflict, "settlement is not finalized")
	}

	delta := Delta(params.Outcome, params.Amount)
	now := requestcontext.Now(ctx)

	var updated *agent.Agent
	for attempt := 0; attempt < applyRetries; attempt++ {
		ev := &agent.Event{
			ID:          id.NewEventID(),
			Delta:       delta,
			Reference:   params.Reference,
			Description: params.Description,
			CreatedAt:   now,
		}
		updated, err = s.ledger.ApplyEvent(ctx, params.AgentDID, ev, func(current float64) float64 {
			return agent.ClampScore(current + delta)
		}, now)
		if err == nil {
			s.metrics.IncrementReputationUpdates(normalizeOutcome(params.Outcome))
			s.logger.InfoContext(ctx, "reputation updated",
				"did", params.AgentDID,
				"reference", params.Reference,
				"delta", delta,
				"score", updated.Reputation,
			)
			return updated, nil
		}
		if errors.Is(err, sentinel.ErrDuplicate) {
			return s.replay(ctx, params)
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		s.logger.WarnContext(ctx, "reputation apply retry",
			"did", params.AgentDID,
			"reference", params.Reference,
			"attempt", attempt+1,
			"error", err,
		)
	}
	return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply reputation update")
}

// replay resolves an idempotent resubmission: the event already exists, so
// the current agent state is the first processing's result.
func (s *Service) replay(ctx context.Context, params UpdateParams) (*agent.Agent, error) {
	a, err := s.ledger.FindByDID(ctx, params.AgentDID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	s.metrics.IncrementReputationReplays()
	s.logger.InfoContext(ctx, "settlement replay ignored",
		"did", params.AgentDID,
		"reference", params.Reference,
	)
	return a, nil
}

func normalizeOutcome(outcome string) string {
	switch outcome {
	case OutcomeSuccess, OutcomePartial:
		return outcome
	default:
		return OutcomeFailed
	}
}
