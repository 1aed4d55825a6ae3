package agent

import (
	"context"
	"time"
)

// Store persists agents and their reputation events. The agent is the
// aggregate root: events belong to it and both implementations guarantee
// that ApplyEvent's score read, score write, and event append happen in one
// atomic unit of work under the agent's lock.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into domain errors.
type Store interface {
	// Create inserts a new agent. Returns sentinel.ErrConflict when the
	// DID is already registered.
	Create(ctx context.Context, a *Agent) error

	// FindByDID returns the agent with the given DID, or
	// sentinel.ErrNotFound.
	FindByDID(ctx context.Context, did string) (*Agent, error)

	// ListRecent returns up to limit agents ordered by creation time,
	// newest first.
	ListRecent(ctx context.Context, limit int) ([]*Agent, error)

	// ListEvents returns up to limit reputation events for the agent,
	// newest first. Unknown DIDs yield sentinel.ErrNotFound.
	ListEvents(ctx context.Context, did string, limit int) ([]*Event, error)

	// FindEvent returns the event recorded for (did, reference), or
	// sentinel.ErrNotFound when either the agent or the event is absent.
	FindEvent(ctx context.Context, did, reference string) (*Event, error)

	// ApplyEvent atomically re-reads the agent's score under its lock,
	// computes the new score via compute, persists it, and appends ev in
	// the same unit of work. The caller sets the event's ID, Delta,
	// Reference, and CreatedAt; the store fills AgentID from the locked
	// row.
	//
	// Returns sentinel.ErrNotFound when the agent is absent and
	// sentinel.ErrDuplicate when an event for (did, ev.Reference) already
	// exists — in that case nothing is mutated.
	ApplyEvent(ctx context.Context, did string, ev *Event, compute func(current float64) float64, now time.Time) (*Agent, error)
}
