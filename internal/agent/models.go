// Package agent holds the registry's aggregate root: the Agent record and
// its append-only reputation event trail.
package agent

import (
	"math"
	"time"

	id "repute/pkg/domain"
	dErrors "repute/pkg/domain-errors"
)

// DisclosureLevel controls how much of an agent's profile is public.
type DisclosureLevel string

const (
	DisclosurePublic    DisclosureLevel = "public"
	DisclosureSelective DisclosureLevel = "selective"
	DisclosurePrivate   DisclosureLevel = "private"
)

func (d DisclosureLevel) IsValid() bool {
	switch d {
	case DisclosurePublic, DisclosureSelective, DisclosurePrivate:
		return true
	}
	return false
}

// Capabilities describes what an agent claims it can do.
type Capabilities struct {
	Skills      []string `json:"skills"`
	SuccessRate float64  `json:"successRate"`
	LatencyMs   int      `json:"latencyMs"`
}

// Agent is the aggregate root for a registered agent.
//
// Invariants:
//   - DID is unique across the registry and never changes
//   - Reputation stays in [0, 1] before and after every mutation
//   - Reputation is written only through the reputation ledger's atomic
//     unit of work; no other code path touches it
//   - CreatedAt is immutable after construction
type Agent struct {
	ID            id.AgentID      `json:"id"`
	DID           string          `json:"did"`
	Name          string          `json:"name"`
	Summary       string          `json:"summary,omitempty"`
	Endpoint      string          `json:"endpoint,omitempty"`
	Disclosure    DisclosureLevel `json:"disclosure"`
	MetadataCID   string          `json:"metadataCid,omitempty"`
	AttestationID string          `json:"attestationId,omitempty"`
	Capabilities  Capabilities    `json:"capabilities"`
	Reputation    float64         `json:"reputation"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Event is one immutable entry in an agent's reputation trail. Exactly one
// event exists per (agent, settlement reference) pair.
type Event struct {
	ID          id.EventID `json:"id"`
	AgentID     id.AgentID `json:"agent_id"`
	Delta       float64    `json:"delta"`
	Reference   string     `json:"reference"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewAgent constructs a registered agent with reputation zero.
func NewAgent(agentID id.AgentID, did, name string, caps Capabilities, now time.Time) (*Agent, error) {
	if did == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "agent DID cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "agent name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "agent name must be 128 characters or less")
	}
	if math.IsNaN(caps.SuccessRate) || caps.SuccessRate < 0 || caps.SuccessRate > 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "success rate must be within [0, 1]")
	}
	if caps.LatencyMs < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "latency must be non-negative")
	}
	return &Agent{
		ID:           agentID,
		DID:          did,
		Name:         name,
		Disclosure:   DisclosurePublic,
		Capabilities: caps,
		Reputation:   0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ClampScore bounds a reputation score to [0, 1].
func ClampScore(score float64) float64 {
	return math.Min(1, math.Max(0, score))
}
