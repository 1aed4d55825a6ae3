package handler

import (
	"time"

	"repute/internal/agent"
)

// AgentResponse is the wire shape of a registered agent.
type AgentResponse struct {
	ID            string              `json:"id"`
	DID           string              `json:"did"`
	Name          string              `json:"name"`
	Summary       string              `json:"summary,omitempty"`
	Endpoint      string              `json:"endpoint,omitempty"`
	Disclosure    string              `json:"disclosure"`
	MetadataCID   string              `json:"metadataCid,omitempty"`
	AttestationID string              `json:"attestationId,omitempty"`
	Capabilities  CapabilitiesPayload `json:"capabilities"`
	Reputation    float64             `json:"reputation"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// EventResponse is one reputation history entry.
type EventResponse struct {
	ID          string    `json:"id"`
	Delta       float64   `json:"delta"`
	Reference   string    `json:"reference"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GetResponse pairs an agent with its recent reputation history.
type GetResponse struct {
	Agent  AgentResponse   `json:"agent"`
	Events []EventResponse `json:"events"`
}

// ListResponse wraps the recent-agents listing.
type ListResponse struct {
	Agents []AgentResponse `json:"agents"`
}

// FromAgent maps a domain agent to its response shape.
func FromAgent(a *agent.Agent) AgentResponse {
	return AgentResponse{
		ID:            a.ID.String(),
		DID:           a.DID,
		Name:          a.Name,
		Summary:       a.Summary,
		Endpoint:      a.Endpoint,
		Disclosure:    string(a.Disclosure),
		MetadataCID:   a.MetadataCID,
		AttestationID: a.AttestationID,
		Capabilities: CapabilitiesPayload{
			Skills:      a.Capabilities.Skills,
			SuccessRate: a.Capabilities.SuccessRate,
			LatencyMs:   a.Capabilities.LatencyMs,
		},
		Reputation: a.Reputation,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// FromEvents maps a reputation trail to its response shape. The result is
// never nil so the JSON field encodes as an empty array, not null.
func FromEvents(events []*agent.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			ID:          ev.ID.String(),
			Delta:       ev.Delta,
			Reference:   ev.Reference,
			Description: ev.Description,
			CreatedAt:   ev.CreatedAt,
		})
	}
	return out
}

// FromAgents maps a listing to its response shape.
func FromAgents(agents []*agent.Agent) []AgentResponse {
	out := make([]AgentResponse, 0, len(agents))
	for _, a := range agents {
		out = append(out, FromAgent(a))
	}
	return out
}
