package handler

import (
	"math"
	"strings"

	"repute/internal/agent"
	dErrors "repute/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /api/agents.
type RegisterRequest struct {
	DID          string              `json:"did"`
	Name         string              `json:"name"`
	Summary      string              `json:"summary,omitempty"`
	Endpoint     string              `json:"endpoint,omitempty"`
	Disclosure   string              `json:"disclosure,omitempty"`
	Capabilities CapabilitiesPayload `json:"capabilities"`
	Message      string              `json:"message"`
	Signature    string              `json:"signature"`
}

// CapabilitiesPayload mirrors the capability descriptor on the wire.
type CapabilitiesPayload struct {
	Skills      []string `json:"skills"`
	SuccessRate float64  `json:"successRate"`
	LatencyMs   int      `json:"latencyMs"`
}

// Validate validates the request at the boundary so malformed bodies are
// rejected before any cryptographic or storage work.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.DID = strings.TrimSpace(r.DID)
	if r.DID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "did is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if len(r.Name) > 128 {
		return dErrors.New(dErrors.CodeBadRequest, "name must be at most 128 characters")
	}

	if r.Message == "" {
		return dErrors.New(dErrors.CodeBadRequest, "message is required")
	}
	if r.Signature == "" {
		return dErrors.New(dErrors.CodeBadRequest, "signature is required")
	}

	if r.Disclosure != "" && !agent.DisclosureLevel(r.Disclosure).IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "disclosure must be public, selective, or private")
	}

	if math.IsNaN(r.Capabilities.SuccessRate) || r.Capabilities.SuccessRate < 0 || r.Capabilities.SuccessRate > 1 {
		return dErrors.New(dErrors.CodeBadRequest, "capabilities.successRate must be within [0, 1]")
	}
	if r.Capabilities.LatencyMs < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "capabilities.latencyMs must be non-negative")
	}

	return nil
}

// Params converts the validated request into service parameters.
func (r *RegisterRequest) Params() agent.RegisterParams {
	return agent.RegisterParams{
		DID:        r.DID,
		Name:       r.Name,
		Summary:    strings.TrimSpace(r.Summary),
		Endpoint:   strings.TrimSpace(r.Endpoint),
		Disclosure: agent.DisclosureLevel(r.Disclosure),
		Capabilities: agent.Capabilities{
			Skills:      r.Capabilities.Skills,
			SuccessRate: r.Capabilities.SuccessRate,
			LatencyMs:   r.Capabilities.LatencyMs,
		},
		Message:   r.Message,
		Signature: r.Signature,
	}
}
