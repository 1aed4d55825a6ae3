package handler

import (
	"strings"

	"repute/internal/reputation"
	dErrors "repute/pkg/domain-errors"
)

// UpdateRequest is the HTTP request body for POST /api/reputation/update.
// Field names match the settlement notifier's webhook payload.
type UpdateRequest struct {
	X402TxnID     string  `json:"x402TxnId"`
	AgentDID      string  `json:"agentDid"`
	TaskOutcome   string  `json:"taskOutcome"`
	PaymentAmount float64 `json:"paymentAmount"`
	Description   string  `json:"description,omitempty"`
}

// Validate validates the notification at the boundary.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *UpdateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.X402TxnID = strings.TrimSpace(r.X402TxnID)
	if r.X402TxnID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "x402TxnId is required")
	}

	r.AgentDID = strings.TrimSpace(r.AgentDID)
	if r.AgentDID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "agentDid is required")
	}

	r.TaskOutcome = strings.TrimSpace(r.TaskOutcome)
	if r.TaskOutcome == "" {
		return dErrors.New(dErrors.CodeBadRequest, "taskOutcome is required")
	}

	return nil
}

// Params converts the validated notification into service parameters.
func (r *UpdateRequest) Params() reputation.UpdateParams {
	return reputation.UpdateParams{
		Reference:   r.X402TxnID,
		AgentDID:    r.AgentDID,
		Outcome:     r.TaskOutcome,
		Amount:      r.PaymentAmount,
		Description: r.Description,
	}
}
