package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"repute/internal/agent"
	agenthandler "repute/internal/agent/handler"
	"repute/internal/reputation"
	"repute/internal/webhook"
	dErrors "repute/pkg/domain-errors"
	"repute/pkg/platform/httputil"
	"repute/pkg/requestcontext"
)

// maxPayloadBytes bounds the webhook body before the MAC is computed.
const maxPayloadBytes = 1 << 20

// Service defines the interface for settlement-driven reputation updates.
type Service interface {
	ProcessSettlement(ctx context.Context, params reputation.UpdateParams) (*agent.Agent, error)
}

// Verifier authenticates the raw notification payload against its signature
// header.
type Verifier interface {
	Verify(payload []byte, signature string) error
}

// Handler wires the settlement notification endpoint to the reputation
// service. Signature verification runs on the exact received bytes, before
// the body is decoded, so a forged or tampered payload never reaches the
// pipeline.
type Handler struct {
	service  Service
	verifier Verifier
	logger   *slog.Logger
}

// New constructs a reputation handler with its dependencies.
func New(service Service, verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		logger:   logger,
	}
}

// Register mounts the reputation endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/reputation/update", h.HandleUpdate)
}

// HandleUpdate handles POST /api/reputation/update requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	if len(payload) > maxPayloadBytes {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
		return
	}

	if err := h.verifier.Verify(payload, r.Header.Get(webhook.SignatureHeader)); err != nil {
		h.logger.WarnContext(ctx, "settlement notification rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	var req UpdateRequest
	if err := httputil.DecodeRaw(payload, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.service.ProcessSettlement(ctx, req.Params())
	if err != nil {
		h.logger.WarnContext(ctx, "reputation update failed",
			"request_id", requestID,
			"did", req.AgentDID,
			"reference", req.X402TxnID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reputation update processed",
		"request_id", requestID,
		"did", updated.DID,
		"reference", req.X402TxnID,
		"score", updated.Reputation,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, agenthandler.FromAgent(updated))
}
