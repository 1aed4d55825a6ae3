package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"repute/internal/agent"
	"repute/pkg/platform/httputil"
	"repute/pkg/requestcontext"
)

// Service defines the interface for agent registry operations.
type Service interface {
	Register(ctx context.Context, params agent.RegisterParams) (*agent.Agent, error)
	Get(ctx context.Context, did string) (*agent.Agent, []*agent.Event, error)
	List(ctx context.Context) ([]*agent.Agent, error)
}

// Handler wires agent registry endpoints to the agent service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an agent handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts agent endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/agents", h.HandleRegister)
	r.Get("/api/agents", h.HandleList)
	r.Get("/api/agents/{did}", h.HandleGet)
}

// HandleRegister handles POST /api/agents requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.Register(ctx, req.Params())
	if err != nil {
		h.logger.WarnContext(ctx, "agent registration rejected",
			"request_id", requestID,
			"did", req.DID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "agent registered",
		"request_id", requestID,
		"did", created.DID,
		"agent_id", created.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromAgent(created))
}

// HandleList handles GET /api/agents requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agents, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "agent listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{Agents: FromAgents(agents)})
}

// HandleGet handles GET /api/agents/{did} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	did := chi.URLParam(r, "did")

	a, events, err := h.service.Get(ctx, did)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, GetResponse{
		Agent:  FromAgent(a),
		Events: FromEvents(events),
	})
}
