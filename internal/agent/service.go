package agent

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"repute/internal/identity"
	"repute/internal/platform/metrics"
	id "repute/pkg/domain"
	dErrors "repute/pkg/domain-errors"
	"repute/pkg/platform/sentinel"
	"repute/pkg/requestcontext"
)

// historyLimit caps the reputation history returned with a single agent.
const historyLimit = 50

// listLimit caps the recent-agents listing.
const listLimit = 100

// RegisterParams carries a validated registration request into the service.
type RegisterParams struct {
	DID          string
	Name         string
	Summary      string
	Endpoint     string
	Disclosure   DisclosureLevel
	Capabilities Capabilities
	Message      string
	Signature    string
}

// Service orchestrates agent registration and lookups. Registration is the
// only write path: it authenticates the owner's wallet signature against the
// key embedded in the DID before any record is created.
type Service struct {
	store    Store
	pinner   Pinner
	attester Attester
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPinner(p Pinner) ServiceOption {
	return func(s *Service) {
		if p != nil {
			s.pinner = p
		}
	}
}

func WithAttester(a Attester) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.attester = a
		}
	}
}

// NewService creates the agent service.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		pinner:   NopPinner{},
		attester: NopAttester{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register authenticates and creates a new agent with reputation zero.
//
// The DID is validated before any cryptographic work; the wallet signature
// is verified against the key extracted from the DID; only then are the
// external pin/attest collaborators consulted and the record created.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Agent, error) {
	ownerKey, err := identity.ParseDID(params.DID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(params.Message) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration message is required")
	}

	ok, err := identity.VerifySignature(params.Message, params.Signature, ownerKey)
	if err != nil {
		// Malformed signature or key encodings are authentication
		// failures at this boundary, not validation errors.
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "signature verification failed")
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature verification failed")
	}

	a, err := NewAgent(id.NewAgentID(), params.DID, params.Name, params.Capabilities, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, dErrors.MessageOf(err))
	}
	a.Summary = params.Summary
	a.Endpoint = params.Endpoint
	if params.Disclosure != "" {
		if !params.Disclosure.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "disclosure must be public, selective, or private")
		}
		a.Disclosure = params.Disclosure
	}

	capsPayload, err := json.Marshal(params.Capabilities)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode capabilities")
	}
	cid, err := s.pinner.Pin(ctx, capsPayload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to pin capabilities")
	}
	a.MetadataCID = cid

	attestationID, err := s.attester.Attest(ctx, params.DID, capsPayload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to obtain attestation")
	}
	a.AttestationID = attestationID

	if err := s.store.Create(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "agent DID already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create agent")
	}

	s.metrics.IncrementAgentsRegistered()
	s.logger.InfoContext(ctx, "agent registered",
		"did", a.DID,
		"agent_id", a.ID.String(),
	)
	return a, nil
}

// Get returns an agent and its most recent reputation events.
func (s *Service) Get(ctx context.Context, did string) (*Agent, []*Event, error) {
	a, err := s.store.FindByDID(ctx, did)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "agent not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load agent")
	}
	events, err := s.store.ListEvents(ctx, did, historyLimit)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reputation history")
	}
	return a, events, nil
}

// List returns recently registered agents, newest first.
func (s *Service) List(ctx context.Context) ([]*Agent, error) {
	agents, err := s.store.ListRecent(ctx, listLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list agents")
	}
	return agents, nil
}
