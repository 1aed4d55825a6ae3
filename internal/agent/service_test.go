package agent_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/suite"

	"repute/internal/agent"
	dErrors "repute/pkg/domain-errors"
	"repute/pkg/requestcontext"
)

// wallet is a throwaway ed25519 keypair with its registry DID.
type wallet struct {
	did  string
	priv ed25519.PrivateKey
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return wallet{
		did:  "did:sol:devnet:" + base58.Encode(pub),
		priv: priv,
	}
}

func (w wallet) sign(message string) string {
	return base58.Encode(ed25519.Sign(w.priv, []byte(message)))
}

type AgentServiceSuite struct {
	suite.Suite
	store   *agent.MemoryStore
	service *agent.Service
	ctx     context.Context
}

func TestAgentServiceSuite(t *testing.T) {
	suite.Run(t, new(AgentServiceSuite))
}

func (s *AgentServiceSuite) SetupTest() {
	s.store = agent.NewMemoryStore()
	s.service = agent.NewService(s.store)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func (s *AgentServiceSuite) params(w wallet, message string) agent.RegisterParams {
	return agent.RegisterParams{
		DID:     w.did,
		Name:    "translator",
		Summary: "translates between English and French",
		Capabilities: agent.Capabilities{
			Skills:      []string{"translate"},
			SuccessRate: 0.95,
			LatencyMs:   250,
		},
		Message:   message,
		Signature: w.sign(message),
	}
}

func (s *AgentServiceSuite) TestRegister() {
	s.Run("valid registration creates the agent at reputation zero", func() {
		s.SetupTest()
		w := newWallet(s.T())

		a, err := s.service.Register(s.ctx, s.params(w, "register:translator"))
		s.Require().NoError(err)
		s.Equal(w.did, a.DID)
		s.Zero(a.Reputation)
		s.Equal(agent.DisclosurePublic, a.Disclosure)
		s.False(a.ID.IsNil())

		found, err := s.store.FindByDID(context.Background(), w.did)
		s.NoError(err)
		s.Equal(a.ID, found.ID)
	})

	s.Run("signature by a different key is rejected before any write", func() {
		s.SetupTest()
		w := newWallet(s.T())
		impostor := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.Signature = impostor.sign("register:translator")

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, findErr := s.store.FindByDID(context.Background(), w.did)
		s.Error(findErr, "no record may exist after a failed authentication")
	})

	s.Run("signature over different message bytes is rejected", func() {
		s.SetupTest()
		w := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.Message = "register:translator "

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("garbage signature encoding is unauthorized, not a server error", func() {
		s.SetupTest()
		w := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.Signature = "not-base58-%%%"

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("malformed DID fails before signature verification", func() {
		s.SetupTest()
		w := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.DID = "did:onlytwo"

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty message is rejected", func() {
		s.SetupTest()
		w := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.Message = "   "

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("duplicate DID conflicts", func() {
		s.SetupTest()
		w := newWallet(s.T())

		_, err := s.service.Register(s.ctx, s.params(w, "register:translator"))
		s.Require().NoError(err)

		_, err = s.service.Register(s.ctx, s.params(w, "register:translator"))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid disclosure level is rejected", func() {
		s.SetupTest()
		w := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.Disclosure = "secret"

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("out-of-range success rate is rejected", func() {
		s.SetupTest()
		w := newWallet(s.T())

		params := s.params(w, "register:translator")
		params.Capabilities.SuccessRate = 1.5

		_, err := s.service.Register(s.ctx, params)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("collaborator results are stored on the record", func() {
		s.SetupTest()
		s.service = agent.NewService(s.store,
			agent.WithPinner(staticPinner{cid: "bafytestcid"}),
			agent.WithAttester(staticAttester{id: "att-42"}),
		)
		w := newWallet(s.T())

		a, err := s.service.Register(s.ctx, s.params(w, "register:translator"))
		s.Require().NoError(err)
		s.Equal("bafytestcid", a.MetadataCID)
		s.Equal("att-42", a.AttestationID)
	})
}

func (s *AgentServiceSuite) TestGet() {
	w := newWallet(s.T())
	_, err := s.service.Register(s.ctx, s.params(w, "register:translator"))
	s.Require().NoError(err)

	s.Run("returns the agent and its history", func() {
		a, events, err := s.service.Get(s.ctx, w.did)
		s.NoError(err)
		s.Equal(w.did, a.DID)
		s.Empty(events)
	})

	s.Run("unknown DID is not found", func() {
		_, _, err := s.service.Get(s.ctx, "did:sol:devnet:Nobody")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AgentServiceSuite) TestList() {
	for _, msg := range []string{"a", "b", "c"} {
		w := newWallet(s.T())
		_, err := s.service.Register(s.ctx, s.params(w, msg))
		s.Require().NoError(err)
	}

	agents, err := s.service.List(s.ctx)
	s.NoError(err)
	s.Len(agents, 3)
}

type staticPinner struct{ cid string }

func (p staticPinner) Pin(context.Context, []byte) (string, error) { return p.cid, nil }

type staticAttester struct{ id string }

func (a staticAttester) Attest(context.Context, string, []byte) (string, error) { return a.id, nil }
