//go:build integration

package agent_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"repute/internal/agent"
	id "repute/pkg/domain"
	"repute/pkg/platform/sentinel"
	"repute/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *agent.PostgresStore
	ctx   context.Context
	now   time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = agent.NewPostgres(s.pg.DB, agent.WithOutbox())
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func (s *PostgresStoreSuite) createAgent(did string) *agent.Agent {
	a, err := agent.NewAgent(id.NewAgentID(), did, "worker", agent.Capabilities{
		Skills:      []string{"summarize", "translate"},
		SuccessRate: 0.8,
		LatencyMs:   150,
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, a))
	return a
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	a := s.createAgent("did:sol:devnet:One")

	found, err := s.store.FindByDID(s.ctx, a.DID)
	s.Require().NoError(err)
	s.Equal(a.ID, found.ID)
	s.Equal(a.Capabilities.Skills, found.Capabilities.Skills)
	s.Equal(agent.DisclosurePublic, found.Disclosure)

	_, err = s.store.FindByDID(s.ctx, "did:sol:devnet:Nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateDID() {
	s.createAgent("did:sol:devnet:Dup")

	again, err := agent.NewAgent(id.NewAgentID(), "did:sol:devnet:Dup", "worker", agent.Capabilities{SuccessRate: 0.5}, s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, again), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestApplyEvent() {
	const did = "did:sol:devnet:Scored"
	s.createAgent(did)

	ev := &agent.Event{ID: id.NewEventID(), Delta: 0.1, Reference: "tx1", CreatedAt: s.now}
	updated, err := s.store.ApplyEvent(s.ctx, did, ev, func(current float64) float64 {
		return agent.ClampScore(current + 0.1)
	}, s.now)
	s.Require().NoError(err)
	s.InDelta(0.1, updated.Reputation, 1e-12)

	s.Run("event is recorded with the agent id", func() {
		found, err := s.store.FindEvent(s.ctx, did, "tx1")
		s.Require().NoError(err)
		s.Equal(updated.ID, found.AgentID)
		s.InDelta(0.1, found.Delta, 1e-12)
	})

	s.Run("duplicate reference is rejected by the constraint", func() {
		dup := &agent.Event{ID: id.NewEventID(), Delta: 0.1, Reference: "tx1", CreatedAt: s.now}
		_, err := s.store.ApplyEvent(s.ctx, did, dup, func(c float64) float64 { return c + 0.1 }, s.now)
		s.ErrorIs(err, sentinel.ErrDuplicate)
	})

	s.Run("outbox row committed with the event", func() {
		var count int
		s.Require().NoError(s.pg.DB.QueryRowContext(s.ctx,
			`SELECT COUNT(*) FROM outbox WHERE topic_key = $1`, did).Scan(&count))
		s.Equal(1, count)
	})
}

// TestApplyEventConcurrency drives parallel settlements at one row and
// verifies the FOR UPDATE lock serializes them with no lost updates.
func (s *PostgresStoreSuite) TestApplyEventConcurrency() {
	const did = "did:sol:devnet:Racer"
	const workers = 16
	s.createAgent(did)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		ref := fmt.Sprintf("tx-%d", i)
		g.Go(func() error {
			ev := &agent.Event{ID: id.NewEventID(), Delta: 0.01, Reference: ref, CreatedAt: s.now}
			_, err := s.store.ApplyEvent(s.ctx, did, ev, func(current float64) float64 {
				return agent.ClampScore(current + 0.01)
			}, s.now)
			return err
		})
	}
	s.Require().NoError(g.Wait())

	a, err := s.store.FindByDID(s.ctx, did)
	s.Require().NoError(err)
	s.InDelta(workers*0.01, a.Reputation, 1e-9, "every delta must land exactly once")
}

func (s *PostgresStoreSuite) TestListEvents() {
	const did = "did:sol:devnet:History"
	s.createAgent(did)

	for i := 0; i < 3; i++ {
		ev := &agent.Event{
			ID:        id.NewEventID(),
			Delta:     0.01,
			Reference: fmt.Sprintf("tx-%d", i),
			CreatedAt: s.now.Add(time.Duration(i) * time.Second),
		}
		_, err := s.store.ApplyEvent(s.ctx, did, ev, func(c float64) float64 { return c }, s.now)
		s.Require().NoError(err)
	}

	events, err := s.store.ListEvents(s.ctx, did, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("tx-2", events[0].Reference, "newest first")

	_, err = s.store.ListEvents(s.ctx, "did:sol:devnet:Ghost", 10)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
