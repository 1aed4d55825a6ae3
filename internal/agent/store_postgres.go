package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	id "repute/pkg/domain"
	"repute/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore is the production Store. ApplyEvent takes a row lock on the
// agent (SELECT ... FOR UPDATE) and re-reads the score under the lock, so
// concurrent settlements for the same agent serialize instead of racing.
// A UNIQUE (agent_id, reference) constraint backs the idempotency check even
// if two replicas race past the in-transaction existence check.
type PostgresStore struct {
	db     *sql.DB
	outbox bool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithOutbox makes ApplyEvent write each accepted event to the outbox table
// inside the same transaction, for the Kafka publisher to pick up.
func WithOutbox() PostgresOption {
	return func(s *PostgresStore) {
		s.outbox = true
	}
}

// NewPostgres creates a PostgreSQL-backed store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Create(ctx context.Context, a *Agent) error {
	query := `
		INSERT INTO agents (
			id, did, name, summary, endpoint, disclosure,
			metadata_cid, attestation_id, skills, success_rate, latency_ms,
			reputation, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(a.ID),
		a.DID,
		a.Name,
		a.Summary,
		a.Endpoint,
		string(a.Disclosure),
		a.MetadataCID,
		a.AttestationID,
		pq.Array(a.Capabilities.Skills),
		a.Capabilities.SuccessRate,
		a.Capabilities.LatencyMs,
		a.Reputation,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

const agentColumns = `
	id, did, name, summary, endpoint, disclosure,
	metadata_cid, attestation_id, skills, success_rate, latency_ms,
	reputation, created_at, updated_at
`

func (s *PostgresStore) FindByDID(ctx context.Context, did string) (*Agent, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE did = $1`, did)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, did string, limit int) ([]*Event, error) {
	// Resolve the agent first so unknown DIDs report not-found rather than
	// an empty history.
	a, err := s.FindByDID(ctx, did)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, delta, reference, description, created_at
		FROM reputation_events
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, uuid.UUID(a.ID), limit)
	if err != nil {
		return nil, fmt.Errorf("query reputation events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reputation event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reputation events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) FindEvent(ctx context.Context, did, reference string) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.id, e.agent_id, e.delta, e.reference, e.description, e.created_at
		FROM reputation_events e
		JOIN agents a ON a.id = e.agent_id
		WHERE a.did = $1 AND e.reference = $2
	`, did, reference)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query reputation event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ApplyEvent(ctx context.Context, did string, ev *Event, compute func(current float64) float64, now time.Time) (*Agent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Lock the agent row; the re-read under the lock is what makes the
	// read-modify-write safe against concurrent settlements.
	row := tx.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE did = $1 FOR UPDATE`, did)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock agent row: %w", err)
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reputation_events WHERE agent_id = $1 AND reference = $2
		)
	`, uuid.UUID(a.ID), ev.Reference).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check event existence: %w", err)
	}
	if exists {
		return nil, sentinel.ErrDuplicate
	}

	a.Reputation = compute(a.Reputation)
	a.UpdatedAt = now

	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET reputation = $1, updated_at = $2 WHERE id = $3`,
		a.Reputation, a.UpdatedAt, uuid.UUID(a.ID)); err != nil {
		return nil, fmt.Errorf("update agent score: %w", err)
	}

	ev.AgentID = a.ID
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reputation_events (id, agent_id, delta, reference, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(ev.ID), uuid.UUID(ev.AgentID), ev.Delta, ev.Reference, ev.Description, ev.CreatedAt)
	if isUniqueViolation(err) {
		// Another replica recorded the same reference between our
		// existence check and insert.
		return nil, sentinel.ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert reputation event: %w", err)
	}

	if s.outbox {
		if err := insertOutbox(ctx, tx, did, a, ev); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply tx: %w", err)
	}
	return a, nil
}

// outboxPayload is the JSON structure published to Kafka by the events
// worker. Finality of the record, not the broker, is the source of truth.
type outboxPayload struct {
	EventID     string    `json:"event_id"`
	AgentDID    string    `json:"agent_did"`
	Delta       float64   `json:"delta"`
	Reference   string    `json:"reference"`
	Description string    `json:"description,omitempty"`
	Score       float64   `json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

func insertOutbox(ctx context.Context, tx *sql.Tx, did string, a *Agent, ev *Event) error {
	payload, err := json.Marshal(outboxPayload{
		EventID:     ev.ID.String(),
		AgentDID:    did,
		Delta:       ev.Delta,
		Reference:   ev.Reference,
		Description: ev.Description,
		Score:       a.Reputation,
		CreatedAt:   ev.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outbox (id, topic_key, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), did, payload, ev.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	var (
		a       Agent
		agentID uuid.UUID
		skills  []string
	)
	err := row.Scan(
		&agentID,
		&a.DID,
		&a.Name,
		&a.Summary,
		&a.Endpoint,
		&a.Disclosure,
		&a.MetadataCID,
		&a.AttestationID,
		pq.Array(&skills),
		&a.Capabilities.SuccessRate,
		&a.Capabilities.LatencyMs,
		&a.Reputation,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ID = id.AgentID(agentID)
	a.Capabilities.Skills = skills
	return &a, nil
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		ev      Event
		eventID uuid.UUID
		agentID uuid.UUID
	)
	err := row.Scan(
		&eventID,
		&agentID,
		&ev.Delta,
		&ev.Reference,
		&ev.Description,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.ID = id.EventID(eventID)
	ev.AgentID = id.AgentID(agentID)
	return &ev, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
