// Package events relays reputation changes from the transactional outbox to
// the event stream. The ledger writes outbox rows in the same transaction as
// the score mutation, so downstream consumers see exactly the events that
// actually committed.
package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Entry is one unpublished outbox row.
type Entry struct {
	ID        uuid.UUID
	TopicKey  string
	Payload   []byte
	CreatedAt time.Time
}

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	// NextBatch claims up to limit unpublished entries, oldest first.
	NextBatch(ctx context.Context, limit int) ([]Entry, error)
	// MarkPublished records that the given entries reached the stream.
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// PostgresOutbox reads the outbox table written by the ledger.
type PostgresOutbox struct {
	db *sql.DB
}

// NewPostgresOutbox creates an outbox reader on the given database.
func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

// NextBatch reads unpublished rows, oldest first. Delivery is at least once:
// a crash between producing and marking republishes the batch, and consumers
// must dedupe on the event id.
func (o *PostgresOutbox) NextBatch(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, topic_key, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TopicKey, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the entries so they are never claimed again.
func (o *PostgresOutbox) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	if _, err := o.db.ExecContext(ctx, `
		UPDATE outbox
		SET published_at = NOW()
		WHERE id = ANY($1)`,
		pq.Array(raw),
	); err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}
