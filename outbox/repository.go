package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"commandrelay/ids"
)

const defaultBatchLimit = 100

// Repository persists outbox events in PostgreSQL. Every status transition is
// a single-row conditional update that commits independently; a failure on one
// row never blocks or rolls back another.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindPendingBatch returns up to limit PENDING events, oldest first. The rows
// are read FOR UPDATE SKIP LOCKED inside a short transaction so two relay
// instances fetching concurrently select disjoint batches. Claim remains the
// backstop once the locks are released.
func (r *Repository) FindPendingBatch(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > defaultBatchLimit {
		limit = defaultBatchLimit
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("outbox: begin fetch tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		SELECT id, aggregate_type, aggregate_id, event_type, status::text, error_message, created_at, sent_at
		FROM outbox
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: fetch pending: %w", err)
	}

	events := make([]Event, 0, limit)
	for rows.Next() {
		var event Event
		if err := rows.Scan(
			&event.ID,
			&event.AggregateType,
			&event.AggregateID,
			&event.EventType,
			&event.Status,
			&event.ErrorMessage,
			&event.CreatedAt,
			&event.SentAt,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("outbox: scan event: %w", err)
		}
		events = append(events, event)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox: iterate pending: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("outbox: commit fetch tx: %w", err)
	}

	return events, nil
}

// Claim transitions one row from PENDING to PROCESSING. It returns false when
// the row was no longer PENDING; callers must treat that as "skip", not as an
// error. At most one concurrent caller gets true for a given id.
func (r *Repository) Claim(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE outbox SET status = 'PROCESSING' WHERE id = $1 AND status = 'PENDING'`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("outbox: claim %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSent finalizes a PROCESSING row as SENT and stamps the send time.
// A second call finds zero matching rows and succeeds without effect.
func (r *Repository) MarkSent(ctx context.Context, id string) error {
	const query = `UPDATE outbox SET status = 'SENT', sent_at = now() WHERE id = $1 AND status = 'PROCESSING'`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("outbox: mark sent %s: %w", id, err)
	}
	return nil
}

// MarkFailed finalizes a PROCESSING row as FAILED and records the reason for
// audit. The row is retained and never retried automatically.
func (r *Repository) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE outbox SET status = 'FAILED', error_message = $2 WHERE id = $1 AND status = 'PROCESSING'`

	if _, err := r.pool.Exec(ctx, query, id, reason); err != nil {
		return fmt.Errorf("outbox: mark failed %s: %w", id, err)
	}
	return nil
}

// ResetToPending puts a PROCESSING row back in line after a transient failure
// so the next poll cycle picks it up again. No attempt counter is kept, so the
// retried work must be safe to attempt again after a partial failure.
func (r *Repository) ResetToPending(ctx context.Context, id string) error {
	const query = `UPDATE outbox SET status = 'PENDING' WHERE id = $1 AND status = 'PROCESSING'`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("outbox: reset to pending %s: %w", id, err)
	}
	return nil
}

// Add appends a PENDING event inside the caller's business transaction, which
// is what makes the outbox transactional: the event row commits or rolls back
// together with the business write.
func (r *Repository) Add(ctx context.Context, tx pgx.Tx, params AddParams) error {
	const query = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, status, created_at)
		VALUES ($1, $2, $3, $4, 'PENDING', now())
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := tx.Exec(ctx, query, ids.New(), params.AggregateType, params.AggregateID, params.EventType); err != nil {
		return fmt.Errorf("outbox: add pending event: %w", err)
	}
	return nil
}
