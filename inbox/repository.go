package inbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides access to the command_inbox table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByID fetches a command by its identifier. It returns (nil, nil) when no
// row exists: absence is a normal outcome for the relay, not an error, since
// the writer-side record may never have been created.
func (r *Repository) FindByID(ctx context.Context, id string) (*Command, error) {
	const query = `
		SELECT id, idempotency_key, source, type, scope_key, payload_hash, payload,
		       status::text, result, error_message, processed_at, expires_at, created_at, updated_at
		FROM command_inbox
		WHERE id = $1
	`

	var command Command
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&command.ID,
		&command.IdempotencyKey,
		&command.Source,
		&command.Type,
		&command.ScopeKey,
		&command.PayloadHash,
		&command.Payload,
		&command.Status,
		&command.Result,
		&command.ErrorMessage,
		&command.ProcessedAt,
		&command.ExpiresAt,
		&command.CreatedAt,
		&command.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("inbox: query by id: %w", err)
	}

	return &command, nil
}

// MarkEnqueued conditionally flips a command from RECEIVED to ENQUEUED. It
// returns false when the row was not RECEIVED anymore, which guards against a
// retried relay cycle enqueuing the same command twice; callers treat false as
// "already handled".
func (r *Repository) MarkEnqueued(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE command_inbox SET status = 'ENQUEUED', updated_at = now() WHERE id = $1 AND status = 'RECEIVED'`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("inbox: mark enqueued %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Add records a RECEIVED command on behalf of the acceptance path, hashing the
// canonical payload for later duplicate detection. Re-inserting an existing id
// is a no-op.
func (r *Repository) Add(ctx context.Context, params AddParams) error {
	sum := sha256.Sum256(params.Payload)

	const query = `
		INSERT INTO command_inbox (id, idempotency_key, source, type, scope_key, payload_hash, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'RECEIVED', now(), now())
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		params.ID,
		params.IdempotencyKey,
		params.Source,
		params.Type,
		params.ScopeKey,
		hex.EncodeToString(sum[:]),
		params.Payload,
	)
	if err != nil {
		return fmt.Errorf("inbox: add command: %w", err)
	}
	return nil
}
