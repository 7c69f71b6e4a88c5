package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"commandrelay/ids"
	"commandrelay/relay"
)

type commandTemplate struct {
	eventType string
	payload   string
}

var templates = []commandTemplate{
	{"OccurrenceCreateRequested", `{"externalId":"EXT-1","type":"fire","description":"stress","reportedAt":"2024-01-01T00:00:00Z"}`},
	{"OccurrenceStartRequested", `{"occurrenceId":"occ-1"}`},
	{"OccurrenceResolvedRequested", `{"occurrenceId":"occ-1"}`},
	{"OccurrenceCancelledRequested", `{"occurrenceId":"occ-1"}`},
	{"DispatchCreateRequested", `{"occurrenceId":"occ-1","resourceCode":"AMB-07"}`},
	{"DispatchCloseRequested", `{"dispatchId":"disp-1"}`},
	{"DispatchStatusUpdateRequested", `{"dispatchId":"disp-1","statusCode":"EN_ROUTE"}`},
}

// CommandWriter keeps accepting synthetic commands: each iteration records an
// inbox row and its outbox event in one transaction, the way a real acceptance
// path would.
func CommandWriter(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		tmpl := templates[rand.Intn(len(templates))]
		commandID := ids.New()

		tx, err := pool.Begin(ctx)
		if err != nil {
			if isRetryable(err) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("writer begin: %w", err)
		}
		_, err = tx.Exec(ctx, `INSERT INTO command_inbox (id, idempotency_key, source, type, scope_key, payload_hash, payload, status, created_at, updated_at)
                               VALUES ($1,$2,'stress',$3,'tenant-stress','0000000000000000000000000000000000000000000000000000000000000000',$4,'RECEIVED',now(),now())`,
			commandID, ids.New(), tmpl.eventType, tmpl.payload)
		if err == nil {
			_, err = tx.Exec(ctx, `INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, status, created_at)
                                   VALUES ($1,'command',$2,$3,'PENDING',now())`,
				ids.New(), commandID, tmpl.eventType)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			if !isRetryable(err) {
				return fmt.Errorf("writer insert: %w", err)
			}
		} else if err := tx.Commit(ctx); err != nil && !isRetryable(err) {
			return fmt.Errorf("writer commit: %w", err)
		}

		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// RelayWorker drives batch cycles like a deployed relay instance. Cycle errors
// are expected under chaos and only end the actor when the context is gone.
func RelayWorker(ctx context.Context, processor *relay.Processor, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}

		if _, err := processor.ProcessBatch(ctx, 10); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(40)) * time.Millisecond)
	}
}

// isRetryable covers the errors chaos injects: terminated backends and broken
// pool connections.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57P01 admin shutdown, 08XXX connection exceptions
		return pgErr.Code == "57P01" || pgErr.Code[:2] == "08"
	}
	return true
}
