package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All returns the relay's safety invariants as queries that must produce zero
// rows at any observable moment.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_status_allowlist",
			SQL: `SELECT id, status FROM outbox
                  WHERE status NOT IN ('PENDING','PROCESSING','SENT','FAILED')`,
		},
		{
			Name: "O2_sent_has_timestamp",
			SQL:  `SELECT id FROM outbox WHERE status = 'SENT' AND sent_at IS NULL`,
		},
		{
			Name: "O3_failed_has_reason",
			SQL:  `SELECT id FROM outbox WHERE status = 'FAILED' AND error_message IS NULL`,
		},
		{
			Name: "O4_reason_only_on_failed",
			SQL:  `SELECT id, status FROM outbox WHERE error_message IS NOT NULL AND status <> 'FAILED'`,
		},
		{
			Name: "O5_sent_implies_enqueued",
			SQL: `SELECT o.id FROM outbox o
                  LEFT JOIN command_inbox c ON c.id = o.aggregate_id
                  WHERE o.status = 'SENT' AND (c.id IS NULL OR c.status <> 'ENQUEUED')`,
		},
		{
			Name: "O6_no_stuck_processing",
			SQL: `SELECT id FROM outbox
                  WHERE status = 'PROCESSING' AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O7_inbox_status_allowlist",
			SQL:  `SELECT id, status FROM command_inbox WHERE status NOT IN ('RECEIVED','ENQUEUED')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
