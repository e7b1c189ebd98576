package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/priceping/priceping/internal/domain/outbox"
)

var _ outbox.Repository = (*OutboxRepo)(nil)

type OutboxRepo struct{ db *DB }

func NewOutboxRepo(db *DB) *OutboxRepo { return &OutboxRepo{db: db} }

const (
	sqlOutboxEnqueue = `
INSERT INTO outbox (idempotency_key, data, status, kind)
VALUES ($1, $2, 'CREATED', $3)
ON CONFLICT (idempotency_key) DO NOTHING;`

	// Claims CREATED rows plus IN_PROGRESS rows whose claim expired, so a
	// worker that died mid-dispatch does not strand its batch.
	sqlOutboxClaim = `
WITH claimable AS (
    SELECT idempotency_key
    FROM outbox
    WHERE status = 'CREATED'
       OR (status = 'IN_PROGRESS' AND updated_at < now() - $2::interval)
    ORDER BY created_at
    LIMIT $1
), claimed AS (
    UPDATE outbox o
    SET status = 'IN_PROGRESS', updated_at = now()
    FROM claimable c
    WHERE o.idempotency_key = c.idempotency_key
    RETURNING o.idempotency_key, o.kind, o.data, o.status, o.created_at, o.updated_at
)
SELECT idempotency_key, kind, data, status, created_at, updated_at
FROM claimed;`

	sqlOutboxDone = `
UPDATE outbox
SET status = 'SUCCESS', updated_at = now()
WHERE idempotency_key = ANY($1);`
)

// Enqueue inserts an outbox row; it joins the transaction on ctx when the
// caller runs inside one.
func (r *OutboxRepo) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.querier(ctx).Exec(ctx, sqlOutboxEnqueue, key, data, kind); err != nil {
		return fmt.Errorf("enqueue outbox row: %w", err)
	}
	return nil
}

func (r *OutboxRepo) PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]outbox.Message, error) {
	if batch <= 0 {
		return nil, errors.New("batch must be positive")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	ttl := fmt.Sprintf("%f seconds", inProgressTTL.Seconds())
	rows, err := r.db.Pool.Query(ctx, sqlOutboxClaim, batch, ttl)
	if err != nil {
		return nil, fmt.Errorf("claim outbox batch: %w", err)
	}
	defer rows.Close()

	var claimed []outbox.Message
	for rows.Next() {
		var (
			m      outbox.Message
			status string
		)
		err := rows.Scan(&m.IdempotencyKey, &m.Kind, &m.Data, &status, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		m.Status = outbox.Status(status)
		claimed = append(claimed, m)
	}
	return claimed, rows.Err()
}

func (r *OutboxRepo) MarkSuccess(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, sqlOutboxDone, keys); err != nil {
		return fmt.Errorf("mark outbox rows done: %w", err)
	}
	return nil
}
