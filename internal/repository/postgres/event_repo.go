package postgres

import (
	"context"
	"fmt"

	"github.com/priceping/priceping/internal/domain/event"
)

var _ event.Repo = (*EventRepo)(nil)

type EventRepo struct{ db *DB }

func NewEventRepo(db *DB) *EventRepo { return &EventRepo{db: db} }

const (
	qEventInsert = `
INSERT INTO events (monitor_id, owner_id, old_value, new_value, old_hash, new_hash, changed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id;`

	qEventsByMonitor = `
SELECT id, monitor_id, owner_id, old_value, new_value, old_hash, new_hash, changed_at
FROM events
WHERE monitor_id = $1
ORDER BY changed_at DESC
LIMIT $2;`
)

func (r *EventRepo) Insert(ctx context.Context, e *event.Event) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.querier(ctx)
	if err := eq.QueryRow(ctx, qEventInsert,
		e.MonitorID, e.OwnerID, e.OldValue, e.NewValue, e.OldHash, e.NewHash, e.ChangedAt,
	).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepo) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qEventsByMonitor, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]*event.Event, 0, limit)
	for rows.Next() {
		var e event.Event
		if err := rows.Scan(&e.ID, &e.MonitorID, &e.OwnerID, &e.OldValue, &e.NewValue, &e.OldHash, &e.NewHash, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
