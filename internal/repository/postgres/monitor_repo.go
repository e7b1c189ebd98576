package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/priceping/priceping/internal/domain/monitor"
)

var _ monitor.Repo = (*MonitorRepo)(nil)

type MonitorRepo struct {
	db *DB
}

func NewMonitorRepo(db *DB) *MonitorRepo { return &MonitorRepo{db: db} }

const monitorColumns = `
id, owner_id, url, selector, label, value_type, interval_minutes,
notification_email, cooldown_minutes, active, last_value, last_hash, last_checked_at,
last_status, last_error, next_check_at, created_at, updated_at`

const (
	qMonitorInsert = `
INSERT INTO monitors (owner_id, url, selector, label, value_type, interval_minutes, notification_email, cooldown_minutes, active, next_check_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW())
RETURNING` + monitorColumns + `;`

	qMonitorByID = `
SELECT` + monitorColumns + `
FROM monitors
WHERE id = $1;`

	qMonitorsByOwner = `
SELECT` + monitorColumns + `
FROM monitors
WHERE owner_id = $1
ORDER BY id DESC;`

	qMonitorActiveCount = `
SELECT count(1) FROM monitors WHERE owner_id = $1 AND active = TRUE;`

	qMonitorUpdate = `
UPDATE monitors
SET url = $2, selector = $3, label = $4, value_type = $5,
    interval_minutes = $6, notification_email = $7, cooldown_minutes = $8, active = $9,
    updated_at = NOW()
WHERE id = $1;`

	qMonitorDelete = `DELETE FROM monitors WHERE id = $1;`

	qMonitorFetchDue = `
SELECT` + monitorColumns + `
FROM monitors
WHERE active = TRUE AND next_check_at <= NOW()
ORDER BY next_check_at
FOR UPDATE SKIP LOCKED
LIMIT $1;`

	qMonitorBumpNext = `
UPDATE monitors
SET next_check_at = NOW() + (interval_minutes * INTERVAL '1 minute'),
    updated_at = NOW()
WHERE id = ANY($1);`

	// COALESCE keeps the last-known-good value and hash in place on a failed
	// check; they only move on success, when the caller passes them non-null.
	qMonitorApplyState = `
UPDATE monitors
SET last_value = COALESCE($2, last_value),
    last_hash = COALESCE($3, last_hash),
    last_checked_at = $4,
    last_status = $5,
    last_error = $6,
    updated_at = NOW()
WHERE id = $1;`
)

func scanMonitor(row pgx.Row, m *monitor.Monitor) error {
	if err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.URL,
		&m.Selector,
		&m.Label,
		&m.ValueType,
		&m.IntervalMinutes,
		&m.NotificationEmail,
		&m.CooldownMinutes,
		&m.Active,
		&m.LastValue,
		&m.LastHash,
		&m.LastCheckedAt,
		&m.LastStatus,
		&m.LastError,
		&m.NextCheckAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan monitor: %w", err)
	}
	return nil
}

func (r *MonitorRepo) Create(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.Pool.QueryRow(ctx, qMonitorInsert,
		m.OwnerID, m.URL, m.Selector, m.Label, m.ValueType,
		m.IntervalMinutes, m.NotificationEmail, m.CooldownMinutes)
	return scanMonitor(row, m)
}

func (r *MonitorRepo) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m monitor.Monitor
	if err := scanMonitor(r.db.Pool.QueryRow(ctx, qMonitorByID, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMonitorsByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query monitors: %w", err)
	}
	defer rows.Close()

	var out []*monitor.Monitor
	for rows.Next() {
		var m monitor.Monitor
		if err := scanMonitor(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *MonitorRepo) CountActiveByOwner(ctx context.Context, ownerID int64) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := r.db.Pool.QueryRow(ctx, qMonitorActiveCount, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count monitors: %w", err)
	}
	return n, nil
}

func (r *MonitorRepo) Update(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorUpdate,
		m.ID, m.URL, m.Selector, m.Label, m.ValueType,
		m.IntervalMinutes, m.NotificationEmail, m.CooldownMinutes, m.Active)
	if err != nil {
		return fmt.Errorf("update monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonitorDelete, id)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepo) FetchDue(ctx context.Context, limit int) ([]*monitor.Monitor, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, qMonitorFetchDue, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch due: %w", err)
	}
	defer rows.Close()

	var (
		out []*monitor.Monitor
		ids []int64
	)
	for rows.Next() {
		var m monitor.Monitor
		if err := scanMonitor(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx, qMonitorBumpNext, ids); err != nil {
		return nil, fmt.Errorf("bump next_check_at: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (r *MonitorRepo) ApplyCheckState(ctx context.Context, id int64, st monitor.CheckState) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.querier(ctx)
	_, err := eq.Exec(ctx, qMonitorApplyState,
		id, st.Value, st.Hash, st.CheckedAt, st.Status, st.Error)
	if err != nil {
		return fmt.Errorf("apply check state: %w", err)
	}
	return nil
}
