package monitor

import "context"

type Repo interface {
	Create(ctx context.Context, m *Monitor) error
	GetByID(ctx context.Context, id int64) (*Monitor, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Monitor, error)
	CountActiveByOwner(ctx context.Context, ownerID int64) (int, error)
	Update(ctx context.Context, m *Monitor) error
	Delete(ctx context.Context, id int64) error

	// FetchDue returns active monitors whose next check time has passed and
	// pushes their next_check_at forward by interval_minutes so concurrent
	// callers never pick the same row twice.
	FetchDue(ctx context.Context, limit int) ([]*Monitor, error)

	// ApplyCheckState persists the outcome of one check; it touches only the
	// last_* columns of the monitor row.
	ApplyCheckState(ctx context.Context, id int64, st CheckState) error
}
