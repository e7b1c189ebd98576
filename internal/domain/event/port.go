package event

import "context"

type Repo interface {
	Insert(ctx context.Context, e *Event) error
	ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*Event, error)
}
