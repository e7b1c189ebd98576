package repo

import (
	"context"

	"github.com/priceping/priceping/internal/domain/event"
	"github.com/priceping/priceping/internal/domain/monitor"
)

// MonitorRepo is the slice of monitor.Repo the worker touches.
type MonitorRepo interface {
	GetByID(ctx context.Context, id int64) (*monitor.Monitor, error)
	ApplyCheckState(ctx context.Context, id int64, st monitor.CheckState) error
}

type EventRepo interface {
	Insert(ctx context.Context, e *event.Event) error
}

type Monitors struct{ R monitor.Repo }
type Events struct{ R event.Repo }

func (a Monitors) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	return a.R.GetByID(ctx, id)
}

func (a Monitors) ApplyCheckState(ctx context.Context, id int64, st monitor.CheckState) error {
	return a.R.ApplyCheckState(ctx, id, st)
}

func (a Events) Insert(ctx context.Context, e *event.Event) error {
	return a.R.Insert(ctx, e)
}
