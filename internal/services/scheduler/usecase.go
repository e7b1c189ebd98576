package scheduler

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/services/scheduler/repo"
)

type Usecase struct {
	Repo   repo.MonitorRepo
	Events repo.Events

	tracer trace.Tracer
}

func NewUC(monitors repo.MonitorRepo, events repo.Events) *Usecase {
	return &Usecase{
		Repo:   monitors,
		Events: events,
		tracer: otel.Tracer("scheduler.uc"),
	}
}

// Tick claims the batch of monitors whose next check time has passed and
// publishes a check request for each. FetchDue already bumped next_check_at,
// so a publish failure means the monitor waits one full interval; the row is
// never lost, only late. Returns fetched, sent, and error counts.
func (u *Usecase) Tick(ctx context.Context, limit int) (int, int, int, error) {
	if limit <= 0 {
		limit = 100
	}

	ctx, span := u.tracer.Start(ctx, "scheduler.tick",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	due, err := u.Repo.FetchDue(ctx, limit)
	if err != nil {
		span.RecordError(err)
		return 0, 0, 1, fmt.Errorf("fetch due: %w", err)
	}
	span.SetAttributes(attribute.Int("batch.fetched", len(due)))
	if len(due) == 0 {
		return 0, 0, 0, nil
	}

	var sent, errs int
	for _, m := range due {
		if u.publishOne(ctx, m) {
			sent++
		} else {
			errs++
		}
	}

	span.SetAttributes(
		attribute.Int("batch.sent", sent),
		attribute.Int("batch.errors", errs),
	)
	return len(due), sent, errs, nil
}

func (u *Usecase) publishOne(ctx context.Context, m *monitor.Monitor) bool {
	_, span := u.tracer.Start(ctx, "scheduler.publish",
		trace.WithAttributes(
			attribute.Int64("monitor.id", m.ID),
			attribute.String("monitor.url", m.URL),
		),
	)
	defer span.End()

	if err := u.Events.PublishCheckRequested(ctx, m.ID); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("publish.status", "error"))
		return false
	}
	span.SetAttributes(attribute.String("publish.status", "ok"))
	return true
}
