package check_worker

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/priceping/priceping/internal/domain/notification"
	"github.com/priceping/priceping/internal/domain/outbox"
	"github.com/priceping/priceping/internal/monitoring/change"
	"github.com/priceping/priceping/internal/monitoring/checkerr"
	"github.com/priceping/priceping/internal/monitoring/textnorm"
	intoutbox "github.com/priceping/priceping/internal/outbox"
	"github.com/priceping/priceping/internal/repository/postgres"
	"github.com/priceping/priceping/internal/services/check-worker/repo"
)

// PageFetcher is the slice of the fetch client the handler needs.
type PageFetcher interface {
	AndExtract(ctx context.Context, url, selector string) (string, error)
}

// Handler runs one monitor check end to end: fetch, extract, normalize,
// compare against the baseline and persist the outcome. When a change is
// observed, the event row and the outbox message are written in the same
// transaction as the monitor-state update.
type Handler struct {
	Monitors   repo.MonitorRepo
	Events     repo.EventRepo
	Outbox     outbox.Repository
	Transactor postgres.Transactor
	Fetcher    PageFetcher
	Clock      notification.Clock
	Log        *zap.Logger
}

func (h *Handler) HandleCheck(ctx context.Context, monitorID int64) error {
	if monitorID <= 0 {
		return nil
	}
	mon, err := h.Monitors.GetByID(ctx, monitorID)
	if err != nil {
		return fmt.Errorf("get monitor: %w", err)
	}
	if !mon.Active {
		h.Log.Debug("monitor inactive, skipping", zap.Int64("monitor_id", monitorID))
		return nil
	}

	now := h.Clock.Now().UTC()

	raw, fetchErr := h.Fetcher.AndExtract(ctx, mon.URL, mon.Selector)

	var out change.Outcome
	if fetchErr != nil {
		out = change.OnFailure(fetchErr, now)
		h.Log.Info("check failed",
			zap.Int64("monitor_id", mon.ID),
			zap.String("kind", string(checkerr.KindOf(fetchErr))),
			zap.Error(fetchErr))
	} else {
		out = change.OnSuccess(mon, textnorm.Normalize(raw, mon.ValueType), now)
	}

	if !out.Changed {
		if err := h.Monitors.ApplyCheckState(ctx, mon.ID, out.State); err != nil {
			return fmt.Errorf("apply check state: %w", err)
		}
		return nil
	}

	if err := h.Transactor.WithTx(ctx, func(txCtx context.Context) error {
		if err := h.Monitors.ApplyCheckState(txCtx, mon.ID, out.State); err != nil {
			return fmt.Errorf("apply check state: %w", err)
		}
		if err := h.Events.Insert(txCtx, out.Event); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}

		payload := intoutbox.ValueChangedPayload{
			MonitorID: mon.ID,
			OldValue:  out.Event.OldValue,
			NewValue:  out.Event.NewValue,
			At:        now,
		}
		b, _ := json.Marshal(payload)
		key := fmt.Sprintf("value:%d:%d", mon.ID, now.UnixNano())

		if err := h.Outbox.Enqueue(txCtx, key, outbox.KindValueChanged, b); err != nil {
			return fmt.Errorf("outbox enqueue: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("commit change: %w", err)
	}

	h.Log.Info("value changed",
		zap.Int64("monitor_id", mon.ID),
		zap.String("old_hash", out.Event.OldHash),
		zap.String("new_hash", out.Event.NewHash))
	return nil
}
