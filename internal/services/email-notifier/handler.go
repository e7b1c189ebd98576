package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/priceping/priceping/internal/domain/notification"
	"github.com/priceping/priceping/internal/services/email-notifier/repo"
)

type ValueChange struct {
	MonitorID int64
	OldValue  string
	NewValue  string
	At        time.Time
}

type Handler struct {
	Monitors repo.MonitorReader
	Store    repo.NotificationRepo
	Out      notification.EmailSender
	Clock    notification.Clock
}

func (h *Handler) HandleValueChange(ctx context.Context, ev ValueChange) error {
	mon, err := h.Monitors.GetByID(ctx, ev.MonitorID)
	if err != nil {
		return fmt.Errorf("get monitor: %w", err)
	}
	if mon.NotificationEmail == "" {
		return nil
	}

	label := mon.Label
	if label == "" {
		label = mon.URL
	}

	subject := fmt.Sprintf("%s changed: %s", label, ev.NewValue)
	body := fmt.Sprintf(
		"Hello!\n\nThe value you are watching on %s changed:\n\n  was: %s\n  now: %s\n\nObserved at %s.\n\n— PricePing",
		mon.URL, ev.OldValue, ev.NewValue, ev.At.UTC().Format(time.RFC3339),
	)

	if err := h.Out.Send(ctx, mon.NotificationEmail, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	// The email already went out; a failed audit row is not worth a redelivery
	// that would double-notify.
	_ = h.Store.Create(ctx, &notification.Notification{
		MonitorID: mon.ID,
		OwnerID:   mon.OwnerID,
		Type:      "email",
		SentAt:    h.Clock.Now().UTC(),
		Payload:   body,
	})

	return nil
}
