package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/priceping/priceping/internal/domain/event"
	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/monitoring/ssrf"
	"github.com/priceping/priceping/internal/plan"
)

var (
	ErrForbidden = errors.New("forbidden")
	ErrPlanLimit = errors.New("plan limit reached")
)

// ErrInvalidInput carries a user-facing validation message.
type ErrInvalidInput struct{ Msg string }

func (e ErrInvalidInput) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return ErrInvalidInput{Msg: fmt.Sprintf(format, args...)}
}

// Identity is who is calling, as established by the upstream auth layer.
type Identity struct {
	OwnerID int64
	Plan    plan.Plan
}

// EventLister narrows event.Repo to the history read the API exposes.
type EventLister interface {
	ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*event.Event, error)
}

type MonitorUsecase struct {
	Monitors monitor.Repo
	Events   EventLister
	Clock    func() time.Time
}

func NewMonitorUsecase(monitors monitor.Repo, events EventLister, clk func() time.Time) *MonitorUsecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &MonitorUsecase{Monitors: monitors, Events: events, Clock: clk}
}

type MonitorInput struct {
	URL               string            `json:"url"`
	Selector          string            `json:"selector"`
	Label             string            `json:"label"`
	ValueType         monitor.ValueType `json:"value_type"`
	IntervalMinutes   int               `json:"interval_minutes"`
	NotificationEmail string            `json:"notification_email"`
	CooldownMinutes   int               `json:"cooldown_minutes"`
	Active            *bool             `json:"active"`
}

func (in *MonitorInput) validate(id Identity) error {
	if _, err := ssrf.Validate(in.URL); err != nil {
		return invalid("url: %v", err)
	}
	if strings.TrimSpace(in.Selector) == "" {
		return invalid("selector must not be empty")
	}
	if len(in.Selector) > 1024 {
		return invalid("selector too long")
	}
	if !in.ValueType.Valid() {
		return invalid("value_type must be %q or %q", monitor.ValueTypeText, monitor.ValueTypePrice)
	}
	if !monitor.IntervalAllowed(in.IntervalMinutes) {
		return invalid("interval_minutes must be one of %v", monitor.AllowedIntervals)
	}
	if !plan.CanUseInterval(id.Plan, in.IntervalMinutes) {
		return invalid("interval_minutes below plan minimum (%d)", plan.LimitsFor(id.Plan).MinIntervalMinutes)
	}
	if !strings.Contains(in.NotificationEmail, "@") {
		return invalid("notification_email looks invalid")
	}
	if in.CooldownMinutes < 0 {
		return invalid("cooldown_minutes must be positive")
	}
	return nil
}

func (u *MonitorUsecase) Create(ctx context.Context, id Identity, in *MonitorInput) (*monitor.Monitor, error) {
	if err := in.validate(id); err != nil {
		return nil, err
	}
	active, err := u.Monitors.CountActiveByOwner(ctx, id.OwnerID)
	if err != nil {
		return nil, err
	}
	if !plan.CanCreateMonitor(id.Plan, active) {
		return nil, ErrPlanLimit
	}

	cooldown := in.CooldownMinutes
	if cooldown == 0 {
		cooldown = 60
	}
	m := &monitor.Monitor{
		OwnerID:           id.OwnerID,
		URL:               in.URL,
		Selector:          in.Selector,
		Label:             in.Label,
		ValueType:         in.ValueType,
		IntervalMinutes:   in.IntervalMinutes,
		NotificationEmail: in.NotificationEmail,
		CooldownMinutes:   cooldown,
		Active:            true,
	}
	if err := u.Monitors.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (u *MonitorUsecase) Get(ctx context.Context, id Identity, monitorID int64) (*monitor.Monitor, error) {
	m, err := u.Monitors.GetByID(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if m.OwnerID != id.OwnerID {
		return nil, ErrForbidden
	}
	return m, nil
}

func (u *MonitorUsecase) List(ctx context.Context, id Identity) ([]*monitor.Monitor, error) {
	return u.Monitors.ListByOwner(ctx, id.OwnerID)
}

func (u *MonitorUsecase) Update(ctx context.Context, id Identity, monitorID int64, in *MonitorInput) (*monitor.Monitor, error) {
	cur, err := u.Monitors.GetByID(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if cur.OwnerID != id.OwnerID {
		return nil, ErrForbidden
	}
	if err := in.validate(id); err != nil {
		return nil, err
	}

	cur.URL = in.URL
	cur.Selector = in.Selector
	cur.Label = in.Label
	cur.ValueType = in.ValueType
	cur.IntervalMinutes = in.IntervalMinutes
	cur.NotificationEmail = in.NotificationEmail
	if in.CooldownMinutes > 0 {
		cur.CooldownMinutes = in.CooldownMinutes
	}
	if in.Active != nil {
		cur.Active = *in.Active
	}
	cur.UpdatedAt = u.Clock()

	if err := u.Monitors.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// ListEvents returns the change history of one monitor, newest first.
func (u *MonitorUsecase) ListEvents(ctx context.Context, id Identity, monitorID int64, limit int) ([]*event.Event, error) {
	cur, err := u.Monitors.GetByID(ctx, monitorID)
	if err != nil {
		return nil, err
	}
	if cur.OwnerID != id.OwnerID {
		return nil, ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.Events.ListByMonitor(ctx, monitorID, limit)
}

func (u *MonitorUsecase) Delete(ctx context.Context, id Identity, monitorID int64) error {
	cur, err := u.Monitors.GetByID(ctx, monitorID)
	if err != nil {
		return err
	}
	if cur.OwnerID != id.OwnerID {
		return ErrForbidden
	}
	return u.Monitors.Delete(ctx, monitorID)
}
