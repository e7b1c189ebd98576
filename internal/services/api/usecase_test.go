package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceping/priceping/internal/domain/event"
	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/plan"
	"github.com/priceping/priceping/internal/repository/postgres"
)

// memEvents is an in-memory EventLister for usecase and handler tests.
type memEvents struct {
	byMonitor map[int64][]*event.Event
}

func (e *memEvents) ListByMonitor(_ context.Context, monitorID int64, limit int) ([]*event.Event, error) {
	list := e.byMonitor[monitorID]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// memRepo is an in-memory monitor.Repo for usecase and handler tests.
type memRepo struct {
	seq      int64
	monitors map[int64]*monitor.Monitor
}

func newMemRepo() *memRepo {
	return &memRepo{monitors: map[int64]*monitor.Monitor{}}
}

func (r *memRepo) Create(_ context.Context, m *monitor.Monitor) error {
	r.seq++
	m.ID = r.seq
	cp := *m
	r.monitors[m.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (*monitor.Monitor, error) {
	m, ok := r.monitors[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	var out []*monitor.Monitor
	for _, m := range r.monitors {
		if m.OwnerID == ownerID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) CountActiveByOwner(_ context.Context, ownerID int64) (int, error) {
	n := 0
	for _, m := range r.monitors {
		if m.OwnerID == ownerID && m.Active {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) Update(_ context.Context, m *monitor.Monitor) error {
	if _, ok := r.monitors[m.ID]; !ok {
		return postgres.ErrNotFound
	}
	cp := *m
	r.monitors[m.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.monitors[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(r.monitors, id)
	return nil
}

func (r *memRepo) FetchDue(_ context.Context, limit int) ([]*monitor.Monitor, error) {
	var out []*monitor.Monitor
	for _, m := range r.monitors {
		if m.Active && len(out) < limit {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ApplyCheckState(_ context.Context, id int64, st monitor.CheckState) error {
	m, ok := r.monitors[id]
	if !ok {
		return postgres.ErrNotFound
	}
	m.LastValue = st.Value
	m.LastHash = st.Hash
	m.LastCheckedAt = &st.CheckedAt
	m.LastStatus = &st.Status
	m.LastError = st.Error
	return nil
}

var (
	proID  = Identity{OwnerID: 1, Plan: plan.Pro}
	freeID = Identity{OwnerID: 2, Plan: plan.Free}
)

func validInput() *MonitorInput {
	return &MonitorInput{
		URL:               "https://shop.example.com/p/1",
		Selector:          ".price",
		Label:             "widget",
		ValueType:         monitor.ValueTypePrice,
		IntervalMinutes:   60,
		NotificationEmail: "o@example.com",
	}
}

func newUC() (*MonitorUsecase, *memRepo) {
	repo := newMemRepo()
	clk := func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return NewMonitorUsecase(repo, &memEvents{byMonitor: map[int64][]*event.Event{}}, clk), repo
}

func TestCreate(t *testing.T) {
	uc, _ := newUC()
	m, err := uc.Create(context.Background(), proID, validInput())
	require.NoError(t, err)
	assert.NotZero(t, m.ID)
	assert.Equal(t, int64(1), m.OwnerID)
	assert.True(t, m.Active)
	assert.Equal(t, 60, m.CooldownMinutes)
}

func TestCreate_ValidationFailures(t *testing.T) {
	uc, _ := newUC()
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*MonitorInput)
	}{
		{"private url", func(in *MonitorInput) { in.URL = "http://127.0.0.1/x" }},
		{"bad scheme", func(in *MonitorInput) { in.URL = "ftp://example.com" }},
		{"empty selector", func(in *MonitorInput) { in.Selector = "   " }},
		{"bad value type", func(in *MonitorInput) { in.ValueType = "json" }},
		{"bad interval", func(in *MonitorInput) { in.IntervalMinutes = 30 }},
		{"bad email", func(in *MonitorInput) { in.NotificationEmail = "nope" }},
		{"negative cooldown", func(in *MonitorInput) { in.CooldownMinutes = -1 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := validInput()
			c.mutate(in)
			_, err := uc.Create(ctx, proID, in)
			var inv ErrInvalidInput
			require.ErrorAs(t, err, &inv, c.name)
		})
	}
}

func TestCreate_PlanInterval(t *testing.T) {
	uc, _ := newUC()
	in := validInput()
	in.IntervalMinutes = 60 // below the free plan's daily minimum
	_, err := uc.Create(context.Background(), freeID, in)
	var inv ErrInvalidInput
	require.ErrorAs(t, err, &inv)

	in.IntervalMinutes = 1440
	_, err = uc.Create(context.Background(), freeID, in)
	require.NoError(t, err)
}

func TestCreate_PlanLimit(t *testing.T) {
	uc, _ := newUC()
	in := validInput()
	in.IntervalMinutes = 1440
	_, err := uc.Create(context.Background(), freeID, in)
	require.NoError(t, err)

	_, err = uc.Create(context.Background(), freeID, in)
	assert.ErrorIs(t, err, ErrPlanLimit)
}

func TestCreate_KeepsExplicitCooldown(t *testing.T) {
	uc, _ := newUC()
	in := validInput()
	in.CooldownMinutes = 15
	m, err := uc.Create(context.Background(), proID, in)
	require.NoError(t, err)
	assert.Equal(t, 15, m.CooldownMinutes)
}

func TestGet_OwnerBoundary(t *testing.T) {
	uc, _ := newUC()
	m, err := uc.Create(context.Background(), proID, validInput())
	require.NoError(t, err)

	got, err := uc.Get(context.Background(), proID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = uc.Get(context.Background(), freeID, m.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = uc.Get(context.Background(), proID, 999)
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	uc, _ := newUC()
	m, err := uc.Create(context.Background(), proID, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Label = "renamed"
	off := false
	in.Active = &off

	got, err := uc.Update(context.Background(), proID, m.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Label)
	assert.False(t, got.Active)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), got.UpdatedAt)

	_, err = uc.Update(context.Background(), freeID, m.ID, in)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdate_ZeroCooldownKeepsCurrent(t *testing.T) {
	uc, _ := newUC()
	in := validInput()
	in.CooldownMinutes = 90
	m, err := uc.Create(context.Background(), proID, in)
	require.NoError(t, err)

	got, err := uc.Update(context.Background(), proID, m.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, 90, got.CooldownMinutes)
}

func TestDelete(t *testing.T) {
	uc, repo := newUC()
	m, err := uc.Create(context.Background(), proID, validInput())
	require.NoError(t, err)

	assert.ErrorIs(t, uc.Delete(context.Background(), freeID, m.ID), ErrForbidden)
	require.NoError(t, uc.Delete(context.Background(), proID, m.ID))
	_, ok := repo.monitors[m.ID]
	assert.False(t, ok)
}

func TestListEvents(t *testing.T) {
	repo := newMemRepo()
	events := &memEvents{byMonitor: map[int64][]*event.Event{}}
	uc := NewMonitorUsecase(repo, events, nil)

	m, err := uc.Create(context.Background(), proID, validInput())
	require.NoError(t, err)
	events.byMonitor[m.ID] = []*event.Event{
		{ID: 2, MonitorID: m.ID, OldValue: "1299.00", NewValue: "999.00"},
		{ID: 1, MonitorID: m.ID, OldValue: "1499.00", NewValue: "1299.00"},
	}

	list, err := uc.ListEvents(context.Background(), proID, m.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = uc.ListEvents(context.Background(), proID, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "999.00", list[0].NewValue)

	_, err = uc.ListEvents(context.Background(), freeID, m.ID, 0)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = uc.ListEvents(context.Background(), proID, 999, 0)
	assert.ErrorIs(t, err, postgres.ErrNotFound)
}

func TestList(t *testing.T) {
	uc, _ := newUC()
	_, err := uc.Create(context.Background(), proID, validInput())
	require.NoError(t, err)

	list, err := uc.List(context.Background(), proID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = uc.List(context.Background(), freeID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
