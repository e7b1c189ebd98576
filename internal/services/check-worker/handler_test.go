package check_worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/priceping/priceping/internal/domain/event"
	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/domain/outbox"
	"github.com/priceping/priceping/internal/monitoring/checkerr"
	"github.com/priceping/priceping/internal/monitoring/textnorm"
	intoutbox "github.com/priceping/priceping/internal/outbox"
)

type fakeMonitors struct {
	byID    map[int64]*monitor.Monitor
	applied map[int64]monitor.CheckState
	getErr  error
}

func (f *fakeMonitors) GetByID(_ context.Context, id int64) (*monitor.Monitor, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	m, ok := f.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return m, nil
}

func (f *fakeMonitors) ApplyCheckState(_ context.Context, id int64, st monitor.CheckState) error {
	if f.applied == nil {
		f.applied = map[int64]monitor.CheckState{}
	}
	f.applied[id] = st
	return nil
}

type fakeEvents struct{ inserted []*event.Event }

func (f *fakeEvents) Insert(_ context.Context, e *event.Event) error {
	f.inserted = append(f.inserted, e)
	return nil
}

type fakeOutbox struct {
	keys  []string
	kinds []outbox.Kind
	data  [][]byte
}

func (f *fakeOutbox) Enqueue(_ context.Context, key string, kind outbox.Kind, data []byte) error {
	f.keys = append(f.keys, key)
	f.kinds = append(f.kinds, kind)
	f.data = append(f.data, data)
	return nil
}

func (f *fakeOutbox) PickBatch(context.Context, int, time.Duration) ([]outbox.Message, error) {
	return nil, nil
}
func (f *fakeOutbox) MarkSuccess(context.Context, []string) error { return nil }

type fakeTx struct{ calls int }

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeFetcher struct {
	value string
	err   error
}

func (f fakeFetcher) AndExtract(context.Context, string, string) (string, error) {
	return f.value, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newHandler(mons *fakeMonitors, evs *fakeEvents, ob *fakeOutbox, tx *fakeTx, fetch fakeFetcher) *Handler {
	return &Handler{
		Monitors:   mons,
		Events:     evs,
		Outbox:     ob,
		Transactor: tx,
		Fetcher:    fetch,
		Clock:      fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		Log:        zap.NewNop(),
	}
}

func strp(s string) *string { return &s }

func TestHandleCheck_Baseline(t *testing.T) {
	mons := &fakeMonitors{byID: map[int64]*monitor.Monitor{
		7: {ID: 7, OwnerID: 42, URL: "https://example.com", Selector: "h1",
			ValueType: monitor.ValueTypeText, Active: true},
	}}
	evs := &fakeEvents{}
	ob := &fakeOutbox{}
	tx := &fakeTx{}

	h := newHandler(mons, evs, ob, tx, fakeFetcher{value: "  In   Stock "})
	require.NoError(t, h.HandleCheck(context.Background(), 7))

	st := mons.applied[7]
	require.NotNil(t, st.Value)
	assert.Equal(t, "In Stock", *st.Value)
	assert.Equal(t, monitor.StatusOK, st.Status)

	// first observation records the baseline without fanout
	assert.Empty(t, evs.inserted)
	assert.Empty(t, ob.keys)
	assert.Zero(t, tx.calls)
}

func TestHandleCheck_Change(t *testing.T) {
	oldHash := textnorm.Hash("1299.00")
	mons := &fakeMonitors{byID: map[int64]*monitor.Monitor{
		7: {ID: 7, OwnerID: 42, URL: "https://example.com", Selector: ".price",
			ValueType: monitor.ValueTypePrice, Active: true,
			LastValue: strp("1299.00"), LastHash: &oldHash},
	}}
	evs := &fakeEvents{}
	ob := &fakeOutbox{}
	tx := &fakeTx{}

	h := newHandler(mons, evs, ob, tx, fakeFetcher{value: "$999.00"})
	require.NoError(t, h.HandleCheck(context.Background(), 7))

	assert.Equal(t, 1, tx.calls)

	require.Len(t, evs.inserted, 1)
	ev := evs.inserted[0]
	assert.Equal(t, "1299.00", ev.OldValue)
	assert.Equal(t, "999.00", ev.NewValue)
	assert.Equal(t, int64(42), ev.OwnerID)

	require.Len(t, ob.keys, 1)
	assert.Equal(t, outbox.KindValueChanged, ob.kinds[0])
	var payload intoutbox.ValueChangedPayload
	require.NoError(t, json.Unmarshal(ob.data[0], &payload))
	assert.Equal(t, int64(7), payload.MonitorID)
	assert.Equal(t, "999.00", payload.NewValue)

	st := mons.applied[7]
	assert.Equal(t, "999.00", *st.Value)
	assert.Equal(t, textnorm.Hash("999.00"), *st.Hash)
}

func TestHandleCheck_NoChange(t *testing.T) {
	h := textnorm.Hash("999.00")
	mons := &fakeMonitors{byID: map[int64]*monitor.Monitor{
		7: {ID: 7, URL: "https://example.com", Selector: ".price",
			ValueType: monitor.ValueTypePrice, Active: true,
			LastValue: strp("999.00"), LastHash: &h},
	}}
	evs := &fakeEvents{}
	ob := &fakeOutbox{}
	tx := &fakeTx{}

	hd := newHandler(mons, evs, ob, tx, fakeFetcher{value: "$999.00"})
	require.NoError(t, hd.HandleCheck(context.Background(), 7))

	assert.Empty(t, evs.inserted)
	assert.Empty(t, ob.keys)
	assert.Zero(t, tx.calls)
	assert.Equal(t, monitor.StatusOK, mons.applied[7].Status)
}

func TestHandleCheck_FetchFailure(t *testing.T) {
	mons := &fakeMonitors{byID: map[int64]*monitor.Monitor{
		7: {ID: 7, URL: "https://example.com", Selector: ".price",
			ValueType: monitor.ValueTypeText, Active: true},
	}}
	evs := &fakeEvents{}
	ob := &fakeOutbox{}
	tx := &fakeTx{}

	h := newHandler(mons, evs, ob, tx,
		fakeFetcher{err: checkerr.New(checkerr.KindBlockedBySite, "HTTP 403")})
	require.NoError(t, h.HandleCheck(context.Background(), 7))

	st := mons.applied[7]
	assert.Equal(t, monitor.StatusBlocked, st.Status)
	assert.Nil(t, st.Value)
	assert.Nil(t, st.Hash)
	require.NotNil(t, st.Error)
	assert.Contains(t, *st.Error, "blocked_by_site")
	assert.Empty(t, evs.inserted)
	assert.Empty(t, ob.keys)
}

func TestHandleCheck_SkipsInactive(t *testing.T) {
	mons := &fakeMonitors{byID: map[int64]*monitor.Monitor{
		7: {ID: 7, URL: "https://example.com", Selector: "h1", Active: false},
	}}
	h := newHandler(mons, &fakeEvents{}, &fakeOutbox{}, &fakeTx{}, fakeFetcher{value: "x"})
	require.NoError(t, h.HandleCheck(context.Background(), 7))
	assert.Empty(t, mons.applied)
}

func TestHandleCheck_IgnoresNonPositiveID(t *testing.T) {
	mons := &fakeMonitors{getErr: errors.New("must not be called")}
	h := newHandler(mons, &fakeEvents{}, &fakeOutbox{}, &fakeTx{}, fakeFetcher{})
	require.NoError(t, h.HandleCheck(context.Background(), 0))
	require.NoError(t, h.HandleCheck(context.Background(), -3))
}

func TestHandleCheck_GetError(t *testing.T) {
	mons := &fakeMonitors{getErr: errors.New("db down")}
	h := newHandler(mons, &fakeEvents{}, &fakeOutbox{}, &fakeTx{}, fakeFetcher{})
	err := h.HandleCheck(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get monitor")
}
