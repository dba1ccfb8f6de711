package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage/memory"
)

type fakeProvider struct {
	mu     sync.Mutex
	trains []model.Train
	err    error
}

func (f *fakeProvider) set(trains []model.Train, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trains, f.err = trains, err
}

func (f *fakeProvider) FindTrains(context.Context, model.TrainQuery) (model.TrainList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.TrainList{}, f.err
	}
	return model.TrainList{Trains: f.trains, TotalCount: len(f.trains)}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, _ int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type failingStore struct{ *memory.Store }

func (failingStore) ActiveSubscriptions(context.Context) ([]model.Subscription, error) {
	return nil, errors.New("connection refused")
}

func train(number string, seats int) model.Train {
	return model.Train{
		Number:    number,
		Route:     "Москва — Санкт-Петербург",
		Departure: "23:55",
		Arrival:   "08:00",
		CarGroups: []model.CarGroup{{CarType: "Купе", Available: seats > 0, Seats: seats}},
	}
}

func setup(t *testing.T, sub model.Subscription) (*Engine, *memory.Store, *fakeProvider, *fakeNotifier, int64) {
	t.Helper()
	store := memory.New()
	sub.UserID = 7
	sub.OriginCode, sub.OriginName = "2000000", "МОСКВА"
	sub.DestinationCode, sub.DestinationName = "2004000", "САНКТ-ПЕТЕРБУРГ"
	sub.DepartureDate = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	sub.Active = true
	require.NoError(t, store.CreateSubscription(context.Background(), &sub))
	provider := &fakeProvider{}
	notifier := &fakeNotifier{}
	return New(store, provider, notifier, Options{}), store, provider, notifier, sub.ID
}

func fingerprint(t *testing.T, store *memory.Store, id int64) string {
	t.Helper()
	fp, ok, err := store.Fingerprint(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	return fp
}

func TestNotifyOnThresholdCrossingOnly(t *testing.T) {
	engine, store, provider, notifier, id := setup(t, model.Subscription{TrainNumbers: "001", MinSeats: 2})

	provider.set([]model.Train{train("001", 0)}, nil)
	rep, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Unchanged)
	assert.Zero(t, notifier.count())
	assert.Equal(t, "001:0", fingerprint(t, store, id))

	provider.set([]model.Train{train("001", 3)}, nil)
	rep, err = engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Notified)
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "001:3", fingerprint(t, store, id))
	assert.Contains(t, notifier.sent[0], "Подписка #1")
	assert.Contains(t, notifier.sent[0], "Доступно мест: 3")
}

func TestNoDuplicateAlert(t *testing.T) {
	engine, _, provider, notifier, _ := setup(t, model.Subscription{})
	provider.set([]model.Train{train("001", 4), train("002", 1)}, nil)

	for range 3 {
		_, err := engine.RunCycle(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, notifier.count())
}

func TestBelowThresholdDoesNotNotify(t *testing.T) {
	engine, store, provider, notifier, id := setup(t, model.Subscription{MinSeats: 5})
	provider.set([]model.Train{train("001", 4)}, nil)
	_, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, notifier.count())
	assert.Equal(t, "001:4", fingerprint(t, store, id))
}

func TestProviderErrorKeepsFingerprint(t *testing.T) {
	engine, store, provider, notifier, id := setup(t, model.Subscription{})
	provider.set([]model.Train{train("001", 2)}, nil)
	_, err := engine.RunCycle(context.Background())
	require.NoError(t, err)

	provider.set(nil, errors.New("upstream 502"))
	rep, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	require.Error(t, rep.Err)
	assert.Equal(t, "001:2", fingerprint(t, store, id))
	assert.Equal(t, 1, notifier.count())
}

func TestNotifyFailureRetriesNextCycle(t *testing.T) {
	engine, store, provider, notifier, id := setup(t, model.Subscription{})
	provider.set([]model.Train{train("001", 2)}, nil)
	notifier.err = errors.New("bot was blocked")

	rep, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	_, ok, err := store.Fingerprint(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)

	notifier.err = nil
	_, err = engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.count())
}

func TestTrainAndCarTypeFilters(t *testing.T) {
	engine, store, provider, notifier, id := setup(t, model.Subscription{TrainNumbers: "002", CarTypes: "Плацкарт"})
	other := train("002", 6)
	other.CarGroups = append(other.CarGroups, model.CarGroup{CarType: "Плацкарт", Available: false, Seats: 9})
	provider.set([]model.Train{train("001", 5), other}, nil)

	_, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, notifier.count())
	assert.Equal(t, "002:0", fingerprint(t, store, id))
}

func TestCycleLevelFailure(t *testing.T) {
	engine := New(failingStore{memory.New()}, &fakeProvider{}, &fakeNotifier{}, Options{})
	_, err := engine.RunCycle(context.Background())
	require.Error(t, err)
	rep, ok := engine.LastReport()
	require.True(t, ok)
	assert.Error(t, rep.Err)
}

func TestRunStopsOnCancel(t *testing.T) {
	engine, _, provider, notifier, _ := setup(t, model.Subscription{})
	engine.opts.Interval = 10 * time.Millisecond
	provider.set([]model.Train{train("001", 1)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	require.Eventually(t, func() bool { return notifier.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	sub := model.Subscription{}
	a := evaluate(sub, []model.Train{train("002", 1), train("001", 3)})
	b := evaluate(sub, []model.Train{train("001", 3), train("002", 1)})
	assert.Equal(t, "001:3,002:1", a.fingerprint)
	assert.Equal(t, a.fingerprint, b.fingerprint)
}

func TestNoticeTextLimits(t *testing.T) {
	sub := model.Subscription{ID: 3, OriginName: "A", DestinationName: "B",
		DepartureDate: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)}
	var trains []trainSeats
	for i := range 8 {
		trains = append(trains, trainSeats{train: train(strings.Repeat("9", i+1), 2), seats: 2})
	}
	text := noticeText(sub, trains, 5, 4000)
	assert.Contains(t, text, "5. 🚂 99999")
	assert.NotContains(t, text, "6. 🚂")
	assert.Contains(t, text, "... и ещё 3")
	assert.Contains(t, text, "Дата: 2026-10-20")

	short := noticeText(sub, trains, 5, 120)
	assert.LessOrEqual(t, len([]rune(short)), 120)
	assert.True(t, strings.HasSuffix(short, "(сообщение обрезано)"))
}
