package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/internal/config"
	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/monitor"
	"github.com/m3rciful/seatwatch/internal/search"
	"github.com/m3rciful/seatwatch/internal/storage/memory"
)

type stubProvider struct{}

func (stubProvider) FindStations(context.Context, string) ([]model.Station, error) { return nil, nil }

func (stubProvider) FindTrains(context.Context, model.TrainQuery) (model.TrainList, error) {
	return model.TrainList{}, nil
}

func TestNewRegistersCommandsAndCallbacks(t *testing.T) {
	cfg := config.Defaults()
	app, err := New(&cfg, memory.New(), stubProvider{})
	require.NoError(t, err)

	visible := app.reg.ListCommands(true)
	names := make([]string, 0, len(visible))
	for _, c := range visible {
		names = append(names, c.Text)
	}
	assert.Equal(t, []string{"/help", "/search", "/start", "/subscriptions"}, names)

	_, cmd, ok := app.reg.LookupCommand("/status")
	require.True(t, ok)
	assert.True(t, cmd.AdminOnly)

	assert.ElementsMatch(t, []string{
		search.TagStation, search.TagTrain, search.TagAnyTrain, search.TagSubscribe,
		search.TagDisable, search.TagEnable,
	}, app.reg.ListCallbacks())
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, memory.New(), stubProvider{})
	require.Error(t, err)
}

func TestCallbackData(t *testing.T) {
	assert.Equal(t, "\fst|2000000|МОСКВА", callbackData(&tele.Callback{Data: "\fst|2000000|МОСКВА"}))
	assert.Equal(t, "\foff|12", callbackData(&tele.Callback{Unique: "off", Data: "12"}))
	assert.Equal(t, "\fany", callbackData(&tele.Callback{Unique: "any"}))
	assert.Empty(t, callbackData(nil))
}

func TestSubscriptionsView(t *testing.T) {
	text, rows := subscriptionsView(nil, 4000, 64)
	assert.Equal(t, noSubscriptions, text)
	assert.Empty(t, rows)

	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	subs := []model.Subscription{
		{ID: 1, OriginName: "МОСКВА", DestinationName: "ТВЕРЬ", DepartureDate: date, TrainNumbers: "001А", Active: true},
		{ID: 2, OriginName: "A&B", DestinationName: "C", DepartureDate: date},
	}
	text, rows = subscriptionsView(subs, 4000, 64)
	assert.Contains(t, text, "🔔 Подписка #1\n   Маршрут: МОСКВА -> ТВЕРЬ\n   Поезд: 001А\n   Дата: 2026-10-20\n   Статус: ✅ Активна")
	assert.Contains(t, text, "Маршрут: A&amp;B -> C")
	assert.Contains(t, text, "Статус: ❌ Отключена")
	require.Len(t, rows, 2)
	assert.Equal(t, "❌ Отключить #1", rows[0][0].Label)
	assert.Equal(t, "\foff|1", rows[0][0].Payload)
	assert.Equal(t, "✅ Включить #2", rows[1][0].Label)
	assert.Equal(t, "\fon|2", rows[1][0].Payload)
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, noCycleYet, statusText(monitor.Report{}, false, 0))

	start := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	rep := monitor.Report{
		ID:         "abc",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Checked:    3,
		Notified:   1,
		Unchanged:  1,
		Failed:     1,
		Err:        errors.New("subscription 4: find trains: <timeout>"),
	}
	text := statusText(rep, true, 3)
	assert.Contains(t, text, "Проверено: 3, уведомлений: 1, без изменений: 1, ошибок: 1")
	assert.Contains(t, text, "Длительность: 1.5s")
	assert.Contains(t, text, "&lt;timeout&gt;")
}

func TestHelpMentionsInterval(t *testing.T) {
	assert.Contains(t, helpText(5*time.Minute), "каждые 5 мин.")
	assert.Contains(t, helpText(30*time.Second), "каждые 30 сек.")
}
