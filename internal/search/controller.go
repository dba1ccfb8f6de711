// Package search runs the per-user conversation that picks a route, a date
// and a train and turns the result into a subscription.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/core/telegram/format"
	"github.com/m3rciful/seatwatch/core/telegram/helpers"
	"github.com/m3rciful/seatwatch/internal/chat"
	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/storage"
)

// Provider looks up stations and trains.
type Provider interface {
	FindStations(ctx context.Context, query string) ([]model.Station, error)
	FindTrains(ctx context.Context, q model.TrainQuery) (model.TrainList, error)
}

// Chat is the message transport the controller renders through.
type Chat interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendTextWithButtons(ctx context.Context, chatID int64, text string, rows [][]chat.Button) (int, error)
	EditText(ctx context.Context, chatID int64, msgID int, text string, rows [][]chat.Button) error
	DeleteMessage(ctx context.Context, chatID int64, msgID int) error
}

// Options tunes the controller; zero values take the defaults.
type Options struct {
	MinQueryLength   int
	MaxStations      int
	MaxTrains        int
	MaxMessageLength int
	MaxCallbackBytes int
	// MonitorInterval is echoed in the confirmation text and stored on subscriptions.
	MonitorInterval time.Duration
	Location        *time.Location
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MinQueryLength <= 0 {
		o.MinQueryLength = 2
	}
	if o.MaxStations <= 0 {
		o.MaxStations = 10
	}
	if o.MaxTrains <= 0 {
		o.MaxTrains = 10
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = 4000
	}
	if o.MaxCallbackBytes <= 0 {
		o.MaxCallbackBytes = DefaultPayloadLimit
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = 5 * time.Minute
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Inbound identifies the update being handled. MessageID is the user's
// message for text and the message carrying the button for callbacks.
type Inbound struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Text      string
}

// Controller drives the search state machine.
type Controller struct {
	store    storage.Store
	provider Provider
	chat     Chat
	opts     Options
	onText   map[model.Step]func(context.Context, *session) error
}

// NewController wires a controller.
func NewController(store storage.Store, provider Provider, ch Chat, opts Options) *Controller {
	c := &Controller{store: store, provider: provider, chat: ch, opts: opts.withDefaults()}
	c.onText = map[model.Step]func(context.Context, *session) error{
		model.StepOrigin:      c.stationQuery,
		model.StepDestination: c.stationQuery,
		model.StepDate:        c.dateInput,
		model.StepTrain:       c.hint,
		model.StepDone:        c.hint,
	}
	return c
}

// session is the state of one update being processed.
type session struct {
	in Inbound
	st *model.SearchState
}

func (c *Controller) load(ctx context.Context, in Inbound) (*session, bool) {
	st, err := c.store.SearchState(ctx, in.UserID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &session{in: in, st: model.NewSearchState(in.UserID)}, false
	case err != nil:
		logger.Error(ctx, logger.CompSearch, "search.state.load", logger.Err(err))
		return &session{in: in, st: model.NewSearchState(in.UserID)}, false
	}
	return &session{in: in, st: st}, true
}

// Start resets the user's search and sends a fresh progress message.
func (c *Controller) Start(ctx context.Context, in Inbound) error {
	s, _ := c.load(ctx, in)
	return c.restart(ctx, s)
}

func (c *Controller) restart(ctx context.Context, s *session) error {
	old := s.st.ProgressMessageID
	s.st.Reset()
	s.st.QueueDeletion(old)
	s.st.QueueDeletion(s.in.MessageID)
	logger.Info(ctx, logger.CompSearch, "search.start", slog.String("step", string(model.StepOrigin)))
	return c.commit(ctx, s, promptOrigin, nil)
}

// HandleText consumes free text according to the user's current step.
// Text without a saved search starts one and is taken as the origin query.
func (c *Controller) HandleText(ctx context.Context, in Inbound) error {
	s, _ := c.load(ctx, in)
	s.st.QueueDeletion(in.MessageID)
	h, ok := c.onText[s.st.Step]
	if !ok {
		return c.restart(ctx, s)
	}
	return h(ctx, s)
}

// HandleCallback applies a search button press. It returns a short notice
// for the callback answer when the button no longer applies.
func (c *Controller) HandleCallback(ctx context.Context, in Inbound, data string) (string, error) {
	p, err := DecodePayload(data)
	if err != nil {
		logger.Warn(ctx, logger.CompSearch, "search.callback", slog.String("cause", "bad_payload"), logger.Err(err))
		return StaleNotice, nil
	}
	s, found := c.load(ctx, in)
	if !found || !c.accepts(s.st, p.Tag) || (in.MessageID != 0 && in.MessageID != s.st.ProgressMessageID) {
		logger.Info(ctx, logger.CompSearch, "search.callback",
			slog.String("status", "skip"),
			slog.String("cb_key", p.Tag),
			slog.String("step", string(s.st.Step)),
		)
		return StaleNotice, nil
	}

	switch p.Tag {
	case TagStation:
		err = c.selectStation(ctx, s, p)
	case TagTrain:
		err = c.selectTrain(ctx, s, &model.SelectedTrain{Number: p.Code, Info: p.Name})
	case TagAnyTrain:
		err = c.selectTrain(ctx, s, nil)
	case TagSubscribe:
		err = c.confirm(ctx, s)
	}
	return "", err
}

// accepts reports whether a button tag belongs to the state's current step.
func (c *Controller) accepts(st *model.SearchState, tag string) bool {
	switch tag {
	case TagStation:
		return st.Step == model.StepOrigin || st.Step == model.StepDestination
	case TagTrain, TagAnyTrain:
		return st.Step == model.StepTrain
	case TagSubscribe:
		return st.Step == model.StepDone
	}
	return false
}

func (c *Controller) stationQuery(ctx context.Context, s *session) error {
	query := strings.TrimSpace(s.in.Text)
	if utf8.RuneCountInString(query) < c.opts.MinQueryLength {
		return c.commit(ctx, s, shortQuery(c.opts.MinQueryLength), nil)
	}
	stations, err := c.provider.FindStations(ctx, query)
	if err != nil {
		logger.Warn(ctx, logger.CompSearch, "search.stations", slog.String("query", query), logger.Err(err))
		return c.commit(ctx, s, providerFailed, nil)
	}
	if len(stations) == 0 {
		return c.commit(ctx, s, noStations, nil)
	}
	if len(stations) > c.opts.MaxStations {
		stations = stations[:c.opts.MaxStations]
	}
	logger.Debug(ctx, logger.CompSearch, "search.stations",
		slog.String("query", query), slog.Int("count", len(stations)))
	return c.commit(ctx, s, stationList(query, s.st.Step), stationButtons(stations, c.opts.MaxCallbackBytes))
}

func (c *Controller) selectStation(ctx context.Context, s *session, p Payload) error {
	name := p.Name
	if name == "" {
		name = c.lookupStationName(ctx, p.Code)
	}
	var prompt string
	switch s.st.Step {
	case model.StepOrigin:
		s.st.OriginCode, s.st.OriginName = p.Code, name
		s.st.Step = model.StepDestination
		prompt = promptDestination
	case model.StepDestination:
		s.st.DestinationCode, s.st.DestinationName = p.Code, name
		s.st.Step = model.StepDate
		prompt = promptDate
	}
	logger.Info(ctx, logger.CompSearch, "search.step", slog.String("step", string(s.st.Step)))
	return c.commit(ctx, s, prompt, nil)
}

// lookupStationName resolves a code whose name did not fit in the button payload.
func (c *Controller) lookupStationName(ctx context.Context, code string) string {
	stations, err := c.provider.FindStations(ctx, code)
	if err != nil {
		logger.Warn(ctx, logger.CompSearch, "search.station_name", slog.String("query", code), logger.Err(err))
		return code
	}
	for _, st := range stations {
		if st.Code == code && st.Name != "" {
			return st.Name
		}
	}
	return code
}

func (c *Controller) dateInput(ctx context.Context, s *session) error {
	date, ok := helpers.ParseDate(s.in.Text, c.opts.Location)
	if !ok {
		return c.commit(ctx, s, dateFormat, nil)
	}
	today := helpers.StartOfDay(c.opts.Now().In(c.opts.Location))
	if date.Before(today) {
		return c.commit(ctx, s, datePast, nil)
	}
	s.st.DepartureDate = &date
	s.st.Step = model.StepTrain
	return c.listTrains(ctx, s)
}

func (c *Controller) listTrains(ctx context.Context, s *session) error {
	list, err := c.provider.FindTrains(ctx, model.TrainQuery{
		OriginCode:      s.st.OriginCode,
		DestinationCode: s.st.DestinationCode,
		Date:            *s.st.DepartureDate,
		Adults:          s.st.Adults,
		Children:        s.st.Children,
	})
	if err != nil {
		logger.Warn(ctx, logger.CompSearch, "search.trains", logger.Err(err))
		s.st.Step = model.StepDate
		return c.commit(ctx, s, providerFailed, nil)
	}
	if len(list.Trains) == 0 {
		s.st.Step = model.StepDate
		return c.commit(ctx, s, noTrains, nil)
	}
	shown := list.Trains
	if len(shown) > c.opts.MaxTrains {
		shown = shown[:c.opts.MaxTrains]
	}
	logger.Info(ctx, logger.CompSearch, "search.step",
		slog.String("step", string(s.st.Step)), slog.Int("count", list.TotalCount))
	return c.commit(ctx, s, trainList(list, shown), trainButtons(shown, c.opts.MaxCallbackBytes))
}

func (c *Controller) selectTrain(ctx context.Context, s *session, train *model.SelectedTrain) error {
	s.st.SelectedTrain = train
	s.st.Step = model.StepDone
	attrs := []slog.Attr{slog.String("step", string(s.st.Step))}
	if train != nil {
		attrs = append(attrs, slog.String("train", train.Number))
	}
	logger.Info(ctx, logger.CompSearch, "search.step", attrs...)
	return c.commit(ctx, s, selectedTrain(s.st), subscribeButtons())
}

func (c *Controller) hint(ctx context.Context, s *session) error {
	id, err := c.chat.SendText(ctx, s.in.ChatID, buttonsHint)
	if err != nil {
		return fmt.Errorf("send hint: %w", err)
	}
	s.st.QueueDeletion(id)
	return c.save(ctx, s)
}

func (c *Controller) confirm(ctx context.Context, s *session) error {
	st := s.st
	if !st.RouteComplete() {
		return c.commit(ctx, s, incompleteRoute, nil)
	}
	sub := model.Subscription{
		UserID:          st.UserID,
		OriginCode:      st.OriginCode,
		OriginName:      st.OriginName,
		DestinationCode: st.DestinationCode,
		DestinationName: st.DestinationName,
		DepartureDate:   *st.DepartureDate,
		TrainNumbers:    st.TrainNumbers,
		CarTypes:        st.CarTypes,
		MinSeats:        max(1, st.MinSeats),
		Adults:          max(1, st.Adults),
		Children:        st.Children,
		IntervalMinutes: max(1, int(c.opts.MonitorInterval.Minutes())),
		Active:          true,
	}
	if st.SelectedTrain != nil {
		sub.TrainNumbers = st.SelectedTrain.Number
	}
	if err := c.store.CreateSubscription(ctx, &sub); err != nil {
		logger.Error(ctx, logger.CompSearch, "search.subscribe", logger.Err(err))
		return c.commit(ctx, s, subscribeFailed, subscribeButtons())
	}
	logger.Info(ctx, logger.CompSearch, "search.subscribe",
		slog.String("status", "ok"),
		slog.Int64("subscription_id", sub.ID),
		slog.String("route", sub.OriginCode+"-"+sub.DestinationCode),
		slog.String("train", sub.TrainNumbers),
	)

	summary := subscriptionSummary(sub, c.opts.MonitorInterval)
	if err := c.chat.EditText(ctx, s.in.ChatID, st.ProgressMessageID, summary, nil); err != nil {
		logger.Warn(ctx, logger.CompSearch, "search.render", logger.Err(err))
		if _, err := c.chat.SendText(ctx, s.in.ChatID, summary); err != nil {
			logger.Warn(ctx, logger.CompSearch, "search.render", logger.Err(err))
		}
	}
	c.flush(ctx, s)
	if err := c.store.ClearSearchState(ctx, st.UserID); err != nil {
		return fmt.Errorf("clear search state: %w", err)
	}
	return nil
}

// commit renders the progress message as header plus body, deletes queued
// messages and persists the state. A failed save is shown in the message.
func (c *Controller) commit(ctx context.Context, s *session, body string, rows [][]chat.Button) error {
	text := c.progressText(s.st, body)
	c.render(ctx, s, text, rows)
	c.flush(ctx, s)
	if err := c.store.SaveSearchState(ctx, s.st); err != nil {
		logger.Error(ctx, logger.CompSearch, "search.state.save", logger.Err(err))
		if s.st.ProgressMessageID != 0 {
			_ = c.chat.EditText(ctx, s.in.ChatID, s.st.ProgressMessageID, c.progressText(s.st, body+"\n"+stateSaveFailed), rows)
		}
		return fmt.Errorf("save search state: %w", err)
	}
	return nil
}

func (c *Controller) progressText(st *model.SearchState, body string) string {
	text := ProgressHeader(st)
	if body != "" {
		text += "\n" + body
	}
	return format.Limit(text, c.opts.MaxMessageLength, format.TruncatedMarker)
}

// render edits the progress message in place, or sends a new one when there
// is none yet or the old one can no longer be edited.
func (c *Controller) render(ctx context.Context, s *session, text string, rows [][]chat.Button) {
	if id := s.st.ProgressMessageID; id != 0 {
		err := c.chat.EditText(ctx, s.in.ChatID, id, text, rows)
		if err == nil {
			return
		}
		logger.Warn(ctx, logger.CompSearch, "search.render", slog.String("cause", "edit_failed"), logger.Err(err))
		s.st.ProgressMessageID = 0
		s.st.QueueDeletion(id)
	}
	id, err := c.chat.SendTextWithButtons(ctx, s.in.ChatID, text, rows)
	if err != nil {
		logger.Error(ctx, logger.CompSearch, "search.render", slog.String("cause", "send_failed"), logger.Err(err))
		return
	}
	s.st.SetProgressMessage(id)
}

func (c *Controller) flush(ctx context.Context, s *session) {
	for _, id := range s.st.TakePending() {
		if err := c.chat.DeleteMessage(ctx, s.in.ChatID, id); err != nil {
			logger.Debug(ctx, logger.CompSearch, "search.cleanup", slog.Int("message_id", id), logger.Err(err))
		}
	}
}

func (c *Controller) save(ctx context.Context, s *session) error {
	if err := c.store.SaveSearchState(ctx, s.st); err != nil {
		logger.Error(ctx, logger.CompSearch, "search.state.save", logger.Err(err))
		return fmt.Errorf("save search state: %w", err)
	}
	return nil
}
