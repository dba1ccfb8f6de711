// Package bot wires the Telegram runtime to the search flow, the
// subscription commands and the background monitor.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/seatwatch/core/logger"
	tg "github.com/m3rciful/seatwatch/core/telegram"
	"github.com/m3rciful/seatwatch/core/telegram/commands"
	"github.com/m3rciful/seatwatch/core/telegram/router"
	"github.com/m3rciful/seatwatch/core/telegram/sender"
	"github.com/m3rciful/seatwatch/core/telegram/state"
	"github.com/m3rciful/seatwatch/core/telegram/ui"
	"github.com/m3rciful/seatwatch/internal/chat"
	"github.com/m3rciful/seatwatch/internal/config"
	"github.com/m3rciful/seatwatch/internal/monitor"
	"github.com/m3rciful/seatwatch/internal/search"
	"github.com/m3rciful/seatwatch/internal/server"
	"github.com/m3rciful/seatwatch/internal/storage"
)

// Provider is the ticket provider used by both the search flow and the monitor.
type Provider interface {
	search.Provider
	monitor.Provider
}

// App holds the bot's long-lived components.
type App struct {
	cfg      *config.AppConfig
	store    storage.Store
	provider Provider

	reg        *tg.Registry
	locker     *state.Locker
	dispatcher *sender.Dispatcher

	chat    *chat.Telegram
	search  *search.Controller
	monitor *monitor.Engine

	metrics     *server.Server
	stopMonitor context.CancelFunc
	monitorWG   sync.WaitGroup
}

// New builds the app and registers its commands and callbacks.
func New(cfg *config.AppConfig, store storage.Store, provider Provider) (*App, error) {
	if cfg == nil || store == nil || provider == nil {
		return nil, errors.New("bot: config, store and provider are required")
	}
	a := &App{
		cfg:        cfg,
		store:      store,
		provider:   provider,
		reg:        tg.NewRegistry(),
		locker:     state.NewLocker(),
		dispatcher: sender.NewDispatcher(sender.Options{}),
	}
	if err := a.register(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) register() error {
	cmds := map[string]commands.Command{
		"/start":         {Handler: a.handleStart, Description: "Начало работы"},
		"/help":          {Handler: a.handleHelp, Description: "Помощь"},
		"/search":        {Handler: a.handleSearch, Description: "Начать поиск поездов"},
		"/subscriptions": {Handler: a.handleSubscriptions, Description: "Мои подписки", Aliases: []string{"/subs"}},
		"/status":        {Handler: a.handleStatus, Description: "Состояние мониторинга", AdminOnly: true, Hidden: true},
	}
	var errs []error
	for name, cmd := range cmds {
		errs = append(errs, a.reg.RegisterCommand(name, cmd))
	}
	for _, tag := range []string{search.TagStation, search.TagTrain, search.TagAnyTrain, search.TagSubscribe} {
		errs = append(errs, a.reg.RegisterCallback(tag, a.handleSearchCallback))
	}
	errs = append(errs,
		a.reg.RegisterCallback(search.TagDisable, a.handleToggle(false)),
		a.reg.RegisterCallback(search.TagEnable, a.handleToggle(true)),
	)
	a.reg.SetCallbackNotFound(a.UnknownCallback())
	return errors.Join(errs...)
}

// wire builds the components that need the live bot.
func (a *App) wire(bot *tele.Bot) {
	a.chat = chat.NewTelegram(bot, a.dispatcher)
	a.search = search.NewController(a.store, a.provider, a.chat, search.Options{
		MinQueryLength:   a.cfg.Search.MinQueryLength,
		MaxStations:      a.cfg.Search.MaxStations,
		MaxTrains:        a.cfg.Search.MaxTrains,
		MaxMessageLength: a.cfg.Chat.MaxMessageLength,
		MaxCallbackBytes: a.cfg.Chat.MaxCallbackBytes,
		MonitorInterval:  a.cfg.Monitor.Interval(),
	})
	a.monitor = monitor.New(a.store, a.provider, a.chat, monitor.Options{
		Interval:          a.cfg.Monitor.Interval(),
		ErrorBackoff:      a.cfg.Monitor.ErrorBackoff(),
		Concurrency:       a.cfg.Monitor.Concurrency,
		MaxTrainsInNotice: a.cfg.Monitor.MaxTrainsInNotice,
		MaxMessageLength:  a.cfg.Chat.MaxMessageLength,
	})
}

// TelegramRunOptions assembles the runtime configuration.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    a.reg,
		Dispatcher:  a.dispatcher,
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), a.locker, a.handleRateLimited),
		Routes:      a.routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) routes(bot *tele.Bot) []tg.Route {
	a.wire(bot)
	var fallback ui.FallbackProvider = a
	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: a.handleAdminReject,
	})
	routes = append(routes, router.CallbackRoute(a.reg, router.CallbackOptions{NotFound: fallback.UnknownCallback()}))
	routes = append(routes, router.TextRoutes(a, a.reg, router.TextOptions{
		UnknownText:     fallback.UnknownText(),
		UnknownDocument: fallback.UnknownDocument(),
	})...)
	return routes
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	if listen := a.cfg.Metrics.Listen; listen != "" {
		srv, err := server.Start(ctx, listen)
		if err != nil {
			return err
		}
		a.metrics = srv
	}

	monCtx, cancel := context.WithCancel(logger.WithLogger(context.Background(), logger.Component(logger.CompMonitor)))
	a.stopMonitor = cancel
	a.monitorWG.Add(1)
	go func() {
		defer a.monitorWG.Done()
		_ = a.monitor.Run(monCtx)
	}()
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	if a.stopMonitor != nil {
		a.stopMonitor()
		done := make(chan struct{})
		go func() {
			a.monitorWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn(ctx, logger.CompMonitor, "monitor.stop", slog.String("status", "fail"), logger.Err(ctx.Err()))
		}
	}

	var errs []error
	if a.metrics != nil {
		errs = append(errs, a.metrics.Shutdown(ctx))
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
