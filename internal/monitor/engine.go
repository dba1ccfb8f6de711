// Package monitor polls the ticket provider for every active subscription and
// alerts the owner when seats appear or the set of available seats changes.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/seatwatch/core/logger"
	"github.com/m3rciful/seatwatch/internal/model"
)

// Store is the persistence the engine needs.
type Store interface {
	ActiveSubscriptions(ctx context.Context) ([]model.Subscription, error)
	Fingerprint(ctx context.Context, subscriptionID int64) (string, bool, error)
	SaveFingerprint(ctx context.Context, subscriptionID int64, fp string) error
}

// Provider fetches trains for a route and date.
type Provider interface {
	FindTrains(ctx context.Context, q model.TrainQuery) (model.TrainList, error)
}

// Notifier delivers an alert to a user and reports whether it was sent.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Options tunes the engine; zero values take the defaults.
type Options struct {
	Interval          time.Duration
	ErrorBackoff      time.Duration
	Concurrency       int
	MaxTrainsInNotice int
	MaxMessageLength  int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Minute
	}
	if o.ErrorBackoff <= 0 {
		o.ErrorBackoff = time.Minute
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxTrainsInNotice <= 0 {
		o.MaxTrainsInNotice = 5
	}
	if o.MaxMessageLength <= 0 {
		o.MaxMessageLength = 4000
	}
	return o
}

// Outcome of checking one subscription.
const (
	OutcomeNotified  = "notified"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "fail"
)

// Report summarises one monitoring cycle.
type Report struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Checked    int
	Notified   int
	Unchanged  int
	Failed     int
	// Err is the cycle-level failure, or the aggregated per-subscription errors.
	Err error
}

// Engine runs monitoring cycles.
type Engine struct {
	store    Store
	provider Provider
	notifier Notifier
	opts     Options

	mu   sync.RWMutex
	last *Report
	runs atomic.Uint64
}

// New returns an engine; call Run to start polling.
func New(store Store, provider Provider, notifier Notifier, opts Options) *Engine {
	return &Engine{store: store, provider: provider, notifier: notifier, opts: opts.withDefaults()}
}

// Run sleeps for the interval, runs a cycle and repeats until ctx is done.
// A cycle that cannot read subscriptions is followed by the error backoff.
func (e *Engine) Run(ctx context.Context) error {
	logger.Info(ctx, logger.CompMonitor, "monitor.start",
		slog.Duration("interval", e.opts.Interval),
		slog.Int("concurrency", e.opts.Concurrency),
	)
	wait := e.opts.Interval
	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, logger.CompMonitor, "monitor.stop", slog.Uint64("cycles", e.runs.Load()))
			return ctx.Err()
		case <-timer.C:
		}
		wait = e.opts.Interval
		if _, err := e.RunCycle(ctx); err != nil && ctx.Err() == nil {
			wait = e.opts.ErrorBackoff
		}
		timer.Reset(wait)
	}
}

// RunCycle checks every active subscription once. The returned error is
// set only when the cycle could not run at all.
func (e *Engine) RunCycle(ctx context.Context) (rep Report, err error) {
	rep = Report{ID: uuid.NewString(), StartedAt: time.Now()}
	ctx = logger.WithRID(ctx, "cycle:"+rep.ID)
	e.runs.Add(1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor cycle panic: %v", r)
			logger.Error(ctx, logger.CompMonitor, "monitor.panic",
				slog.String("panic", fmt.Sprint(r)), slog.String("stack", string(debug.Stack())))
		}
		rep.FinishedAt = time.Now()
		if err != nil {
			rep.Err = err
		}
		e.finish(ctx, rep, err)
	}()

	subs, err := e.store.ActiveSubscriptions(ctx)
	if err != nil {
		return rep, fmt.Errorf("load active subscriptions: %w", err)
	}
	activeSubscriptions.Set(float64(len(subs)))

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for _, sub := range subs {
		g.Go(func() error {
			outcome, err := e.checkSafe(gctx, sub)
			checksTotal.WithLabelValues(outcome).Inc()
			mu.Lock()
			defer mu.Unlock()
			rep.Checked++
			switch outcome {
			case OutcomeNotified:
				rep.Notified++
			case OutcomeUnchanged:
				rep.Unchanged++
			default:
				rep.Failed++
				errs = multierror.Append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
			}
			return nil
		})
	}
	_ = g.Wait()
	rep.Err = errs.ErrorOrNil()
	return rep, nil
}

func (e *Engine) finish(ctx context.Context, rep Report, err error) {
	took := rep.FinishedAt.Sub(rep.StartedAt)
	cycleDuration.Observe(took.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	cyclesTotal.WithLabelValues(result).Inc()

	e.mu.Lock()
	e.last = &rep
	e.mu.Unlock()

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("checked", rep.Checked),
		slog.Int("notified", rep.Notified),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("failed", rep.Failed),
		slog.Duration("duration", took),
	}
	if err != nil {
		logger.Error(ctx, logger.CompMonitor, "monitor.cycle", append(attrs, logger.Err(err))...)
		return
	}
	if rep.Err != nil {
		attrs = append(attrs, logger.Err(rep.Err))
	}
	logger.Info(ctx, logger.CompMonitor, "monitor.cycle", attrs...)
}

// LastReport returns the most recent cycle report, if any.
func (e *Engine) LastReport() (Report, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return Report{}, false
	}
	return *e.last, true
}

func (e *Engine) checkSafe(ctx context.Context, sub model.Subscription) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = OutcomeFailed, fmt.Errorf("panic: %v", r)
			logger.Error(ctx, logger.CompMonitor, "monitor.panic",
				slog.Int64("subscription_id", sub.ID),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	return e.check(ctx, sub)
}

// check polls one subscription. The stored fingerprint is only replaced
// after a successful poll and, when an alert is due, a delivered alert.
func (e *Engine) check(ctx context.Context, sub model.Subscription) (string, error) {
	ctx = logger.WithUser(ctx, sub.UserID)
	attrs := []slog.Attr{
		slog.Int64("subscription_id", sub.ID),
		slog.String("route", sub.OriginCode+"-"+sub.DestinationCode),
		slog.String("date", sub.DepartureDate.Format("2006-01-02")),
	}

	list, err := e.provider.FindTrains(ctx, sub.Query())
	if err != nil {
		logger.Warn(ctx, logger.CompMonitor, "monitor.check",
			append(attrs, slog.String("status", "fail"), slog.String("cause", "provider"), logger.Err(err))...)
		return OutcomeFailed, fmt.Errorf("find trains: %w", err)
	}
	ev := evaluate(sub, list.Trains)

	prev, seen, err := e.store.Fingerprint(ctx, sub.ID)
	if err != nil {
		logger.Warn(ctx, logger.CompMonitor, "monitor.check",
			append(attrs, slog.String("status", "fail"), slog.String("cause", "fingerprint_read"), logger.Err(err))...)
		return OutcomeFailed, fmt.Errorf("read fingerprint: %w", err)
	}

	outcome := OutcomeUnchanged
	if ev.Available() && (!seen || prev != ev.fingerprint) {
		text := noticeText(sub, ev.qualifying, e.opts.MaxTrainsInNotice, e.opts.MaxMessageLength)
		if err := e.notifier.Notify(ctx, sub.UserID, text); err != nil {
			logger.Warn(ctx, logger.CompMonitor, "monitor.check",
				append(attrs, slog.String("status", "fail"), slog.String("cause", "notify"), logger.Err(err))...)
			return OutcomeFailed, fmt.Errorf("notify: %w", err)
		}
		outcome = OutcomeNotified
	}

	if err := e.store.SaveFingerprint(ctx, sub.ID, ev.fingerprint); err != nil {
		logger.Warn(ctx, logger.CompMonitor, "monitor.check",
			append(attrs, slog.String("status", "fail"), slog.String("cause", "fingerprint_write"), logger.Err(err))...)
		return OutcomeFailed, fmt.Errorf("save fingerprint: %w", err)
	}
	logger.Info(ctx, logger.CompMonitor, "monitor.check",
		append(attrs,
			slog.String("status", "ok"),
			slog.String("outcome", outcome),
			slog.String("fingerprint", ev.fingerprint),
			slog.Int("count", len(ev.qualifying)),
		)...)
	return outcome, nil
}
