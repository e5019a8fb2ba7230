package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"habitbot/internal/bot"
	"habitbot/internal/config"
	"habitbot/internal/habit"
	"habitbot/internal/reminder"
	rtsup "habitbot/internal/runtime/supervisor"
	"habitbot/internal/storage"
	"habitbot/internal/task/scheduler"
	kit "habitbot/internal/transport"
	telegram "habitbot/internal/transport/telegram/adapter"
	"habitbot/internal/transport/telegram/router"
	logx "habitbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   *storage.Store
	adapter *telegram.Adapter

	habits  *habit.Service
	scanner *reminder.Scanner
	sched   *scheduler.Service
	router  *router.Router

	updates chan kit.Update
}

// NewApp wires every component from the committed config of cfgm.
// Storage is opened and migrated; nothing is started yet.
func NewApp(ctx context.Context, cfgm *config.Manager) (*App, error) {
	cfg := cfgm.Get()
	if cfg == nil {
		var err error
		if cfg, err = cfgm.Load(); err != nil {
			return nil, err
		}
	}

	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return nil, err
	}
	bootLog := logx.NewConsole("INFO").Component("telegram")
	ad, err := telegram.New(tcfg, bootLog)
	if err != nil {
		return nil, err
	}

	// logx.New applies immediately; enable the Telegram sink only after
	// the target is set so Apply does not warn about a missing chat.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, ad.SendLog)
	logSvc.SetTelegramTarget(cfg.TelegramGroupLog(), cfg.Logging.Telegram.ThreadID)
	logSvc.Apply(logCfg)
	log = log.Component("app")
	cfgm.SetLogger(log.Component("config"))

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, sc, log.Component("storage"))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}
	log.Info("storage ready", logx.String("driver", store.Driver()))

	habits := habit.NewService(store, log.Component("habits"), habit.WithPageSize(cfg.Habits.PageSize))

	sched := scheduler.New(mapSchedulerConfig(cfg), log.Component("scheduler"))
	rcfg, err := mapReminderConfig(cfg, sched.Location())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	scanner := reminder.New(rcfg, store, ad, log.Component("reminder"))

	a := &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		habits:  habits,
		scanner: scanner,
		sched:   sched,
		updates: make(chan kit.Update, 256),
	}

	job, err := mapReminderJob(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := sched.Add(bot.ReminderJob, job.spec, job.timeout, a.remind); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("scheduler.spec: %w", err)
	}
	if err := sched.Add(pruneJob, pruneSpec, pruneTimeout, a.pruneDeliveries); err != nil {
		_ = store.Close()
		return nil, err
	}

	cmdTimeout, err := mapCommandTimeout(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.router = router.New(log.Component("commands"), ad, cfg.Telegram.OwnerUserIDs)
	a.router.SetDefaultTimeout(cmdTimeout)
	return a, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Location is the timezone reminders are matched in.
func (a *App) Location() *time.Location { return a.scanner.Config().Location }

// RemindOnce runs a single reminder firing at the given time without
// starting polling or the scheduler.
func (a *App) RemindOnce(ctx context.Context, at time.Time) (reminder.Report, error) {
	return a.scanner.RunOnce(ctx, at)
}

func (a *App) remind(ctx context.Context) error {
	_, err := a.scanner.RunOnce(ctx, time.Now())
	return err
}

func (a *App) pruneDeliveries(ctx context.Context) error {
	n, err := a.store.PruneDeliveries(ctx, time.Now().Add(-deliveriesTTL))
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.Info("deliveries pruned", logx.Int64("rows", n))
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.router.SetSupervisor(a.sup)
	a.router.SetRegistry(bot.Commands(bot.Deps{
		Habits:    a.habits,
		Scheduler: a.sched,
		Scanner:   a.scanner,
	}))

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.log.Info("telegram connected", logx.String("bot", a.adapter.Username()))

	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	} else {
		a.log.Info("scheduler disabled; use the remind command from an external cron")
	}

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.router.DispatchLoop(c, a.updates)
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for drained := false; !drained; {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						drained = true
					}
				}
				a.applyConfig(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, fields := config.Changes(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	a.log.Debug("config change summary", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)...)

	if config.Changed(sections, "storage") {
		a.log.Warn("storage config changed; restart required for changes to take effect")
	}
	if config.Changed(sections, "habits") {
		a.log.Warn("habits config changed; restart required for changes to take effect")
	}
	if prev != nil && (prev.Telegram.Token != next.Telegram.Token || prev.Telegram.PollTimeout != next.Telegram.PollTimeout) {
		a.log.Warn("telegram connection settings changed; restart required for changes to take effect")
	}

	// update log target first (so Apply() doesn't warn when Telegram logging is enabled)
	a.logs.SetTelegramTarget(next.TelegramGroupLog(), next.Logging.Telegram.ThreadID)
	a.logs.Apply(mapLogConfig(next))

	a.router.SetOwners(next.Telegram.OwnerUserIDs)
	if d, err := mapCommandTimeout(next); err != nil {
		a.log.Warn("invalid telegram.command_timeout; keeping previous", logx.Err(err))
	} else {
		a.router.SetDefaultTimeout(d)
	}

	prevEnabled := a.sched.Enabled()
	a.sched.Apply(mapSchedulerConfig(next))
	if job, err := mapReminderJob(next); err != nil {
		a.log.Warn("invalid scheduler config; keeping previous schedule", logx.Err(err))
	} else if err := a.sched.Add(bot.ReminderJob, job.spec, job.timeout, a.remind); err != nil {
		a.log.Warn("reminder schedule update failed", logx.Err(err))
	}

	if rcfg, err := mapReminderConfig(next, a.sched.Location()); err != nil {
		a.log.Warn("invalid reminder config; keeping previous", logx.Err(err))
	} else {
		a.scanner.Apply(rcfg)
	}

	switch {
	case prevEnabled && !next.Scheduler.Enabled:
		a.log.Info("scheduler disabled via config")
		stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		a.sched.Stop(stopCtx)
		cancel()
	case !prevEnabled && next.Scheduler.Enabled:
		a.log.Info("scheduler enabled via config")
		a.sched.Start(ctx)
	}

	a.log.Info("config reloaded", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)...)
}

// Stop shuts components down in order. Each step is bounded so a stuck
// component cannot hold the process.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if reason == "" {
		reason = StopUnknown
	}
	start := time.Now()
	a.log.Info("stopping", logx.String("reason", string(reason)))

	if a.sup != nil {
		a.sup.Cancel()
	}

	step := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- fn(stepCtx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("timeout", timeout))
		}
	}

	step("scheduler", 5*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	if a.sup != nil {
		// config watch/reload and the command dispatcher
		step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	}
	step("storage", 1*time.Second, func(context.Context) error { return a.store.Close() })

	a.log.Info("stopped", logx.Duration("took", time.Since(start)))
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
