package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitbot/internal/app"
	"habitbot/internal/config"
	"habitbot/internal/habit"
	"habitbot/internal/storage"
	logx "habitbot/pkg/logx"
)

type RunCmd struct{}

func (c *RunCmd) Run(g *Globals) error {
	if _, err := g.Cfgm.Load(); err != nil {
		return err
	}
	a, err := app.NewApp(g.Ctx, g.Cfgm)
	if err != nil {
		return err
	}
	if err := a.Start(g.Ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	select {
	case <-g.Ctx.Done():
	case <-a.Done():
	}
	reason := app.StopSignal
	if g.Ctx.Err() == nil {
		reason = app.StopFatalError
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return a.Err()
	}
	return nil
}

type RemindCmd struct {
	At string `help:"Fire as if the clock showed HH:MM today (scheduler timezone)." placeholder:"HH:MM"`
}

func (c *RemindCmd) Run(g *Globals) error {
	var at *habit.TimeOfDay
	if c.At != "" {
		t, err := habit.ParseTimeOfDay(c.At)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		at = &t
	}
	if _, err := g.Cfgm.Load(); err != nil {
		return err
	}
	a, err := app.NewApp(g.Ctx, g.Cfgm)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(stopCtx, app.StopOneShot)
	}()

	rep, err := a.RemindOnce(g.Ctx, fireTime(time.Now(), a.Location(), at))
	if err != nil {
		return err
	}
	fmt.Println(rep.String())
	return nil
}

// fireTime is now in loc, moved to clock when one is given.
func fireTime(now time.Time, loc *time.Location, clock *habit.TimeOfDay) time.Time {
	now = now.In(loc)
	if clock == nil {
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	cfg, err := g.Cfgm.Load()
	if err != nil {
		return err
	}
	log := logx.NewConsole(cfg.Logging.Level).Component("migrate")
	st, err := openStorage(g.Ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(g.Ctx); err != nil {
		return err
	}
	log.Info("schema up to date", logx.String("driver", st.Driver()))
	return nil
}

type CheckCmd struct{}

func (c *CheckCmd) Run(g *Globals) error {
	cfg, err := g.Cfgm.Load()
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return errors.New("telegram.token is empty (set it in the file or via HABITBOT_TELEGRAM_TOKEN)")
	}
	st, err := openStorage(g.Ctx, cfg, logx.NewConsole(cfg.Logging.Level).Component("check"))
	if err != nil {
		return err
	}
	defer st.Close()
	pingCtx, cancel := context.WithTimeout(g.Ctx, 5*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		return fmt.Errorf("storage %s: %w", st.Driver(), err)
	}
	fmt.Printf("%s: ok (storage %s reachable)\n", g.Cfgm.Path(), st.Driver())
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log logx.Logger) (*storage.Store, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		DSN:         cfg.Storage.DSN,
		BusyTimeout: busy,
	}, log)
}
