// Package app wires the bot together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"noticebot/internal/config"
	"noticebot/internal/notice"
	"noticebot/internal/render"
	rtsup "noticebot/internal/runtime/supervisor"
	"noticebot/internal/services/broadcast"
	"noticebot/internal/services/fetcher"
	"noticebot/internal/services/ingest"
	"noticebot/internal/services/poll"
	"noticebot/internal/services/registrar"
	"noticebot/internal/storage"
	"noticebot/internal/task/scheduler"
	kit "noticebot/internal/transport"
	telegram "noticebot/internal/transport/telegram/adapter"
	"noticebot/internal/transport/telegram/router"
	logx "noticebot/pkg/logx"
	"noticebot/pkg/systemd"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	docs *storage.Documents

	adapter *telegram.Adapter
	sched   *scheduler.Scheduler
	cmdm    *router.CommandManager
	cmds    []router.Command
	sd      *systemd.Notifier

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, defaultPollTimeout)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logx.NewConsole("INFO").With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	// logx.New applies immediately; enable the Telegram sink only once its target is set.
	logCfg := logConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, log := logx.New(bootCfg, ad)
	if chatID, threadID, ok := logTarget(cfg); ok {
		logSvc.SetTelegramTarget(chatID, threadID)
	}
	logSvc.Apply(logCfg)
	log = log.With(logx.String("comp", "app"))
	comp := func(name string) logx.Logger { return log.With(logx.String("comp", name)) }

	sc, err := storageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, comp("storage"))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	docs := storage.NewDocuments(store)
	fail := func(err error) (*App, error) {
		_ = docs.Close()
		_ = logSvc.Close()
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	schedCfg, err := schedulerConfig(cfg)
	if err != nil {
		return fail(err)
	}
	cal := notice.Calendar{Location: schedCfg.Location}

	fcfg, err := fetcherConfig(cfg)
	if err != nil {
		return fail(err)
	}
	base, err := baseURL(cfg)
	if err != nil {
		return fail(err)
	}

	bc := broadcast.New(broadcast.Config{
		RatePerSec:     sendRate(cfg),
		DisablePreview: cfg.Broadcast.DisablePreview,
		ParseMode:      render.ParseMode,
	}, docs, ad, comp("broadcast"))

	mon := poll.NewMonitor(
		fetcher.New(fcfg, nil, comp("fetcher")),
		ingest.New(docs, base, comp("ingest")),
		bc, cal, comp("poll"),
	)
	sd := systemd.New()
	mon.OnCycle(func(rep poll.Report, err error) {
		status := fmt.Sprintf("last cycle %s: %d new, %d sent, %d failed", rep.Date, rep.New, rep.Sent, rep.Failed)
		if err != nil {
			status = fmt.Sprintf("last cycle %s failed: %v", rep.Date, err)
		}
		_, _ = sd.Status(status)
	})
	sched, err := scheduler.New(schedCfg, mon.Run, scheduler.SystemClock{}, comp("scheduler"))
	if err != nil {
		return fail(fmt.Errorf("scheduler: %w", err))
	}

	reg := registrar.New(docs, bc, cal, welcomeText(cfg), comp("registrar"))
	cmdm := router.NewCommandManager(comp("commands"), ad, cfg.Telegram.OwnerUserIDs)
	cmds := router.BotCommands(router.Services{
		Registrar: reg,
		Scheduler: sched,
		Status:    &statusProvider{docs: docs, cal: cal, sched: sched, bc: bc},
	})

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		docs:    docs,
		adapter: ad,
		sched:   sched,
		cmdm:    cmdm,
		cmds:    cmds,
		sd:      sd,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error seen by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return checkDerived(cfg)
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.cmdm.SetRegistry(a.cmds, a.sup)

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})
	a.sup.Go("scheduler", a.sched.Run)

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.sup.Go("systemd.watchdog", a.sd.Watchdog)
	if ok, err := a.sd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("systemd notified ready")
	}

	a.log.Info("app started")
	return nil
}

// Stop shuts components down in order. Each step is bounded so one stuck
// component cannot hold up the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = a.sd.Stopping()
	a.sup.Cancel()

	var errs []error
	a.step(ctx, "adapter", 2*time.Second, a.adapter.Stop, &errs)
	a.step(ctx, "supervisor", 5*time.Second, a.sup.Wait, &errs)
	a.step(ctx, "storage", time.Second, func(context.Context) error { return a.docs.Close() }, &errs)

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

func (a *App) step(ctx context.Context, name string, limit time.Duration, fn func(context.Context) error, errs *[]error) {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		limit = min(limit, time.Until(dl))
	}
	if limit <= 0 {
		a.log.Warn("stop step skipped (no time left)", logx.String("name", name))
		return
	}
	stepCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	case <-stepCtx.Done():
		a.log.Warn("stop step deadline reached (continuing)",
			logx.String("name", name),
			logx.Duration("elapsed", time.Since(start)),
		)
	}
}
