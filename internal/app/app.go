// Package app wires configuration, logging, transport, storage and the
// monitor together and owns their lifecycle.
package app

import (
	"context"
	"fmt"

	"slotbot/internal/bot"
	"slotbot/internal/checker"
	"slotbot/internal/config"
	"slotbot/internal/monitor"
	"slotbot/internal/notify"
	"slotbot/internal/report"
	rtsup "slotbot/internal/runtime/supervisor"
	"slotbot/internal/subscribers"
	kit "slotbot/internal/transport"
	"slotbot/internal/transport/telegram"
	logx "slotbot/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	adapter *telegram.Adapter
	store   subscribers.Store
	mon     *monitor.Service
	router  *bot.Router
	report  *report.Service // nil when disabled

	sup     *rtsup.Supervisor
	updates chan kit.Message
}

// New loads and validates the configuration and constructs every component.
// Any configuration or wiring error aborts startup; nothing is running yet
// when New returns.
func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	res, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig(cfg.Logging.File),
	})
	mgr.SetLogger(log.With(logx.String("comp", "config")))
	mgr.SetValidator(func(ctx context.Context, c *config.Config) error {
		_, err := c.Resolve()
		return err
	})

	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: res.PollTimeout,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	store, err := subscribers.Open(subscribers.Config{
		Driver:      res.SubscriberDriver,
		Path:        res.SubscriberPath,
		BusyTimeout: res.SubscriberBusyTimeout,
	}, log.With(logx.String("comp", "subscribers")))
	if err != nil {
		return nil, fmt.Errorf("open subscriber store: %w", err)
	}

	chk, err := checker.NewHTTP(checker.Config{
		URL:             cfg.Checker.URL,
		Timeout:         res.CheckerTimeout,
		UserAgent:       cfg.Checker.UserAgent,
		NegativeMarkers: res.NegativeMarkers,
		CaptchaMarkers:  res.CaptchaMarkers,
		BlockMarkers:    res.BlockMarkers,
	}, log.With(logx.String("comp", "checker")))
	if err != nil {
		return nil, err
	}

	notifier := notify.NewTelegram(adapter, 0, log.With(logx.String("comp", "notify")))

	mon, err := monitor.New(monitorConfig(res), chk, store, notifier,
		log.With(logx.String("comp", "monitor")))
	if err != nil {
		return nil, err
	}

	router := bot.NewRouter(bot.Config{
		WhitelistUsernames: cfg.Telegram.WhitelistUsernames,
	}, adapter, store, mon, log.With(logx.String("comp", "bot")))

	a := &App{
		cfgMgr:  mgr,
		logSvc:  logSvc,
		log:     log,
		adapter: adapter,
		store:   store,
		mon:     mon,
		router:  router,
	}

	if cfg.Report != nil && cfg.Report.Enabled {
		rep, err := report.New(cfg.Report.Schedule, mon, store, notifier,
			log.With(logx.String("comp", "report")))
		if err != nil {
			return nil, err
		}
		a.report = rep
	}

	return a, nil
}

// Start launches the adapter, the command router, the monitor loop and the
// config watcher under one supervisor.
func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log))
	a.updates = make(chan kit.Message, 64)

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.adapter.UpdateMenuCommands(ctx, a.router.Commands()); err != nil {
		a.log.Warn("command menu update failed", logx.Err(err))
	}

	a.sup.Go("bot.router", func(ctx context.Context) error {
		return a.router.Run(ctx, a.updates)
	})
	a.sup.Go("monitor.loop", a.mon.Run)
	a.sup.Go("config.watch", a.cfgMgr.Watch)
	a.sup.Go0("config.reload", a.consumeReloads)

	if a.report != nil {
		a.report.Start()
	}

	a.log.Info("slotbot started")
	return nil
}

// consumeReloads applies hot-reloadable config changes. Logging and monitor
// tuning apply live; structural changes (token, checker url, store driver)
// only take effect after a restart.
func (a *App) consumeReloads(ctx context.Context) {
	ch := a.cfgMgr.Subscribe(2)
	defer a.cfgMgr.Unsubscribe(ch)

	prev := a.cfgMgr.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			changes := config.Diff(prev, cfg)
			prev = cfg

			if changes.Logging {
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File:    logx.FileConfig(cfg.Logging.File),
				})
				a.log.Info("logging config applied")
			}
			if changes.Monitor {
				res, err := cfg.Resolve()
				if err != nil {
					// The watcher validates before publishing; this is belt
					// and braces.
					a.log.Warn("reloaded config failed to resolve", logx.Err(err))
					continue
				}
				mc := monitorConfig(res)
				if err := a.mon.Retune(mc.Limiter, mc.Breaker); err != nil {
					a.log.Warn("monitor retune rejected", logx.Err(err))
					continue
				}
			}
			if changes.Structural {
				a.log.Warn("structural config changed; restart required to apply")
			}
		}
	}
}

// Stop shuts everything down: digest first, then transport, then the
// supervised loops, then storage and log sinks.
func (a *App) Stop(ctx context.Context) error {
	if a.report != nil {
		a.report.Stop()
	}
	_ = a.adapter.Stop(ctx)

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logSvc.Close()
	return err
}

func monitorConfig(res *config.Resolved) monitor.Config {
	return monitor.Config{
		Limiter: monitor.LimiterConfig{
			Base:   res.Monitor.BaseInterval,
			Min:    res.Monitor.MinInterval,
			Max:    res.Monitor.MaxInterval,
			Jitter: res.Monitor.JitterRatio,
		},
		Breaker: monitor.BreakerConfig{
			FailureThreshold: res.Monitor.FailureThreshold,
			BackoffBase:      res.Monitor.ErrorBackoffBase,
			BackoffMax:       res.Monitor.ErrorBackoffMax,
			BlockCooldown:    res.Monitor.BlockCooldown,
		},
		EnsureReadyOnStart: res.Monitor.EnsureReadyOnStart,
		NotifyText:         res.Monitor.NotifyText,
	}
}
