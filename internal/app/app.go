package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hwbot/internal/config"
	"hwbot/internal/eventbus"
	"hwbot/internal/notifier"
	"hwbot/internal/poller"
	"hwbot/internal/practicum"
	"hwbot/internal/runtime/supervisor"
	telegram "hwbot/internal/transport/telegram/adapter"
	logx "hwbot/pkg/logx"
	"hwbot/pkg/systemd"
)

// Options selects where configuration comes from.
type Options struct {
	ConfigPath string
	EnvFile    string
	// ConfigExplicit is set when the path came from a flag. The default path
	// may be absent; an explicit one must exist.
	ConfigExplicit bool
	// LookupEnv replaces os.LookupEnv (tests).
	LookupEnv config.LookupFunc
	// Offline skips the Telegram getMe check (tests).
	Offline bool
}

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	adapter *telegram.Adapter
	client  *practicum.Client
	notif   *notifier.Service
	poll    *poller.Service
}

// New loads and validates the configuration and builds every component.
// Nothing runs until Start.
func New(opts Options) (*App, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = config.DefaultPath
	}
	cfgm := config.NewManager(path)
	cfgm.SetOptional(!opts.ConfigExplicit)
	cfgm.SetEnvFile(opts.EnvFile)
	if opts.LookupEnv != nil {
		cfgm.SetLookupEnv(opts.LookupEnv)
	}
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	tcfg, err := mapTelegramConfig(cfg)
	if err != nil {
		return nil, err
	}
	tcfg.Offline = opts.Offline
	ad, err := telegram.New(tcfg, bootLog)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg), ad)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	ncfg, err := mapNotifierConfig(cfg)
	if err != nil {
		return nil, err
	}
	notifSvc := notifier.New(ncfg, ad, log.With(logx.String("comp", "notifier")), bus)

	pcfg, err := mapPracticumConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := practicum.New(pcfg, nil, log.With(logx.String("comp", "practicum")))

	tr, err := newTranslator(cfg, log.With(logx.String("comp", "homework")))
	if err != nil {
		return nil, err
	}
	pollCfg, err := mapPollerConfig(cfg)
	if err != nil {
		return nil, err
	}
	pollSvc := poller.New(pollCfg, client, tr, notifSvc, log.With(logx.String("comp", "poller")), bus)

	log.Info("configuration loaded",
		logx.String("config", path),
		logx.String("endpoint", client.Endpoint()),
		logx.String("schedule", pollCfg.Schedule.String()),
		logx.Int64("chat_id", ncfg.Target.ChatID),
	)

	return &App{
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		adapter: ad,
		client:  client,
		notif:   notifSvc,
		poll:    pollSvc,
	}, nil
}

// Done is closed when the supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Poller exposes the poll loop for status reporting.
func (a *App) Poller() *poller.Service { return a.poll }

// RunOnce performs a single poll iteration without starting the loop.
func (a *App) RunOnce(ctx context.Context) poller.Result {
	return a.poll.RunOnce(ctx)
}

// NotifyTest sends text to the configured chat through the notifier.
func (a *App) NotifyTest(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		text = fmt.Sprintf("hwbot: test message (%s)", time.Now().Format(time.RFC3339))
	}
	return a.notif.Send(ctx, text)
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithEventBus(a.bus),
		supervisor.WithCancelOnError(true),
	)
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))

	a.sup.GoRestart("poller", a.poll.Run, supervisor.WithStopOnCleanExit(false))

	if a.bus != nil {
		events, unsub := a.bus.Subscribe(128)
		a.sup.Go0("eventbus.log", func(c context.Context) {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return
				case e, ok := <-events:
					if !ok {
						return
					}
					a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
					if eventbus.MatchPrefix(e, "poll.") {
						systemd.Status(statusLine(a.poll.Snapshot()))
					}
				}
			}
		})
	}

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
				// Coalesce bursts: keep only the latest config.
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
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", a.cfgm.Watch)

	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		systemd.RunWatchdog(c, a.healthy)
	})

	systemd.Ready()
	systemd.Status(statusLine(a.poll.Snapshot()))
	a.log.Info("app started")
	return nil
}

// applyConfig pushes a validated config into the running components. Fields
// that are bound at construction time are only reported.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	ch := config.SummarizeChange(oldCfg, newCfg)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	changed := logx.String("changed", strings.Join(ch.Sections, ","))
	a.log.Debug("config change summary", append([]logx.Field{changed}, ch.Fields...)...)
	if len(ch.RestartRequired) > 0 {
		a.log.Warn("config changes need a restart to take effect",
			logx.String("fields", strings.Join(ch.RestartRequired, ",")))
	}

	a.logs.Apply(mapLoggingConfig(newCfg))

	if ncfg, err := mapNotifierConfig(newCfg); err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		a.notif.Apply(ncfg)
	}

	if pcfg, err := mapPollerConfig(newCfg); err != nil {
		a.log.Warn("invalid poller config; keeping previous", logx.Err(err))
	} else {
		a.poll.Apply(pcfg)
	}

	if tr, err := newTranslator(newCfg, a.log.With(logx.String("comp", "homework"))); err != nil {
		a.log.Warn("invalid messages config; keeping previous", logx.Err(err))
	} else {
		a.poll.SetTranslator(tr)
	}

	if a.bus != nil {
		a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: ch.Sections})
	}
	a.log.Info("config reloaded", append([]logx.Field{changed}, ch.Fields...)...)
}

// healthy reports whether the poll loop goroutine is alive.
func (a *App) healthy() bool {
	if a.sup == nil {
		return false
	}
	for _, t := range a.sup.Snapshot().Tasks {
		if t.Name == "poller" {
			return t.Active > 0
		}
	}
	return false
}

func statusLine(s poller.Snapshot) string {
	parts := []string{fmt.Sprintf("cursor=%d", s.Cursor)}
	if s.LastOutcome != "" {
		parts = append(parts, "last="+s.LastOutcome)
	}
	parts = append(parts,
		fmt.Sprintf("delivered=%d", s.Delivered),
		fmt.Sprintf("failures=%d", s.ConsecutiveFailures),
	)
	if !s.NextRunAt.IsZero() {
		parts = append(parts, "next="+s.NextRunAt.Format(time.TimeOnly))
	}
	return strings.Join(parts, " ")
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		a.closeLogs()
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	systemd.Stopping()

	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
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
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("supervisor", 5*time.Second, a.sup.Wait)

	a.log.Info("stopped", logx.Any("poller", a.poll.Snapshot()))
	a.closeLogs()
	return nil
}

func (a *App) closeLogs() {
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
