// Package app wires configuration, logging, history storage, the notify
// dispatcher, the tool registry and the job scheduler into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"notifykit/internal/config"
	"notifykit/internal/notify"
	"notifykit/internal/notify/tools"
	"notifykit/internal/observability/status"
	"notifykit/internal/runtime/supervisor"
	"notifykit/internal/schedule"
	"notifykit/internal/storage"
	logx "notifykit/pkg/logx"
)

const stopStepTimeout = 3 * time.Second

type Options struct {
	// ConfigPath is a JSON or YAML file. Empty means built-in defaults.
	ConfigPath string
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Stdout receives console notifications. Defaults to os.Stdout.
	Stdout io.Writer
}

type App struct {
	cfgm     *config.ConfigManager
	stdout   io.Writer
	logLevel string

	log   logx.Logger
	logs  *logx.Service
	sink  *logSender
	store storage.Store

	mu   sync.RWMutex
	cfg  *config.Config
	disp *notify.Dispatcher
	reg  *tools.Registry

	sched *schedule.Service
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg := config.Default()
	var cfgm *config.ConfigManager
	if path := strings.TrimSpace(opts.ConfigPath); path != "" {
		cfgm = config.NewConfigManager(path)
		loaded, err := cfgm.Load(ctx)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	a := &App{
		cfgm:     cfgm,
		stdout:   opts.Stdout,
		logLevel: strings.TrimSpace(opts.LogLevel),
		cfg:      cfg,
	}

	a.sink = newLogSender(cfg)
	logSvc, log := logx.New(a.logConfig(cfg), a.sink)
	a.logs = logSvc
	a.log = log.With(logx.String("comp", "app"))

	if err := checkStatus(cfg); err != nil {
		_ = a.logs.Close()
		return nil, err
	}
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		_ = a.logs.Close()
		return nil, err
	}
	if enabled {
		st, err := storage.Open(sc, log)
		if err != nil {
			_ = a.logs.Close()
			return nil, err
		}
		a.store = st
		a.log.Debug("storage enabled", logx.String("driver", sc.Driver))
	}

	if err := a.rebuildDispatcher(cfg); err != nil {
		_ = a.Close()
		return nil, err
	}

	schedCfg, jobs := mapSchedule(cfg)
	a.sched = schedule.New(schedCfg, a, log)
	if err := a.sched.Apply(schedCfg, jobs); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("invalid jobs: %w", err)
	}

	if cfgm != nil {
		cfgm.SetLogger(log.With(logx.String("comp", "config")))
		cfgm.SetValidator(a.validate)
	}
	return a, nil
}

func (a *App) logConfig(cfg *config.Config) logx.Config {
	lc := mapLogging(cfg)
	if a.logLevel != "" {
		lc.Level = a.logLevel
	}
	return lc
}

// rebuildDispatcher swaps in a dispatcher and registry built from cfg's
// http and defaults sections.
func (a *App) rebuildDispatcher(cfg *config.Config) error {
	opts := dispatcherOptions(cfg, a.stdout)
	opts = append(opts, notify.WithLogger(a.log.With(logx.String("comp", "notify"))))
	if a.store != nil {
		opts = append(opts, notify.WithRecorder(&historyRecorder{
			store: a.store,
			log:   a.log.With(logx.String("comp", "history")),
		}))
	}
	d := notify.New(opts...)
	reg, err := tools.New(d)
	if err != nil {
		return err
	}
	reg.SetLogger(a.log.With(logx.String("comp", "tools")))

	a.mu.Lock()
	a.disp, a.reg = d, reg
	a.mu.Unlock()
	return nil
}

// validate runs on every reload before the new config is committed.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if err := checkStatus(cfg); err != nil {
		return err
	}
	_, jobs := mapSchedule(cfg)
	return a.sched.Check(jobs)
}

func (a *App) Logger() logx.Logger { return a.log }

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *App) Dispatcher() *notify.Dispatcher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.disp
}

func (a *App) Tools() *tools.Registry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reg
}

// Store returns the history store, nil when storage is disabled.
func (a *App) Store() storage.Store { return a.store }

func (a *App) Scheduler() *schedule.Service { return a.sched }

// Jobs and Recent make the app a status.Source.
func (a *App) Jobs() []schedule.JobInfo { return a.sched.Jobs() }

func (a *App) Recent(ctx context.Context, limit int) ([]storage.Record, error) {
	if a.store == nil {
		return nil, nil
	}
	return a.store.Recent(ctx, limit)
}

// Has and Call let the scheduler run tools from the current registry.
func (a *App) Has(name string) bool { return a.Tools().Has(name) }

func (a *App) Call(ctx context.Context, name string, args map[string]any) notify.Result {
	return a.Tools().Call(ctx, name, args)
}

// Close releases storage and log sinks. It does not stop Serve.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.logs != nil {
		errs = append(errs, a.logs.Close())
	}
	return errors.Join(errs...)
}

// Serve runs the scheduler and the config watcher until ctx is done or a
// background goroutine fails.
func (a *App) Serve(ctx context.Context) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	if a.cfgm != nil {
		sub := a.cfgm.Subscribe(8)
		sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			a.reloadLoop(c, sub)
		})
		sup.Go("config.watch", a.cfgm.Watch)
	}

	a.sched.Start(sup.Context())
	if sc := mapStatus(a.Config()); sc.Enabled {
		srv := status.New(sc, a, a.log.With(logx.String("comp", "status")))
		// optional; a failed listener must not stop serve
		sup.Go0("status.http", func(c context.Context) {
			if err := srv.Run(c); err != nil {
				a.log.Error("status server failed", logx.Err(err))
			}
		})
	}
	sup.Go0("systemd.watchdog", func(c context.Context) { watchdogLoop(c, a.log) })

	sdNotify(a.log, daemon.SdNotifyReady)
	a.log.Info("serving",
		logx.Bool("scheduler", a.sched.Enabled()),
		logx.Int("jobs", len(a.sched.Jobs())),
		logx.Bool("history", a.store != nil),
	)

	<-sup.Context().Done()

	reason := StopSignal
	if sup.Err() != nil {
		reason = StopFatalError
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopStepTimeout)
	a.sched.Stop(stopCtx)
	cancel()

	waitCtx, cancel := context.WithTimeout(context.Background(), stopStepTimeout)
	defer cancel()
	if err := sup.Stop(waitCtx); err != nil && errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("background goroutines did not stop in time", logx.Int64("active", sup.Active()))
	}
	return sup.Err()
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts
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
			a.applyConfig(newCfg)
		}
	}
}

func (a *App) applyConfig(newCfg *config.Config) {
	if newCfg == nil {
		return
	}
	a.mu.RLock()
	oldCfg := a.cfg
	a.mu.RUnlock()

	sections, attrs, jobs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config change summary", fields...)
	if len(jobs) > 0 {
		a.log.Debug("job changes detected", logx.Any("jobs", jobs))
	}

	for _, sec := range []string{"storage", "status"} {
		if slices.Contains(sections, sec) {
			a.log.Warn(sec + " config changed; restart required for changes to take effect")
		}
	}
	if slices.Contains(sections, "logging") || slices.Contains(sections, "http") {
		a.sink.update(newCfg)
		a.logs.Apply(a.logConfig(newCfg))
	}
	if slices.Contains(sections, "http") || slices.Contains(sections, "defaults") {
		if err := a.rebuildDispatcher(newCfg); err != nil {
			a.log.Error("dispatcher rebuild failed; keeping previous", logx.Err(err))
		}
	}

	schedCfg, jobDefs := mapSchedule(newCfg)
	if err := a.sched.Apply(schedCfg, jobDefs); err != nil {
		a.log.Warn("scheduler apply failed; keeping previous jobs", logx.Err(err))
	}

	a.mu.Lock()
	a.cfg = newCfg
	a.mu.Unlock()
}
