package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"notifykit/internal/config"
	"notifykit/internal/notify"
	"notifykit/internal/observability/status"
	"notifykit/internal/schedule"
	"notifykit/internal/storage"
	logx "notifykit/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		if path == "" {
			path = "./notifykit_history.jsonl"
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// dispatcherOptions maps the http and defaults sections. Logger, recorder
// and stdout are added by the caller.
func dispatcherOptions(cfg *config.Config, stdout io.Writer) []notify.Option {
	return []notify.Option{
		notify.WithTimeout(cfg.HTTP.EffectiveTimeout(notify.DefaultTimeout)),
		notify.WithUserAgent(cfg.HTTP.UserAgent),
		notify.WithTelegramAPIURL(cfg.HTTP.TelegramAPIURL),
		notify.WithDefaults(notify.Defaults{
			Username:     cfg.Defaults.Username,
			ConsoleTitle: cfg.Defaults.Title,
			Filename:     cfg.Defaults.Filename,
		}),
		notify.WithStdout(stdout),
	}
}

func mapSchedule(cfg *config.Config) (schedule.Config, []schedule.Job) {
	sc := schedule.Config{Enabled: cfg.Scheduler.Enabled, Timezone: cfg.Scheduler.Timezone}
	jobs := make([]schedule.Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		if j.Disabled {
			continue
		}
		jobs = append(jobs, schedule.Job{Name: j.Name, Schedule: j.Schedule, Tool: j.Tool, Args: j.Args})
	}
	return sc, jobs
}

func mapStatus(cfg *config.Config) status.Config {
	st := cfg.Status
	return status.Config{
		Enabled:       st.Enabled,
		Addr:          st.Addr,
		Token:         st.Token,
		AllowInsecure: st.AllowInsecure,
		Pprof:         st.Pprof,
	}
}

func checkStatus(cfg *config.Config) error {
	sc := mapStatus(cfg)
	if !sc.Enabled {
		return nil
	}
	return status.CheckAddr(sc)
}
