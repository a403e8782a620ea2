package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the on-disk configuration (JSON or YAML). Every section is
// optional; zero values fall back to built-in defaults.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	HTTP     HTTPConfig     `json:"http"`
	Defaults DefaultsConfig `json:"defaults"`

	// Storage enables dispatch history. Nil means disabled.
	Storage *StorageConfig `json:"storage,omitempty"`

	Scheduler SchedulerConfig `json:"scheduler"`
	Jobs      []JobConfig     `json:"jobs,omitempty"`

	// Status is the optional read-only HTTP API of serve mode.
	Status StatusConfig `json:"status"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards warn+ log lines to a chat through the
// Telegram notifier.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	BotToken   string `json:"bot_token"`
	ChatID     string `json:"chat_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// HTTPConfig tunes the outbound client shared by all network channels.
type HTTPConfig struct {
	// Timeout is a Go duration string. Default "10s".
	Timeout        string `json:"timeout,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	TelegramAPIURL string `json:"telegram_api_url,omitempty"`
}

// DefaultsConfig overrides the values used for omitted optional fields.
type DefaultsConfig struct {
	Username string `json:"username,omitempty"`
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// StorageConfig controls dispatch history.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./notifykit.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type SchedulerConfig struct {
	Enabled  bool   `json:"enabled"`
	Timezone string `json:"timezone,omitempty"`
}

type StatusConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default 127.0.0.1:6061
	Token   string `json:"token,omitempty"`
	// AllowInsecure permits a non-loopback addr without a token.
	AllowInsecure bool `json:"allow_insecure,omitempty"`
	Pprof         bool `json:"pprof,omitempty"`
}

// JobConfig is one scheduled tool call.
type JobConfig struct {
	Name     string         `json:"name"`
	Schedule string         `json:"schedule"`
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args,omitempty"`
	Disabled bool           `json:"disabled,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Logging: LoggingConfig{Level: "info", Console: true}}
}

var validDrivers = map[string]bool{"": true, "none": true, "file": true, "sqlite": true, "sqlite3": true}

// Validate checks the parts of cfg that can be judged without the tool
// registry. Errors name the offending field path.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	if t := cfg.Logging.Telegram; t.Enabled && (strings.TrimSpace(t.BotToken) == "" || strings.TrimSpace(t.ChatID) == "") {
		errs = append(errs, errors.New("logging.telegram: bot_token and chat_id are required when enabled"))
	}

	if _, err := ParseDurationField("http.timeout", cfg.HTTP.Timeout); err != nil {
		errs = append(errs, err)
	}

	if s := cfg.Storage; s != nil {
		driver := strings.ToLower(strings.TrimSpace(s.Driver))
		if !validDrivers[driver] {
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}

	if tz := strings.TrimSpace(cfg.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}

	seen := make(map[string]bool, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		name := strings.TrimSpace(j.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("jobs[%d].name: required", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("jobs[%d].name: duplicate %q", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(j.Schedule) == "" {
			errs = append(errs, fmt.Errorf("jobs[%d].schedule: required", i))
		}
		if strings.TrimSpace(j.Tool) == "" {
			errs = append(errs, fmt.Errorf("jobs[%d].tool: required", i))
		}
	}
	return errors.Join(errs...)
}

// EffectiveTimeout returns the effective HTTP timeout, or def when unset.
func (h HTTPConfig) EffectiveTimeout(def time.Duration) time.Duration {
	d, err := ParseDurationOrDefault("http.timeout", h.Timeout, def)
	if err != nil {
		return def
	}
	return d
}

// Redacted returns a copy of cfg that is safe to print.
func (c *Config) Redacted() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	if cp.Logging.Telegram.BotToken != "" {
		cp.Logging.Telegram.BotToken = "<redacted>"
	}
	if cp.Status.Token != "" {
		cp.Status.Token = "<redacted>"
	}
	if len(c.Jobs) > 0 {
		cp.Jobs = make([]JobConfig, len(c.Jobs))
		for i, j := range c.Jobs {
			cp.Jobs[i] = j
			if _, ok := j.Args["bot_token"]; ok {
				args := make(map[string]any, len(j.Args))
				for k, v := range j.Args {
					args[k] = v
				}
				args["bot_token"] = "<redacted>"
				cp.Jobs[i].Args = args
			}
		}
	}
	return &cp
}

// JSON renders cfg indented, for `notifykit config show`.
func (c *Config) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
