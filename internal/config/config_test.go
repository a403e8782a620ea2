package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleJSON = `{
  "logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}},
  "http": {"timeout": "5s", "user_agent": "ops/1"},
  "defaults": {"username": "Ops", "title": "Ops Message", "filename": "ops.txt"},
  "storage": {"driver": "sqlite", "path": "./h.db"},
  "scheduler": {"enabled": true, "timezone": "UTC"},
  "jobs": [
    {"name": "heartbeat", "schedule": "@every 1m", "tool": "send_console_message", "args": {"message": "alive"}}
  ]
}`

const sampleYAML = `
logging:
  level: debug
  console: true
  file:
    enabled: false
    path: ""
http:
  timeout: 5s
  user_agent: ops/1
defaults:
  username: Ops
  title: Ops Message
  filename: ops.txt
storage:
  driver: sqlite
  path: ./h.db
scheduler:
  enabled: true
  timezone: UTC
jobs:
  - name: heartbeat
    schedule: "@every 1m"
    tool: send_console_message
    args:
      message: alive
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestYAMLMatchesJSON(t *testing.T) {
	dir := t.TempDir()
	jc, err := NewConfigManager(writeFile(t, dir, "c.json", sampleJSON)).Parse()
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	yc, err := NewConfigManager(writeFile(t, dir, "c.yaml", sampleYAML)).Parse()
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if hashConfig(jc) != hashConfig(yc) {
		a, _ := jc.JSON()
		b, _ := yc.JSON()
		t.Fatalf("yaml and json differ:\n%s\n---\n%s", a, b)
	}
	if jc.Jobs[0].Args["message"] != "alive" || jc.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected decode: %+v", jc)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		body string
	}{
		{"json top level", "a.json", `{"loging": {}}`},
		{"json nested", "b.json", `{"http": {"timeout": "1s", "retries": 3}}`},
		{"yaml nested", "c.yml", "defaults:\n  user: x\n"},
		{"trailing data", "d.json", `{} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigManager(writeFile(t, dir, tt.file, tt.body)).Parse()
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"bad level", Config{Logging: LoggingConfig{Level: "loud"}}, "logging.level"},
		{"bad timeout", Config{HTTP: HTTPConfig{Timeout: "soon"}}, "http.timeout"},
		{"negative timeout", Config{HTTP: HTTPConfig{Timeout: "-1s"}}, "http.timeout"},
		{"bad driver", Config{Storage: &StorageConfig{Driver: "mongo"}}, "storage.driver"},
		{"bad tz", Config{Scheduler: SchedulerConfig{Timezone: "Mars/Base"}}, "scheduler.timezone"},
		{"job no name", Config{Jobs: []JobConfig{{Schedule: "1m", Tool: "t"}}}, "jobs[0].name"},
		{"job dup", Config{Jobs: []JobConfig{{Name: "a", Schedule: "1m", Tool: "t"}, {Name: "a", Schedule: "1m", Tool: "t"}}}, "duplicate"},
		{"job no tool", Config{Jobs: []JobConfig{{Name: "a", Schedule: "1m"}}}, "jobs[0].tool"},
		{"telegram log no chat", Config{Logging: LoggingConfig{Telegram: LoggingTelegram{Enabled: true, BotToken: "t"}}}, "logging.telegram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want error containing %q", err, tt.want)
			}
		})
	}
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	dir := t.TempDir()
	m := NewConfigManager(writeFile(t, dir, "c.json", sampleJSON))
	sentinel := errors.New("tool missing")
	m.SetValidator(func(context.Context, *Config) error { return sentinel })
	if _, err := m.Load(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("Load = %v, want validator error", err)
	}
	if m.Get() != nil {
		t.Fatal("rejected config must not be committed")
	}

	m.SetValidator(nil)
	cfg, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get does not return committed config")
	}
}

func TestWatchPublishesChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.json", `{"logging": {"level": "info"}}`)
	m := NewConfigManager(path)
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "c.json", `{"logging": {"level": "warn"}}`)

	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "warn" {
			t.Fatalf("published level = %q", cfg.Logging.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published after file change")
	}

	// An invalid edit is never published.
	writeFile(t, dir, "c.json", `{"logging": {"level": "loud"}}`)
	select {
	case cfg := <-sub:
		t.Fatalf("invalid config published: %+v", cfg)
	case <-time.After(600 * time.Millisecond):
	}
	if m.Get().Logging.Level != "warn" {
		t.Fatalf("current level = %q after rejected edit", m.Get().Logging.Level)
	}

	cancel()
	<-done
}

func TestSummarizeConfigChange(t *testing.T) {
	oldCfg := &Config{
		Logging: LoggingConfig{Level: "info"},
		Jobs: []JobConfig{
			{Name: "a", Schedule: "1m", Tool: "t", Args: map[string]any{"message": "x"}},
			{Name: "b", Schedule: "1m", Tool: "t"},
		},
	}
	newCfg := &Config{
		Logging: LoggingConfig{Level: "debug"},
		Jobs: []JobConfig{
			{Name: "a", Schedule: "1m", Tool: "t", Args: map[string]any{"message": "y"}},
			{Name: "c", Schedule: "1m", Tool: "t"},
		},
	}
	changed, attrs, jobs := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "jobs,logging" {
		t.Fatalf("changed = %v", changed)
	}
	if len(attrs) == 0 {
		t.Fatal("expected log fields")
	}
	if strings.Join(jobs, ",") != "a,b,c" {
		t.Fatalf("jobs = %v", jobs)
	}

	if changed, _, _ := SummarizeConfigChange(newCfg, newCfg); len(changed) != 0 {
		t.Fatalf("identical configs reported changed: %v", changed)
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Telegram: LoggingTelegram{BotToken: "secret"}},
		Jobs:    []JobConfig{{Name: "t", Args: map[string]any{"bot_token": "secret2", "message": "m"}}},
	}
	b, err := cfg.Redacted().JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if strings.Contains(string(b), "secret") {
		t.Fatalf("secret leaked: %s", b)
	}
	if cfg.Jobs[0].Args["bot_token"] != "secret2" {
		t.Fatal("Redacted mutated the original")
	}
}
