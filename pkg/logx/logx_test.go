package logx

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeSender struct {
	mu    sync.Mutex
	lines []string
	got   chan struct{}
}

func newFakeSender() *fakeSender { return &fakeSender{got: make(chan struct{}, 16)} }

func (f *fakeSender) SendLog(_ context.Context, text string) error {
	f.mu.Lock()
	f.lines = append(f.lines, text)
	f.mu.Unlock()
	f.got <- struct{}{}
	return nil
}

func (f *fakeSender) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func TestWriterLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn").With(String("component", "test"))

	log.Info("hidden")
	log.Warn("visible", Int("n", 3), Err(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line written at warn level: %q", out)
	}
	for _, want := range []string{"visible", "component=test", "n=3", "boom"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if log.Enabled(LevelDebug) || !log.Enabled(LevelError) {
		t.Fatalf("Enabled disagrees with configured level")
	}
}

func TestZeroLoggerIsNop(t *testing.T) {
	var log Logger
	if !log.IsZero() {
		t.Fatal("zero Logger should report IsZero")
	}
	log.Error("nothing happens")
	Nop().With(String("a", "b")).Info("still nothing")
}

func TestServiceFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var console bytes.Buffer
	svc, log := newService(Config{Level: "debug", File: FileConfig{Enabled: true, Path: path}}, nil, &console)
	defer svc.Close()

	log.Debug("to file", String("k", "v"))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(b), `"message":"to file"`) || !strings.Contains(string(b), `"k":"v"`) {
		t.Fatalf("unexpected file content: %s", b)
	}
	if console.Len() != 0 {
		t.Fatalf("console disabled but got %q", console.String())
	}
}

func TestServiceApplySwapsLevel(t *testing.T) {
	var console bytes.Buffer
	svc, log := newService(Config{Level: "info", Console: true}, nil, &console)
	defer svc.Close()

	log.Debug("first")
	svc.Apply(Config{Level: "debug", Console: true})
	log.Debug("second")

	out := console.String()
	if strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Fatalf("level swap not followed: %q", out)
	}
}

func TestServiceTelegramSink(t *testing.T) {
	sender := newFakeSender()
	var console bytes.Buffer
	svc, log := newService(Config{
		Level:   "info",
		Console: true,
		Telegram: TelegramConfig{
			Enabled:    true,
			MinLevel:   "error",
			RatePerSec: 10,
		},
	}, sender, &console)
	defer svc.Close()

	log.Warn("below threshold")
	log.Error("delivery failed", String("channel", "slack"))

	select {
	case <-sender.got:
	case <-time.After(2 * time.Second):
		t.Fatal("telegram sender was not called")
	}
	lines := sender.snapshot()
	if len(lines) != 1 {
		t.Fatalf("expected 1 forwarded line, got %d: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "[ERROR] delivery failed") || !strings.Contains(lines[0], "- channel=slack") {
		t.Fatalf("unexpected forwarded line: %q", lines[0])
	}
}

func TestFormatLine(t *testing.T) {
	got := formatLine([]byte(`{"level":"warn","time":"x","message":"hi","b":2,"a":"z"}`))
	want := "[WARN] hi\n- a=z\n- b=2"
	if got != want {
		t.Fatalf("formatLine = %q, want %q", got, want)
	}
	if got := formatLine([]byte("not json\n")); got != "not json" {
		t.Fatalf("formatLine(raw) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghijklmnop", 12); got != "abcdefghi..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 12); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
