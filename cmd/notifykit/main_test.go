package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notifykit/internal/storage"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("expected %q in output:\n%s", substr, s)
	}
}

func writeTestConfig(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "notifykit.yaml")
	body = strings.ReplaceAll(body, "$DIR", dir)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dir
}

const historyConfig = `
storage:
  driver: sqlite
  path: $DIR/history.db
jobs:
  - name: ping
    schedule: "09:30"
    tool: send_console_message
    args:
      message: pong
      title: Jobs
  - name: alert
    schedule: 1h
    tool: send_telegram_message
    args:
      bot_token: "123:secret"
      chat_id: "42"
      message: hi
`

func TestSendConsole(t *testing.T) {
	out, _, err := runCLI(t, "send", "console", "-m", "hello", "--title", "CI")
	if err != nil {
		t.Fatalf("send console: %v", err)
	}
	requireContains(t, out, "📧 CI\n")
	requireContains(t, out, "hello\n")
	requireContains(t, out, "Message displayed in console: CI")
}

func TestSendFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.txt")
	for _, msg := range []string{"one", "two"} {
		out, _, err := runCLI(t, "send", "file", "-m", msg, "-f", target, "--append")
		if err != nil {
			t.Fatalf("send file: %v", err)
		}
		requireContains(t, out, "Message saved to file: "+target)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "one\ntwo\n" {
		t.Fatalf("file content = %q", data)
	}
}

func TestSendWebhooks(t *testing.T) {
	discord := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer discord.Close()
	slack := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("no_service"))
	}))
	defer slack.Close()

	out, _, err := runCLI(t, "send", "discord", "--webhook-url", discord.URL, "-m", "deploy done")
	if err != nil {
		t.Fatalf("send discord: %v", err)
	}
	requireContains(t, out, "Discord message sent successfully!")

	out, _, err = runCLI(t, "send", "slack", "--webhook-url", slack.URL, "-m", "deploy done")
	if !errors.Is(err, errSendFailed) {
		t.Fatalf("send slack err = %v, want errSendFailed", err)
	}
	requireContains(t, out, "Error: Failed to send Slack message. Status: 500, Response: no_service")
}

func TestSendRequiresFlags(t *testing.T) {
	target := filepath.Join(t.TempDir(), "keep.txt")
	if err := os.WriteFile(target, []byte("keep\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	tests := []struct {
		name string
		args []string
	}{
		{"telegram without chat", []string{"send", "telegram", "-m", "x"}},
		{"console without message", []string{"send", "console", "--title", "T"}},
		{"file without message", []string{"send", "file", "-f", target}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), "required flag") {
				t.Fatalf("err = %v, want required flag error (output %q)", err, out)
			}
		})
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "keep\n" {
		t.Fatalf("file touched without a message: %q (%v)", data, err)
	}
}

func TestToolsAndCall(t *testing.T) {
	out, _, err := runCLI(t, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	var defs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &defs); err != nil {
		t.Fatalf("tools output is not JSON: %v\n%s", err, out)
	}
	if len(defs) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(defs))
	}

	out, _, err = runCLI(t, "call", "send_console_message", "--args", `{"message":"via call"}`)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	requireContains(t, out, "via call")

	out, _, err = runCLI(t, "call", "send_pigeon")
	if !errors.Is(err, errSendFailed) {
		t.Fatalf("call unknown err = %v", err)
	}
	requireContains(t, out, "Error: unknown tool")

	if _, _, err := runCLI(t, "call", "send_console_message", "--args", `[1,2]`); err == nil ||
		!strings.Contains(err.Error(), "JSON object") {
		t.Fatalf("call with array args err = %v", err)
	}
}

func TestHistoryCommands(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, historyConfig)

	for _, msg := range []string{"first", "second"} {
		if _, _, err := runCLI(t, "-c", cfgPath, "send", "console", "-m", msg); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	out, _, err := runCLI(t, "-c", cfgPath, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var recs []storage.Record
	if err := json.Unmarshal([]byte(out), &recs); err != nil {
		t.Fatalf("history output: %v\n%s", err, out)
	}
	if len(recs) != 2 || recs[0].Channel != "console" || recs[0].Origin != "cli" {
		t.Fatalf("unexpected history: %+v", recs)
	}

	out, _, err = runCLI(t, "-c", cfgPath, "history", "-n", "1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Message displayed in console")

	out, _, err = runCLI(t, "-c", cfgPath, "history", "prune", "--older-than", "1h")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 0 record(s)")
}

func TestHistoryDisabled(t *testing.T) {
	if _, _, err := runCLI(t, "history"); !errors.Is(err, errHistoryDisabled) {
		t.Fatalf("history err = %v, want errHistoryDisabled", err)
	}
}

func TestJobsCommands(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, historyConfig)

	out, _, err := runCLI(t, "-c", cfgPath, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "ping")
	requireContains(t, out, "@every 9h30m0s")
	requireContains(t, out, "Scheduler is disabled")

	out, _, err = runCLI(t, "-c", cfgPath, "jobs", "run", "ping")
	if err != nil {
		t.Fatalf("jobs run: %v", err)
	}
	requireContains(t, out, "📧 Jobs\n")
	requireContains(t, out, "Message displayed in console: Jobs")

	if _, _, err := runCLI(t, "-c", cfgPath, "jobs", "run", "nope"); err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestConfigCommands(t *testing.T) {
	cfgPath, _ := writeTestConfig(t, historyConfig)

	out, _, err := runCLI(t, "-c", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "123:secret") {
		t.Fatalf("bot token leaked:\n%s", out)
	}
	requireContains(t, out, "<redacted>")

	out, _, err = runCLI(t, "-c", cfgPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	bad, _ := writeTestConfig(t, "jobs:\n  - name: x\n    schedule: 1m\n    tool: send_pigeon\n")
	if _, _, err := runCLI(t, "-c", bad, "config", "validate"); err == nil {
		t.Fatal("expected invalid config error")
	}
}
