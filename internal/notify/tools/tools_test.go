package tools

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notifykit/internal/notify"
)

func newRegistry(t *testing.T, opts ...notify.Option) *Registry {
	t.Helper()
	r, err := New(notify.New(opts...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestDefinitions(t *testing.T) {
	r := newRegistry(t)
	defs := r.Definitions()
	want := []string{SaveToFile, SendConsole, SendDiscord, SendSlack, SendTelegram}
	if len(defs) != len(want) {
		t.Fatalf("got %d definitions, want %d", len(defs), len(want))
	}
	for i, d := range defs {
		if d.Name != want[i] {
			t.Fatalf("defs[%d] = %q, want %q", i, d.Name, want[i])
		}
		if d.Description == "" {
			t.Fatalf("%s has no description", d.Name)
		}
		if d.Parameters["type"] != "object" {
			t.Fatalf("%s parameters type = %v", d.Name, d.Parameters["type"])
		}
	}
}

func TestDefaultsAppearInSchema(t *testing.T) {
	r, err := New(notify.New(notify.WithDefaults(notify.Defaults{Username: "ops-bot"})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, d := range r.Definitions() {
		if d.Name != SendDiscord {
			continue
		}
		props := d.Parameters["properties"].(map[string]any)
		user := props["username"].(map[string]any)
		if user["default"] != "ops-bot" {
			t.Fatalf("username default = %v", user["default"])
		}
		return
	}
	t.Fatalf("%s not registered", SendDiscord)
}

func TestCallUnknownTool(t *testing.T) {
	r := newRegistry(t)
	res := r.Call(context.Background(), "send_pigeon", nil)
	if res.OK || res.Kind != notify.KindValidation {
		t.Fatalf("expected validation failure, got %v %q", res.Kind, res.String())
	}
	if !errors.Is(res.Err, ErrUnknownTool) {
		t.Fatalf("Err = %v, want ErrUnknownTool", res.Err)
	}
	if r.Has("send_pigeon") || !r.Has(SendConsole) {
		t.Fatalf("Has reports wrong membership")
	}
}

func TestCallMissingRequired(t *testing.T) {
	r := newRegistry(t)
	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"discord no url", SendDiscord, map[string]any{"message": "x"}, "webhook_url"},
		{"slack empty url", SendSlack, map[string]any{"webhook_url": "", "message": "x"}, "webhook_url"},
		{"telegram no chat", SendTelegram, map[string]any{"bot_token": "t", "message": "x"}, "chat_id"},
		{"file no message", SaveToFile, map[string]any{}, "message"},
		{"append wrong type", SaveToFile, map[string]any{"message": "x", "append": []int{1}}, "append"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Call(context.Background(), tt.tool, tt.args)
			if res.OK || res.Kind != notify.KindValidation {
				t.Fatalf("expected validation failure, got %v %q", res.Kind, res.String())
			}
			out := res.String()
			if !strings.HasPrefix(out, "Error: invalid arguments for "+tt.tool) {
				t.Fatalf("String() = %q", out)
			}
			if !strings.Contains(out, tt.want) {
				t.Fatalf("expected %q in %q", tt.want, out)
			}
		})
	}
}

func TestCallConsoleAppliesDefaultTitle(t *testing.T) {
	var buf bytes.Buffer
	r := newRegistry(t, notify.WithStdout(&buf))
	out := r.Invoke(context.Background(), SendConsole, map[string]any{"message": "hello"})
	if out != "Message displayed in console: "+notify.DefaultConsoleTitle {
		t.Fatalf("Invoke = %q", out)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("console output missing message: %q", buf.String())
	}
}

func TestCallSaveToFileAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	r := newRegistry(t)
	ctx := context.Background()

	if out := r.Invoke(ctx, SaveToFile, map[string]any{"message": "a", "filename": path}); strings.HasPrefix(out, "Error") {
		t.Fatalf("first write: %q", out)
	}
	if out := r.Invoke(ctx, SaveToFile, map[string]any{"message": "b", "filename": path, "append": true}); strings.HasPrefix(out, "Error") {
		t.Fatalf("append: %q", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "a\nb\n" {
		t.Fatalf("content = %q", b)
	}
}

func TestCallTelegramNumericChatID(t *testing.T) {
	bodies := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		bodies <- buf.String()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	r := newRegistry(t, notify.WithTelegramAPIURL(srv.URL))
	out := r.Invoke(context.Background(), SendTelegram, map[string]any{
		"bot_token": "1:abc",
		"chat_id":   -100123,
		"message":   "hi",
	})
	if out != "Telegram message sent successfully!" {
		t.Fatalf("Invoke = %q", out)
	}
	if body := <-bodies; !strings.Contains(body, `"chat_id":"-100123"`) {
		t.Fatalf("chat_id not sent as string: %s", body)
	}
}

func TestValidate(t *testing.T) {
	r := newRegistry(t)
	if err := r.Validate(SendDiscord, map[string]any{"webhook_url": "http://x", "message": "m"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := r.Validate(SendDiscord, map[string]any{"message": "m"}); err == nil {
		t.Fatalf("expected error for missing webhook_url")
	}
	if err := r.Validate("nope", nil); !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Validate unknown = %v", err)
	}
}

func TestNewNilDispatcher(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for nil dispatcher")
	}
}
