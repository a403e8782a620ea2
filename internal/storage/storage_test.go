package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "notifykit/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	name := map[string]string{"file": "history.jsonl", "sqlite": "history.db"}[driver]
	st, err := Open(Config{Driver: driver, Path: filepath.Join(t.TempDir(), "sub", name)}, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Logger{})
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "mongo"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestStoreRecentNewestFirst(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			st := openTestStore(t, driver)
			ctx := context.Background()
			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			recs := []Record{
				{At: base, Channel: "discord", OK: true, Message: "Discord message sent successfully!", TookMS: 12, Origin: "cli"},
				{At: base.Add(time.Minute), Channel: "slack", Kind: "application", Status: 500, Message: "Failed to send Slack message.", Origin: "schedule"},
				{At: base.Add(2 * time.Minute), Channel: "file", OK: true, Message: "Message saved to file: x"},
			}
			for _, r := range recs {
				if err := st.Append(ctx, r); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}

			got, err := st.Recent(ctx, 2)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 records, got %d", len(got))
			}
			if got[0].Channel != "file" || got[1].Channel != "slack" {
				t.Fatalf("unexpected order: %s, %s", got[0].Channel, got[1].Channel)
			}
			if got[1].OK || got[1].Status != 500 || got[1].Kind != "application" || got[1].Origin != "schedule" {
				t.Fatalf("fields not preserved: %+v", got[1])
			}
			if got[0].ID == "" || got[0].ID == got[1].ID {
				t.Fatalf("ids not assigned: %q %q", got[0].ID, got[1].ID)
			}
			if !got[0].At.Equal(base.Add(2 * time.Minute)) {
				t.Fatalf("At = %v", got[0].At)
			}

			all, err := st.Recent(ctx, 0)
			if err != nil {
				t.Fatalf("Recent(0): %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("expected 3 records, got %d", len(all))
			}
		})
	}
}

func TestStorePrune(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			st := openTestStore(t, driver)
			ctx := context.Background()
			now := time.Now()

			for _, age := range []time.Duration{48 * time.Hour, 30 * time.Hour, time.Hour} {
				if err := st.Append(ctx, Record{At: now.Add(-age), Channel: "console", OK: true, Message: "m"}); err != nil {
					t.Fatalf("Append: %v", err)
				}
			}
			removed, err := st.Prune(ctx, now.Add(-24*time.Hour))
			if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if removed != 2 {
				t.Fatalf("removed = %d, want 2", removed)
			}

			// Appends keep working after a prune rewrote the file.
			if err := st.Append(ctx, Record{Channel: "console", OK: true, Message: "after"}); err != nil {
				t.Fatalf("Append after prune: %v", err)
			}
			got, err := st.Recent(ctx, 10)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(got) != 2 || got[0].Message != "after" {
				t.Fatalf("unexpected records after prune: %+v", got)
			}
		})
	}
}

func TestFileStoreSkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Append(ctx, Record{Channel: "console", OK: true, Message: "ok"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = f.WriteString(`{"id":"torn","chan`)
	_ = f.Close()

	got, err := st.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Message != "ok" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestClosedStore(t *testing.T) {
	st := openTestStore(t, "file")
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.Append(context.Background(), Record{}); err != ErrClosed {
		t.Fatalf("Append after close = %v, want ErrClosed", err)
	}
}
