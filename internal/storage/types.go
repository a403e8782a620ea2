package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines file at Path
//   - "sqlite": SQLite database file at Path
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one dispatch outcome. Keep it compact and schema-stable.
type Record struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Channel string    `json:"channel"`
	OK      bool      `json:"ok"`
	Kind    string    `json:"kind,omitempty"`
	Status  int       `json:"status,omitempty"`
	Message string    `json:"message"`
	TookMS  int64     `json:"took_ms"`
	// Origin is who asked: "cli", "call" or "schedule".
	Origin string `json:"origin,omitempty"`
}
