// Package storage persists dispatch history.
//
// Two backends are available: "file" appends JSON Lines to one file and
// "sqlite" keeps a table in a SQLite database (pure Go driver). Both
// return records newest first.
package storage
