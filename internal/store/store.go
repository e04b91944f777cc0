// Package store is the durable on-device store: one sqlite table per record
// kind, integer local ids, and live query streams with value-dedup semantics.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned for updates or deletes against a missing local id.
// It signals a caller bug and is never retried.
var ErrNotFound = errors.New("store: record not found")

// Kind identifies one record kind. The values double as the remote
// collection names.
type Kind string

const (
	KindTransactions Kind = "transactions"
	KindScheduled    Kind = "scheduledTransactions"
	KindBudgets      Kind = "budgets"
	KindMessages     Kind = "aiMessages"
)

// schemaVersion is stored in PRAGMA user_version. A mismatch triggers a
// destructive reset; there is no migration path for the local cache since
// every synced record can be re-pulled from the remote store.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	ts INTEGER NOT NULL,
	photo_uri TEXT NOT NULL DEFAULT '',
	loc_full TEXT,
	loc_short TEXT,
	loc_lat REAL,
	loc_lng REAL,
	synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS scheduled_transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	type TEXT NOT NULL,
	category TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	ts INTEGER NOT NULL,
	photo_uri TEXT NOT NULL DEFAULT '',
	loc_full TEXT,
	loc_short TEXT,
	loc_lat REAL,
	loc_lng REAL,
	scheduled_date INTEGER NOT NULL,
	notification_sent INTEGER NOT NULL DEFAULT 0,
	expiration_notification_sent INTEGER NOT NULL DEFAULT 0,
	synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS budgets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id TEXT NOT NULL DEFAULT '',
	category TEXT,
	spend_limit TEXT NOT NULL,
	percentage TEXT,
	synced INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS ai_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL,
	is_ai INTEGER NOT NULL,
	ts INTEGER NOT NULL,
	synced INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_transactions_remote ON transactions(remote_id);
CREATE INDEX IF NOT EXISTS idx_scheduled_remote ON scheduled_transactions(remote_id);
CREATE INDEX IF NOT EXISTS idx_budgets_remote ON budgets(remote_id);
CREATE INDEX IF NOT EXISTS idx_messages_remote ON ai_messages(remote_id);
`

// Store is the local store shared by all components. Single-record writes are
// atomic; per-record write serialization across the sync engine's paths is
// enforced by the engine's keyed locks, not here.
type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[Kind][]chan struct{}
}

// Open opens (or creates) the sqlite database at path and ensures the schema.
// A stored schema version that does not match the binary's triggers a
// destructive reset of all tables.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store.Open: create directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:   db,
		subs: make(map[Kind][]chan struct{}),
	}, nil
}

func prepare(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("store: read schema version: %w", err)
	}

	if version != 0 && version != schemaVersion {
		drop := `
			DROP TABLE IF EXISTS transactions;
			DROP TABLE IF EXISTS scheduled_transactions;
			DROP TABLE IF EXISTS budgets;
			DROP TABLE IF EXISTS ai_messages;`
		if _, err := db.Exec(drop); err != nil {
			return fmt.Errorf("store: schema reset from version %d: %w", version, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("store: set schema version: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// subscribe registers a change trigger for kind. The trigger fires (with
// conflation) after every committed write to that kind.
func (s *Store) subscribe(kind Kind) chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[kind] = append(s.subs[kind], ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) unsubscribe(kind Kind, ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[kind]
	for i, c := range subs {
		if c == ch {
			s.subs[kind] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// notify wakes every watcher of kind. Sends are non-blocking; pending
// triggers conflate.
func (s *Store) notify(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[kind] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// affected converts a write result into ErrNotFound when no row matched.
func affected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: %s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("store: %s: %w", op, ErrNotFound)
	}
	return nil
}
