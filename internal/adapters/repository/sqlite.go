package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
)

// SQLite busy handling tuning.
const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore persists the snapshot in a single key/value table inside an
// embedded SQLite database. A file lock next to the database keeps a second
// process from opening the same snapshot for writing.
type SQLiteStore struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	mu     sync.Mutex
	closed bool
}

// OpenSQLite connects to (or creates) the snapshot database at path,
// applies pragmas and the schema, and acquires the single-instance lock.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS snapshot (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, lock: lock}, nil
}

// Get reads the requested keys from the snapshot table.
func (s *SQLiteStore) Get(ctx context.Context, keys ...Key) (Snapshot, error) {
	var snap Snapshot
	if len(keys) == 0 {
		return snap, nil
	}
	if err := s.guard(); err != nil {
		return snap, err
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = string(k)
	}

	query := fmt.Sprintf("SELECT key, value FROM snapshot WHERE key IN (%s)", placeholders)
	var rows *sql.Rows
	err := retryOnBusy(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	if err != nil {
		return snap, fmt.Errorf("read snapshot keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return snap, fmt.Errorf("scan snapshot row: %w", err)
		}
		if err := decodeInto(&snap, Key(key), []byte(value)); err != nil {
			return snap, err
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snap, nil
}

// Set writes every non-nil field of changes in one transaction.
func (s *SQLiteStore) Set(ctx context.Context, changes Changes) error {
	if changes.Empty() {
		return nil
	}
	if err := s.guard(); err != nil {
		return err
	}

	encoded, err := encodeChanges(changes)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("begin snapshot tx: %w", txErr)
		}
		for key, value := range encoded {
			if _, execErr := tx.ExecContext(ctx,
				`INSERT INTO snapshot (key, value, updated_at) VALUES (?, ?, ?)
                 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				string(key), string(value), now,
			); execErr != nil {
				_ = tx.Rollback()
				return fmt.Errorf("write snapshot key %q: %w", key, execErr)
			}
		}
		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("commit snapshot tx: %w", commitErr)
		}
		return nil
	})
}

// Close closes the database and releases the file lock.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

func (s *SQLiteStore) guard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// encodeChanges JSON-encodes every non-nil field keyed by its snapshot key.
func encodeChanges(changes Changes) (map[Key][]byte, error) {
	out := make(map[Key][]byte)
	put := func(key Key, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %q: %w", key, err)
		}
		out[key] = data
		return nil
	}

	if changes.Settings != nil {
		if err := put(KeySettings, changes.Settings); err != nil {
			return nil, err
		}
	}
	if changes.State != nil {
		if err := put(KeyState, changes.State); err != nil {
			return nil, err
		}
	}
	if changes.Events != nil {
		if err := put(KeyEvents, changes.Events); err != nil {
			return nil, err
		}
	}
	if changes.Ratings != nil {
		if err := put(KeyRatings, changes.Ratings); err != nil {
			return nil, err
		}
	}
	if changes.Meta != nil {
		if err := put(KeyMeta, changes.Meta); err != nil {
			return nil, err
		}
	}
	if changes.Videos != nil {
		if err := put(KeyVideos, changes.Videos); err != nil {
			return nil, err
		}
	}
	if changes.Authors != nil {
		if err := put(KeyAuthors, changes.Authors); err != nil {
			return nil, err
		}
	}
	if changes.Categories != nil {
		if err := put(KeyCategories, changes.Categories); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeInto unmarshals one stored value into the matching snapshot field.
func decodeInto(snap *Snapshot, key Key, value []byte) error {
	unmarshal := func(v any) error {
		if err := json.Unmarshal(value, v); err != nil {
			return fmt.Errorf("unmarshal %q: %w", key, err)
		}
		return nil
	}

	switch key {
	case KeySettings:
		snap.Settings = new(model.Settings)
		return unmarshal(snap.Settings)
	case KeyState:
		snap.State = new(model.SessionState)
		return unmarshal(snap.State)
	case KeyEvents:
		snap.Events = new(model.EventLog)
		return unmarshal(snap.Events)
	case KeyRatings:
		snap.Ratings = make(model.Ratings)
		return unmarshal(&snap.Ratings)
	case KeyMeta:
		snap.Meta = new(model.Meta)
		return unmarshal(snap.Meta)
	case KeyVideos:
		snap.Videos = make(map[string]model.Video)
		return unmarshal(&snap.Videos)
	case KeyAuthors:
		snap.Authors = make(map[string]model.Author)
		return unmarshal(&snap.Authors)
	case KeyCategories:
		snap.Categories = new(model.Categories)
		return unmarshal(snap.Categories)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
