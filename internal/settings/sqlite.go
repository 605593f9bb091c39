package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPollInterval = time.Second
	minPollInterval     = 100 * time.Millisecond
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at INTEGER NOT NULL
)`

// SQLiteBackend stores slots in a single-table sqlite database. Other
// processes writing the same file are detected by polling updated_at.
type SQLiteBackend struct {
	db           *sql.DB
	pollInterval time.Duration
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string, pollInterval time.Duration) (*SQLiteBackend, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("settings: create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("settings: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: apply pragmas: %w", err)
	}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("settings: apply schema: %w", err)
	}

	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if pollInterval < minPollInterval {
		pollInterval = minPollInterval
	}
	return &SQLiteBackend{db: db, pollInterval: pollInterval}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.db.ExecContext(ctx, `
        INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at
    `, key, value, time.Now().UnixNano())
	return err
}

// Watch polls the slot's update marker and emits when it moves.
func (b *SQLiteBackend) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	last, err := b.marker(ctx, key)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)

		ticker := time.NewTicker(b.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next, err := b.marker(ctx, key)
				if err != nil || next == last {
					continue
				}
				last = next
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (b *SQLiteBackend) marker(ctx context.Context, key string) (int64, error) {
	var updated int64
	err := b.db.QueryRowContext(ctx, `SELECT IFNULL(MAX(updated_at), 0) FROM kv WHERE key = ?`, key).Scan(&updated)
	return updated, err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
