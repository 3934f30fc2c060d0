package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vk/gridforge/internal/ctxlog"
)

// ErrNotFound is returned when removing a schema that is not registered.
var ErrNotFound = errors.New("schema not registered")

const createSchemaFiles = `
CREATE TABLE IF NOT EXISTS schema_files (
	url        TEXT PRIMARY KEY,
	added_at   INTEGER NOT NULL DEFAULT (unixepoch())
)`

// Store holds registered schema urls.
type Store struct {
	conn *sql.DB
}

// Open opens or creates the registry database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating registry directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping registry: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("configuring registry: %w", err)
	}
	if _, err := conn.ExecContext(ctx, createSchemaFiles); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating registry: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Registry opened.", "path", path)
	return &Store{conn: conn}, nil
}

// Add registers url. Adding a registered url is a no-op; it reports whether
// the url was new.
func (s *Store) Add(ctx context.Context, url string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `INSERT OR IGNORE INTO schema_files (url) VALUES (?)`, url)
	if err != nil {
		return false, fmt.Errorf("adding schema %q: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every registered url in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT url FROM schema_files ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("listing schemas: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}

// Remove unregisters url.
func (s *Store) Remove(ctx context.Context, url string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM schema_files WHERE url = ?`, url)
	if err != nil {
		return fmt.Errorf("removing schema %q: %w", url, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}
