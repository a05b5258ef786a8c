// Package sqlstore keeps ledger documents in a SQL table. Each write stamps a
// fresh random version, and updates are guarded by a
// "WHERE version = ?" clause so a stale writer affects zero rows.
//
// Both SQLite (modernc.org/sqlite, driver "sqlite") and PostgreSQL
// (pgx stdlib, driver "pgx") are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gurisko/hq/internal/blobstore"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	version    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS revisions (
	path       TEXT NOT NULL,
	version    TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Store is a blobstore.Store over database/sql
type Store struct {
	db       *sql.DB
	postgres bool
}

var _ blobstore.Store = (*Store)(nil)

// Open connects with driver ("sqlite" or "pgx") and ensures the schema exists.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer at a time avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, postgres: driver == DriverPostgres}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return s, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Fetch implements blobstore.Store
func (s *Store) Fetch(ctx context.Context, path string) (*blobstore.Document, error) {
	var content, version string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT content, version FROM documents WHERE path = ?`), path).
		Scan(&content, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", blobstore.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", path, err)
	}
	return &blobstore.Document{Path: path, Content: []byte(content), Version: blobstore.Version(version)}, nil
}

// Create implements blobstore.Store
func (s *Store) Create(ctx context.Context, path, message string, content []byte) (blobstore.Version, error) {
	version := uuid.NewString()
	ts := now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO documents (path, content, version, updated_at) VALUES (?, ?, ?, ?) ON CONFLICT (path) DO NOTHING`),
		path, string(content), version, ts)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", path, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", fmt.Errorf("insert %s: %w", path, err)
	} else if n == 0 {
		return "", fmt.Errorf("%w: %s", blobstore.ErrAlreadyExists, path)
	}
	if err := s.recordRevision(ctx, tx, path, version, message, ts); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return blobstore.Version(version), nil
}

// Update implements blobstore.Store
func (s *Store) Update(ctx context.Context, path, message string, content []byte, version blobstore.Version) (blobstore.Version, error) {
	next := uuid.NewString()
	ts := now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE documents SET content = ?, version = ?, updated_at = ? WHERE path = ? AND version = ?`),
		string(content), next, ts, path, string(version))
	if err != nil {
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", path, err)
	}
	if n == 0 {
		var current string
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT version FROM documents WHERE path = ?`), path).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", blobstore.ErrNotFound, path)
		}
		if err != nil {
			return "", fmt.Errorf("select %s: %w", path, err)
		}
		return "", fmt.Errorf("%w: %s at %s, have %s", blobstore.ErrVersionConflict, path, current, version)
	}
	if err := s.recordRevision(ctx, tx, path, next, message, ts); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return blobstore.Version(next), nil
}

func (s *Store) recordRevision(ctx context.Context, tx *sql.Tx, path, version, message, ts string) error {
	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO revisions (path, version, message, created_at) VALUES (?, ?, ?, ?)`),
		path, version, message, ts); err != nil {
		return fmt.Errorf("record revision of %s: %w", path, err)
	}
	return nil
}

// Revisions returns the commit messages recorded for path, oldest first.
func (s *Store) Revisions(ctx context.Context, path string) ([]string, error) {
	order := "rowid"
	if s.postgres {
		order = "created_at"
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT message FROM revisions WHERE path = ? ORDER BY `+order), path)
	if err != nil {
		return nil, fmt.Errorf("select revisions of %s: %w", path, err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
