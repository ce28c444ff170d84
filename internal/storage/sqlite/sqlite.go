// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/secretsanta/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		// Create parent directory if it doesn't exist
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serialises batches; SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get decodes the document at path into dst.
func (s *SQLiteStore) Get(ctx context.Context, path storage.Path, dst any) error {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE path = ?",
		path.String(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Unavailable("get "+path.String(), err)
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Query returns the documents matching q.
func (s *SQLiteStore) Query(ctx context.Context, q storage.Query) ([]storage.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, args := buildQuery(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Unavailable("query "+q.Collection, err)
	}
	defer rows.Close()

	var snaps []storage.Snapshot
	for rows.Next() {
		var path, data string
		if err := rows.Scan(&path, &data); err != nil {
			return nil, storage.Unavailable("scan "+q.Collection, err)
		}
		snaps = append(snaps, storage.Snapshot{Path: storage.Path(path), Data: []byte(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("iterate "+q.Collection, err)
	}

	return snaps, nil
}

// Commit applies the batch inside a single transaction.
func (s *SQLiteStore) Commit(ctx context.Context, b *storage.Batch) error {
	if err := b.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Unavailable("begin transaction", err)
	}
	defer tx.Rollback()

	if err := b.Apply(ctx, &txn{tx: tx, now: time.Now().Unix()}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storage.Unavailable("commit transaction", err)
	}

	return nil
}

// txn adapts a *sql.Tx to storage.Txn.
type txn struct {
	tx  *sql.Tx
	now int64
}

func (t *txn) Load(ctx context.Context, p storage.Path) (storage.Fields, bool, error) {
	var data string
	err := t.tx.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", p.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storage.Unavailable("load "+p.String(), err)
	}

	var f storage.Fields
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return f, true, nil
}

func (t *txn) Save(ctx context.Context, p storage.Path, f storage.Fields) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", p, err)
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO documents (path, parent, collection, data, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.String(), p.Parent(), p.Collection(), string(data), t.now,
	)
	if err != nil {
		return storage.Unavailable("save "+p.String(), err)
	}
	return nil
}

func (t *txn) Remove(ctx context.Context, p storage.Path) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM documents WHERE path = ?", p.String()); err != nil {
		return storage.Unavailable("remove "+p.String(), err)
	}
	return nil
}

// buildQuery translates a storage.Query into SQL over the documents table.
// Field names are bound as JSON paths, never interpolated.
func buildQuery(q storage.Query) (string, []any) {
	where := []string{"collection = ?"}
	args := []any{q.Collection}

	if parent := q.CollectionPath(); parent != "" {
		where = append(where, "parent = ?")
		args = append(args, parent)
	}

	for _, f := range q.Filters {
		switch f.Op {
		case storage.OpArrayContains:
			where = append(where, "EXISTS (SELECT 1 FROM json_each(data, ?) WHERE value = ?)")
		case storage.OpGreaterEqual:
			where = append(where, "json_extract(data, ?) >= ?")
		case storage.OpLessEqual:
			where = append(where, "json_extract(data, ?) <= ?")
		default:
			where = append(where, "json_extract(data, ?) = ?")
		}
		args = append(args, jsonPath(f.Field), sqlValue(f.Value))
	}

	query := "SELECT path, data FROM documents WHERE " + strings.Join(where, " AND ")
	if q.OrderBy != "" {
		query += " ORDER BY json_extract(data, ?), path"
		args = append(args, jsonPath(q.OrderBy))
	} else {
		query += " ORDER BY path"
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return query, args
}

func jsonPath(field string) string {
	return `$."` + field + `"`
}

// sqlValue maps a filter value onto what json_extract returns:
// JSON booleans come back as integers.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
