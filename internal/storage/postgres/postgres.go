// Package postgres provides a PostgreSQL (jsonb) implementation of the
// storage.Store interface on top of a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/secretsanta/internal/storage"
)

const defaultTimeout = 3 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path TEXT PRIMARY KEY,
    parent TEXT NOT NULL,
    collection TEXT NOT NULL,
    data JSONB NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
`

var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and ensures the schema exists.
func New(dsn string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 2 * time.Hour
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Get decodes the document at path into dst.
func (s *Store) Get(ctx context.Context, path storage.Path, dst any) error {
	var data []byte
	err := s.pool.QueryRow(ctx, "SELECT data FROM documents WHERE path = $1", path.String()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", path, storage.ErrNotFound)
	}
	if err != nil {
		return classify("get "+path.String(), err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Query returns the documents matching q.
func (s *Store) Query(ctx context.Context, q storage.Query) ([]storage.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("query "+q.Collection, err)
	}
	defer rows.Close()

	var snaps []storage.Snapshot
	for rows.Next() {
		var path string
		var data []byte
		if err := rows.Scan(&path, &data); err != nil {
			return nil, classify("scan "+q.Collection, err)
		}
		snaps = append(snaps, storage.Snapshot{Path: storage.Path(path), Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate "+q.Collection, err)
	}

	return snaps, nil
}

// Commit applies the batch in one serializable transaction.
func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if err := b.Err(); err != nil {
		return err
	}
	return s.runInTx(ctx, func(tx pgx.Tx) error {
		return b.Apply(ctx, &txn{tx: tx, now: time.Now().Unix()})
	})
}

func (s *Store) runInTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify("begin transaction", err)
	}

	// Ensure rollback if fn returns an error or panic occurs
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				slog.Warn("transaction rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

type txn struct {
	tx  pgx.Tx
	now int64
}

func (t *txn) Load(ctx context.Context, p storage.Path) (storage.Fields, bool, error) {
	var data []byte
	err := t.tx.QueryRow(ctx, "SELECT data FROM documents WHERE path = $1 FOR UPDATE", p.String()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify("load "+p.String(), err)
	}

	var f storage.Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return f, true, nil
}

func (t *txn) Save(ctx context.Context, p storage.Path, f storage.Fields) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", p, err)
	}

	_, err = t.tx.Exec(ctx,
		`INSERT INTO documents (path, parent, collection, data, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		p.String(), p.Parent(), p.Collection(), string(data), t.now,
	)
	if err != nil {
		return classify("save "+p.String(), err)
	}
	return nil
}

func (t *txn) Remove(ctx context.Context, p storage.Path) error {
	if _, err := t.tx.Exec(ctx, "DELETE FROM documents WHERE path = $1", p.String()); err != nil {
		return classify("remove "+p.String(), err)
	}
	return nil
}

// classify maps Postgres errors onto the storage sentinels. Serialization
// failures and deadlocks are transient and surface as ErrUnavailable;
// ErrConflict is reserved for failed Batch.Require preconditions.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return storage.Unavailable(op, err)
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w: %v", op, storage.ErrAlreadyExists, err)
		}
	}
	return storage.Unavailable(op, err)
}

// buildQuery translates a storage.Query into SQL over the documents table.
// Equality and array membership use jsonb containment so the GIN index applies.
func buildQuery(q storage.Query) (string, []any, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where := []string{"collection = " + arg(q.Collection)}
	if parent := q.CollectionPath(); parent != "" {
		where = append(where, "parent = "+arg(parent))
	}

	for _, f := range q.Filters {
		switch f.Op {
		case storage.OpEqual, storage.OpArrayContains:
			var probe any = f.Value
			if f.Op == storage.OpArrayContains {
				probe = []any{f.Value}
			}
			doc, err := json.Marshal(map[string]any{f.Field: probe})
			if err != nil {
				return "", nil, fmt.Errorf("query: encode filter %s: %w", f.Field, err)
			}
			where = append(where, "data @> "+arg(string(doc))+"::jsonb")
		default:
			cmp := ">="
			if f.Op == storage.OpLessEqual {
				cmp = "<="
			}
			field := arg(f.Field)
			switch f.Value.(type) {
			case int, int32, int64, float32, float64:
				where = append(where, fmt.Sprintf("(data->>%s)::numeric %s %s", field, cmp, arg(f.Value)))
			default:
				where = append(where, fmt.Sprintf(`(data->>%s) COLLATE "C" %s %s`, field, cmp, arg(fmt.Sprint(f.Value))))
			}
		}
	}

	query := "SELECT path, data FROM documents WHERE " + strings.Join(where, " AND ")
	if q.OrderBy != "" {
		query += fmt.Sprintf(` ORDER BY (data->>%s) COLLATE "C", path`, arg(q.OrderBy))
	} else {
		query += " ORDER BY path"
	}
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	return query, args, nil
}
