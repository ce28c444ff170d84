// Package storage provides abstractions for persistent data storage.
//
// Data is kept as JSON documents addressed by slash-separated paths
// (groups/{groupId}/members/{userId}). Multi-document writes go through a
// Batch, which a Store applies all-or-nothing.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned by Batch.Create when the document is present.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrConflict is returned when a Batch.Require precondition does not hold.
	// Backends never use it for transient transaction failures.
	ErrConflict = errors.New("precondition failed")

	// ErrUnavailable wraps every I/O failure of the underlying engine.
	// Callers may retry with backoff; nothing in this module retries.
	ErrUnavailable = errors.New("store unavailable")
)

// Store defines the interface for document storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the domain packages.
type Store interface {
	// Get decodes the document at path into dst.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, path Path, dst any) error

	// Query returns the documents matching q, ordered by q.OrderBy
	// (or by path when unset).
	Query(ctx context.Context, q Query) ([]Snapshot, error)

	// Commit applies every operation of the batch atomically. If any
	// operation fails, none of them is applied.
	Commit(ctx context.Context, b *Batch) error

	// Close releases any resources held by the store.
	Close() error
}

// Snapshot is a document read from a query.
type Snapshot struct {
	Path Path
	Data []byte
}

// Decode unmarshals the snapshot into dst.
func (s Snapshot) Decode(dst any) error {
	if err := json.Unmarshal(s.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	return nil
}

// Unavailable wraps an engine error so that it matches ErrUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
