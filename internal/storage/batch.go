package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// Fields is the decoded top-level object of a document.
type Fields map[string]any

type opKind int

const (
	opSet opKind = iota
	opCreate
	opUpdate
	opDelete
	opRequire
)

func (k opKind) String() string {
	switch k {
	case opSet:
		return "set"
	case opCreate:
		return "create"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete"
	default:
		return "require"
	}
}

type op struct {
	kind    opKind
	path    Path
	fields  Fields
	updates []FieldUpdate
	field   string
	value   any
}

// Batch collects document writes that must commit together.
// Builder methods record the first encoding error; Commit reports it.
type Batch struct {
	ops []op
	err error
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set replaces the document at p with doc.
func (b *Batch) Set(p Path, doc any) *Batch {
	return b.write(opSet, p, doc)
}

// Create writes doc at p, failing with ErrAlreadyExists if p exists.
func (b *Batch) Create(p Path, doc any) *Batch {
	return b.write(opCreate, p, doc)
}

// Update applies field updates to an existing document.
// Fails with ErrNotFound if p does not exist.
func (b *Batch) Update(p Path, updates ...FieldUpdate) *Batch {
	if b.check(p) {
		b.ops = append(b.ops, op{kind: opUpdate, path: p, updates: updates})
	}
	return b
}

// Delete removes the document at p. Deleting a missing document is not an error.
func (b *Batch) Delete(p Path) *Batch {
	if b.check(p) {
		b.ops = append(b.ops, op{kind: opDelete, path: p})
	}
	return b
}

// Require makes the batch fail with ErrConflict unless field of the
// document at p equals value at the time the batch is applied.
func (b *Batch) Require(p Path, field string, value any) *Batch {
	if !b.check(p) {
		return b
	}
	v, err := normalize(value)
	if err != nil {
		b.err = fmt.Errorf("require %s.%s: %w", p, field, err)
		return b
	}
	b.ops = append(b.ops, op{kind: opRequire, path: p, field: field, value: v})
	return b
}

// Len is the number of operations in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Err returns the first error recorded while building the batch.
func (b *Batch) Err() error {
	return b.err
}

// Written lists the paths the batch writes or deletes, in order.
func (b *Batch) Written() []Change {
	var changes []Change
	for _, o := range b.ops {
		switch o.kind {
		case opRequire:
			continue
		case opDelete:
			changes = append(changes, Change{Path: o.path, Kind: ChangeDeleted})
		default:
			changes = append(changes, Change{Path: o.path, Kind: ChangeWritten})
		}
	}
	return changes
}

func (b *Batch) write(kind opKind, p Path, doc any) *Batch {
	if !b.check(p) {
		return b
	}
	f, err := toFields(doc)
	if err != nil {
		b.err = fmt.Errorf("%s %s: %w", kind, p, err)
		return b
	}
	b.ops = append(b.ops, op{kind: kind, path: p, fields: f})
	return b
}

func (b *Batch) check(p Path) bool {
	if b.err != nil {
		return false
	}
	if !p.Valid() {
		b.err = fmt.Errorf("invalid document path %q", p)
		return false
	}
	return true
}

// ChangeKind tells whether a committed change wrote or deleted a document.
type ChangeKind string

const (
	ChangeWritten ChangeKind = "written"
	ChangeDeleted ChangeKind = "deleted"
)

// Change describes one document touched by a committed batch.
type Change struct {
	Path Path
	Kind ChangeKind
}

// Txn is the transactional view a backend applies a batch through.
// Every call happens inside one engine transaction.
type Txn interface {
	// Load returns the document at p and whether it exists.
	Load(ctx context.Context, p Path) (Fields, bool, error)
	// Save inserts or replaces the document at p.
	Save(ctx context.Context, p Path, f Fields) error
	// Remove deletes the document at p if present.
	Remove(ctx context.Context, p Path) error
}

// Apply runs the batch against tx in order. Backends call it inside a
// transaction and roll back when it returns an error.
func (b *Batch) Apply(ctx context.Context, tx Txn) error {
	if b.err != nil {
		return b.err
	}
	for _, o := range b.ops {
		if err := o.apply(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (o op) apply(ctx context.Context, tx Txn) error {
	switch o.kind {
	case opSet:
		return tx.Save(ctx, o.path, o.fields)
	case opDelete:
		return tx.Remove(ctx, o.path)
	}

	current, exists, err := tx.Load(ctx, o.path)
	if err != nil {
		return err
	}

	switch o.kind {
	case opCreate:
		if exists {
			return fmt.Errorf("create %s: %w", o.path, ErrAlreadyExists)
		}
		return tx.Save(ctx, o.path, o.fields)
	case opUpdate:
		if !exists {
			return fmt.Errorf("update %s: %w", o.path, ErrNotFound)
		}
		for _, u := range o.updates {
			if err := u.apply(current); err != nil {
				return fmt.Errorf("update %s: %w", o.path, err)
			}
		}
		return tx.Save(ctx, o.path, current)
	default:
		if !exists {
			return fmt.Errorf("require %s: %w", o.path, ErrNotFound)
		}
		if !reflect.DeepEqual(current[o.field], o.value) {
			return fmt.Errorf("require %s.%s == %v: %w", o.path, o.field, o.value, ErrConflict)
		}
		return nil
	}
}

// toFields encodes a document as a JSON object.
func toFields(doc any) (Fields, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("document must encode to a JSON object: %w", err)
	}
	return f, nil
}

// normalize round-trips v through JSON so it compares equal to decoded
// document values (numbers become float64, structs become maps).
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
