package storage

import "fmt"

// Op is a filter comparison.
type Op string

const (
	OpEqual         Op = "=="
	OpGreaterEqual  Op = ">="
	OpLessEqual     Op = "<="
	OpArrayContains Op = "array-contains"
)

// Filter compares a top-level document field with a value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query selects documents from one collection.
//
// With Parent set, only the collection directly under that document is
// searched (Parent "groups/g1" + Collection "members"). With Parent empty,
// every collection named Collection is searched regardless of its owner; for
// top-level collections such as "groups" that is the collection itself.
type Query struct {
	Parent     Path
	Collection string
	Filters    []Filter
	OrderBy    string
	Limit      int
}

// CollectionPath is the parent collection path matched by the query, or ""
// for a collection-group query.
func (q Query) CollectionPath() string {
	if q.Parent == "" {
		return ""
	}
	return string(q.Parent) + "/" + q.Collection
}

// Validate rejects malformed queries before they reach a backend.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("query: collection required")
	}
	if q.Parent != "" && !q.Parent.Valid() {
		return fmt.Errorf("query: invalid parent %q", q.Parent)
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return fmt.Errorf("query: filter field required")
		}
		switch f.Op {
		case OpEqual, OpGreaterEqual, OpLessEqual, OpArrayContains:
		default:
			return fmt.Errorf("query: unsupported operator %q", f.Op)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("query: negative limit")
	}
	return nil
}

// PrefixEnd is the upper bound for a prefix range query on a string field:
// Where(f, OpGreaterEqual, p) together with Where(f, OpLessEqual, PrefixEnd(p)).
func PrefixEnd(prefix string) string {
	return prefix + "\uf8ff"
}
