package storage

import (
	"fmt"
	"reflect"
)

type updateKind int

const (
	updateSet updateKind = iota
	updateUnion
	updateRemove
	updateRemoveWhere
	updateIncrement
)

// FieldUpdate is a single top-level field mutation applied by Batch.Update.
type FieldUpdate struct {
	kind   updateKind
	field  string
	key    string
	values []any
	by     float64
}

// SetField replaces field with v.
func SetField(field string, v any) FieldUpdate {
	return FieldUpdate{kind: updateSet, field: field, values: []any{v}}
}

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(field string, values ...any) FieldUpdate {
	return FieldUpdate{kind: updateUnion, field: field, values: values}
}

// ArrayRemove drops every element equal to one of values.
func ArrayRemove(field string, values ...any) FieldUpdate {
	return FieldUpdate{kind: updateRemove, field: field, values: values}
}

// RemoveWhere drops the array elements that are objects whose key equals v.
func RemoveWhere(field, key string, v any) FieldUpdate {
	return FieldUpdate{kind: updateRemoveWhere, field: field, key: key, values: []any{v}}
}

// Increment adds by to a numeric field; a missing field counts as zero.
func Increment(field string, by int) FieldUpdate {
	return FieldUpdate{kind: updateIncrement, field: field, by: float64(by)}
}

func (u FieldUpdate) apply(f Fields) error {
	values := make([]any, len(u.values))
	for i, v := range u.values {
		n, err := normalize(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", u.field, err)
		}
		values[i] = n
	}

	switch u.kind {
	case updateSet:
		f[u.field] = values[0]
		return nil
	case updateIncrement:
		var cur float64
		if raw := f[u.field]; raw != nil {
			n, ok := raw.(float64)
			if !ok {
				return fmt.Errorf("field %s is not a number", u.field)
			}
			cur = n
		}
		f[u.field] = cur + u.by
		return nil
	}

	arr, err := arrayField(f, u.field)
	if err != nil {
		return err
	}

	switch u.kind {
	case updateUnion:
		for _, v := range values {
			if !containsValue(arr, v) {
				arr = append(arr, v)
			}
		}
	case updateRemove:
		kept := arr[:0]
		for _, e := range arr {
			if !containsValue(values, e) {
				kept = append(kept, e)
			}
		}
		arr = kept
	case updateRemoveWhere:
		kept := arr[:0]
		for _, e := range arr {
			obj, ok := e.(map[string]any)
			if ok && reflect.DeepEqual(obj[u.key], values[0]) {
				continue
			}
			kept = append(kept, e)
		}
		arr = kept
	}
	f[u.field] = arr
	return nil
}

func arrayField(f Fields, field string) ([]any, error) {
	switch v := f[field].(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("field %s is not an array", field)
	}
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}
