// Package record defines the generic key/value representation every resource
// kind is threaded through. Records are plain JSON-compatible maps; equality,
// cloning, and overlay composition are defined here so no per-kind generated
// types are needed.
package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Record is an ordered-by-key mapping of JSON-compatible values representing
// one resource instance, desired or observed.
type Record map[string]any

// Decode unmarshals a raw JSON object into a Record.
func Decode(raw json.RawMessage) (Record, error) {
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return r, nil
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case Record:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return val
	}
}

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value under key when it is a string, else "".
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// ID returns the record's id field as a string, tolerating numeric ids.
func (r Record) ID() string {
	switch v := r["id"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// Overlay composes an update body: a deep copy of base with every non-nil
// key of over written on top. Keys whose desired value is nil are skipped,
// preserving server-side configuration the caller never declared.
func Overlay(base, over Record) Record {
	out := base.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range over {
		if v == nil {
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Equal compares two JSON-compatible values structurally. Numeric values
// compare by value across int/float representations; a string never equals a
// number.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if an, aok := asNumber(a); aok {
		bn, bok := asNumber(b)
		return bok && an == bn
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []string:
		bv, ok := toSlice(b)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := toSlice(b)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := toMap(b)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, inner := range av {
			other, present := bv[k]
			if !present || !Equal(inner, other) {
				return false
			}
		}
		return true
	case Record:
		return Equal(map[string]any(av), b)
	default:
		return a == b
	}
}

// toSlice erases []string/[]any typing so sequences compare element-wise.
func toSlice(v any) ([]any, bool) {
	switch vals := v.(type) {
	case []any:
		return vals, true
	case []string:
		out := make([]any, len(vals))
		for i, s := range vals {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Record:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

// asNumber coerces the JSON-compatible numeric representations to float64.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// StringSlice coerces a JSON array value to []string, tolerating both
// []string and []any element typing. Non-string elements are rendered
// through fmt for stable comparison.
func StringSlice(v any) ([]string, bool) {
	switch vals := v.(type) {
	case []string:
		out := make([]string, len(vals))
		copy(out, vals)
		return out, true
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// RefIDs projects a wire-side sequence of {id, …} objects to the sorted
// sequence of their id values. This is the single place the nested-object ↔
// id-sequence conversion happens.
func RefIDs(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		obj, ok := toMap(item)
		if !ok {
			return nil, false
		}
		ids = append(ids, Record(obj).ID())
	}
	sort.Strings(ids)
	return ids, true
}

// RefsFromIDs is the inverse projection: an id sequence becomes a sequence
// of {id} objects for the wire body.
func RefsFromIDs(ids []string) []any {
	refs := make([]any, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, map[string]any{"id": id})
	}
	return refs
}
