package reconcile

import (
	"sort"
	"strings"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/registry"
)

// Side distinguishes the two inputs of a comparison. Desired records are in
// user-facing space already; observed records arrive in wire space and are
// projected back first.
type Side int

const (
	// SideDesired marks the user-declared record.
	SideDesired Side = iota

	// SideObserved marks the remote API's record.
	SideObserved
)

// Normalize projects a record into the canonical comparable shape for its
// kind. The transformation is pure and idempotent: normalizing a normalized
// record yields the same record.
//
// In order: wire→user key projection (observed side), exclusion-set
// stripping, null stripping (desired) or allow-list filtering (observed),
// nested-reference collapse to sorted id sequences, enum upper-casing, and
// set-field sorting. Order-significant sequences (rule conditions) are
// preserved as-is.
func Normalize(d *registry.Descriptor, rec record.Record, side Side) record.Record {
	if rec == nil {
		return nil
	}

	out := rec.Clone()
	if side == SideObserved {
		out = d.FromWire(out)
	}

	excluded := d.ExclusionSet()
	comparable := d.ComparableSet()
	for k, v := range out {
		switch {
		case excluded[k]:
			delete(out, k)
		case side == SideDesired && v == nil:
			delete(out, k)
		case side == SideObserved && comparable != nil && !comparable[k]:
			delete(out, k)
		}
	}

	collapseRefs(d, out)

	for _, field := range d.EnumFields {
		if s, ok := out[field].(string); ok {
			out[field] = strings.ToUpper(s)
		}
	}

	for _, field := range d.SetFields {
		if vals, ok := record.StringSlice(out[field]); ok {
			sort.Strings(vals)
			out[field] = vals
		}
	}

	return out
}

// collapseRefs rewrites every nested-reference field to a sorted id
// sequence under its user-facing name: the desired side carries the id
// sequence already, the observed side carries the expanded [{id, name, …}]
// objects under the wire field's snake form.
func collapseRefs(d *registry.Descriptor, rec record.Record) {
	for userField, wireField := range d.RefFields {
		if v, ok := rec[userField]; ok && v != nil {
			if ids, isIDs := record.StringSlice(v); isIDs {
				sort.Strings(ids)
				rec[userField] = ids
			}
			continue
		}
		observedField := record.CamelToSnake(wireField)
		if v, ok := rec[observedField]; ok {
			if ids, isRefs := record.RefIDs(v); isRefs {
				rec[userField] = ids
				delete(rec, observedField)
			}
		}
	}
}
