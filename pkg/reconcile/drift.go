package reconcile

import (
	"sort"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
)

// Drift compares a normalized desired record against a normalized observed
// record field by field. Every key of the desired record must match the
// observed value structurally; keys present only on the observed side are
// server decoration and ignored. The returned field names are sorted for
// stable reporting.
func Drift(desired, observed record.Record) (bool, []string) {
	var fields []string
	for key, want := range desired {
		got, ok := observed[key]
		if !ok || !record.Equal(want, got) {
			fields = append(fields, key)
		}
	}
	sort.Strings(fields)
	return len(fields) > 0, fields
}
