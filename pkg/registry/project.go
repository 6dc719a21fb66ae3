package registry

import (
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
)

// ToWire projects a user-facing desired record into the request-body shape:
// nil-valued keys are stripped, descriptor renames applied, id-sequence
// reference fields expanded to [{id}] object sequences, and every key
// converted to the wire's lowerCamelCase.
func (d *Descriptor) ToWire(desired record.Record) record.Record {
	out := record.Record{}
	for k, v := range desired {
		if v == nil {
			continue
		}
		if wireField, ok := d.RefFields[k]; ok {
			if ids, isIDs := record.StringSlice(v); isIDs {
				out[wireField] = record.RefsFromIDs(ids)
				continue
			}
		}
		if renamed, ok := d.Renames[k]; ok {
			out[renamed] = v
			continue
		}
		out[k] = v
	}
	return out.KeysToCamel()
}

// FromWire projects an observed wire record back into user-facing space:
// keys converted to snake_case and descriptor renames inverted. Reference
// object sequences are kept as-is; the normalizer collapses them to id
// sequences only for comparison, so the invoker still sees the expanded
// objects in result data.
func (d *Descriptor) FromWire(observed record.Record) record.Record {
	out := observed.KeysToSnake()
	if len(d.Renames) == 0 {
		return out
	}
	inverse := make(map[string]string, len(d.Renames))
	for user, wire := range d.Renames {
		inverse[record.CamelToSnake(wire)] = user
	}
	renamed := record.Record{}
	for k, v := range out {
		if user, ok := inverse[k]; ok {
			renamed[user] = v
			continue
		}
		renamed[k] = v
	}
	return renamed
}
