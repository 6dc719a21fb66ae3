// Package registry holds the process-wide Resource Kind Descriptors: per
// kind, the endpoint handles, the lookup mode, the drift comparison field
// sets, the rename map between user-facing and wire-facing names, and the
// nested-object projection rules. Descriptors are values, not types; every
// kind threads through the same generic Record representation.
package registry

import (
	"strings"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
)

// LookupMode selects how an observed record is resolved when no id is given.
type LookupMode string

const (
	// LookupNameUnique resolves by exact name match over the list endpoint.
	LookupNameUnique LookupMode = "name-unique"

	// LookupCompound resolves rules scoped by policy type plus name. The
	// policy set id is resolved first and substituted into the endpoints.
	LookupCompound LookupMode = "compound"
)

// Endpoints holds the path templates for one resource kind, relative to the
// customer-scoped management prefix. The "{qualifier}" placeholder is
// expanded for compound kinds. The by-id endpoints append "/{id}" to List.
type Endpoints struct {
	List        string
	BulkReorder string
	BulkDelete  string

	// BulkDeleteKey is the wire field carrying the id list in the
	// bulk-delete request body.
	BulkDeleteKey string
}

// Descriptor is the static registry entry for one resource kind.
type Descriptor struct {
	// Kind is the user-facing resource kind selector.
	Kind string

	// Endpoints are the kind's path templates.
	Endpoints Endpoints

	// Lookup selects the lookup resolution mode. Id, when supplied, always
	// takes precedence regardless of mode.
	Lookup LookupMode

	// PolicyType qualifies compound rule lookups (e.g. "ACCESS_POLICY").
	// The policy set id resolved for it becomes the path qualifier.
	PolicyType string

	// QualifierField names a desired-record field whose upper-cased value
	// becomes the path qualifier for compound non-rule kinds.
	QualifierField string

	// ReadOnly marks lookup-only kinds; mutations surface precondition
	// errors.
	ReadOnly bool

	// Comparable, when non-empty, is the explicit allow-list of fields that
	// participate in drift comparison. Empty means all except excluded.
	Comparable []string

	// Excluded extends the always-excluded server-managed field set.
	Excluded []string

	// Renames maps user-facing names to wire-facing names where they differ
	// beyond the snake/camel case convention.
	Renames map[string]string

	// RefFields maps a user-facing id-sequence field to the wire-facing
	// object-sequence field it projects to (e.g. app_connector_group_ids →
	// appConnectorGroups as [{id}]).
	RefFields map[string]string

	// EnumFields are string fields the API canonicalizes to upper case.
	EnumFields []string

	// SetFields are sequences with set semantics, sorted for comparison.
	SetFields []string

	// RequiredForCreate names the fields a create call cannot omit.
	RequiredForCreate []string

	// PageSize overrides the default list page size when positive.
	PageSize int
}

// alwaysExcluded are server-managed fields stripped from every comparison,
// in user-facing (snake_case) space.
var alwaysExcluded = []string{
	"id",
	"creation_time",
	"modified_time",
	"modified_by",
	"microtenant_name",
}

// ExclusionSet returns the full exclusion set for the kind as a lookup map.
func (d *Descriptor) ExclusionSet() map[string]bool {
	out := make(map[string]bool, len(alwaysExcluded)+len(d.Excluded))
	for _, f := range alwaysExcluded {
		out[f] = true
	}
	for _, f := range d.Excluded {
		out[f] = true
	}
	return out
}

// ComparableSet returns the allow-list as a lookup map, or nil when every
// non-excluded field is comparable.
func (d *Descriptor) ComparableSet() map[string]bool {
	if len(d.Comparable) == 0 {
		return nil
	}
	out := make(map[string]bool, len(d.Comparable))
	for _, f := range d.Comparable {
		out[f] = true
	}
	return out
}

// HasBulkDelete reports whether the kind supports the bulk-delete endpoint.
func (d *Descriptor) HasBulkDelete() bool {
	return d.Endpoints.BulkDelete != ""
}

// HasBulkReorder reports whether the kind supports the bulk-reorder endpoint.
func (d *Descriptor) HasBulkReorder() bool {
	return d.Endpoints.BulkReorder != ""
}

// listPath expands the list endpoint with the resolved path qualifier.
func (d *Descriptor) listPath(qualifier string) string {
	return expand(d.Endpoints.List, qualifier)
}

// itemPath expands the by-id endpoint.
func (d *Descriptor) itemPath(qualifier, id string) string {
	return expand(d.Endpoints.List, qualifier) + "/" + id
}

// reorderPath expands the bulk-reorder endpoint.
func (d *Descriptor) reorderPath(qualifier string) string {
	return expand(d.Endpoints.BulkReorder, qualifier)
}

func expand(template, qualifier string) string {
	return strings.ReplaceAll(template, "{qualifier}", qualifier)
}

// ValidateForCreate checks the required-for-create fields on a desired
// record. Returned field names are user-facing.
func (d *Descriptor) ValidateForCreate(desired record.Record) []string {
	var missing []string
	for _, field := range d.RequiredForCreate {
		if v, ok := desired[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}
	return missing
}
