package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

// Key selects an observed record. Id, when present, takes precedence over
// name.
type Key struct {
	ID   string
	Name string
}

func (k Key) String() string {
	if k.ID != "" {
		return "id=" + k.ID
	}
	return "name=" + k.Name
}

// Registry binds the descriptor table to an authenticated client and
// resolves observed records for the reconciler.
type Registry struct {
	client *zpa.Client
	logger zerolog.Logger
}

// New creates a registry bound to one invocation's client.
func New(client *zpa.Client, logger zerolog.Logger) *Registry {
	return &Registry{client: client, logger: logger}
}

// Describe returns the descriptor for a kind, surfacing a precondition error
// for unknown kinds.
func (r *Registry) Describe(kind string) (*Descriptor, error) {
	d, err := Describe(kind)
	if err != nil {
		return nil, zpa.NewPreconditionError(err.Error())
	}
	return d, nil
}

// qualifier resolves the compound path qualifier for a kind: the policy set
// id for rule kinds, the upper-cased qualifier field for the rest, and ""
// for plain kinds.
func (r *Registry) qualifier(ctx context.Context, d *Descriptor, desired record.Record, scope string) (string, error) {
	if d.Lookup != LookupCompound {
		return "", nil
	}
	if d.PolicyType != "" {
		return r.resolvePolicySet(ctx, d.PolicyType, scope)
	}
	if d.QualifierField != "" {
		v := desired.String(d.QualifierField)
		if v == "" {
			return "", zpa.NewValidationError(
				fmt.Sprintf("%s is required for %s lookups", d.QualifierField, d.Kind),
				d.QualifierField)
		}
		return strings.ToUpper(v), nil
	}
	return "", zpa.NewPreconditionError(
		fmt.Sprintf("kind %s declares a compound lookup with no qualifier source", d.Kind))
}

// resolvePolicySet fetches the policy set id for a policy type. The id is
// stable per tenant but still fetched per invocation; the engine carries no
// cross-invocation cache.
func (r *Registry) resolvePolicySet(ctx context.Context, policyType, scope string) (string, error) {
	raw, err := r.client.Get(ctx, "/policySet/policyType/"+policyType, zpa.ScopedQuery(scope))
	if err != nil {
		return "", err
	}
	set, err := record.Decode(raw)
	if err != nil {
		return "", zpa.NewTransportError("decoding policy set", err)
	}
	id := set.ID()
	if id == "" {
		return "", zpa.NewAPIError(
			fmt.Sprintf("policy set for %s carried no id", policyType), 0)
	}
	return id, nil
}

// Lookup resolves the observed record for a key per the descriptor's lookup
// mode. A missing record is (nil, nil); the reconciler decides what that
// means. The returned record is in wire space.
func (r *Registry) Lookup(ctx context.Context, d *Descriptor, key Key, scope string, desired record.Record) (record.Record, error) {
	qual, err := r.qualifier(ctx, d, desired, scope)
	if err != nil {
		return nil, err
	}

	if key.ID != "" {
		raw, err := r.client.Get(ctx, d.itemPath(qual, key.ID), zpa.ScopedQuery(scope))
		if zpa.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return record.Decode(raw)
	}

	if key.Name == "" {
		return nil, zpa.NewValidationError("either id or name is required for lookup", "id", "name").
			WithResource(d.Kind, "")
	}

	items, err := r.listAll(ctx, d, qual, scope)
	if err != nil {
		return nil, err
	}
	// First exact match in server order; duplicates are not disambiguated.
	for _, item := range items {
		if item.String("name") == key.Name {
			r.logger.Debug().
				Str("kind", d.Kind).
				Str("name", key.Name).
				Str("id", item.ID()).
				Msg("resolved by name")
			return item, nil
		}
	}
	r.logger.Debug().
		Str("kind", d.Kind).
		Str("name", key.Name).
		Int("candidates", len(items)).
		Msg("no record matched name")
	return nil, nil
}

// ListAll returns every record of the kind in server order, in wire space.
func (r *Registry) ListAll(ctx context.Context, d *Descriptor, scope string, desired record.Record) ([]record.Record, error) {
	qual, err := r.qualifier(ctx, d, desired, scope)
	if err != nil {
		return nil, err
	}
	return r.listAll(ctx, d, qual, scope)
}

func (r *Registry) listAll(ctx context.Context, d *Descriptor, qualifier, scope string) ([]record.Record, error) {
	raws, err := r.client.CollectAll(ctx, d.listPath(qualifier), zpa.ScopedQuery(scope), d.PageSize)
	if err != nil {
		return nil, err
	}
	items := make([]record.Record, 0, len(raws))
	for _, raw := range raws {
		item, derr := record.Decode(raw)
		if derr != nil {
			return nil, zpa.NewTransportError("decoding list item", derr)
		}
		items = append(items, item)
	}
	return items, nil
}

// Create issues the create call with a wire-space body and returns the
// created record.
func (r *Registry) Create(ctx context.Context, d *Descriptor, scope string, desired record.Record, body record.Record) (record.Record, error) {
	if d.ReadOnly {
		return nil, zpa.NewPreconditionError(fmt.Sprintf("kind %s is read-only", d.Kind))
	}
	qual, err := r.qualifier(ctx, d, desired, scope)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.Post(ctx, d.listPath(qual), zpa.ScopedQuery(scope), body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return body, nil
	}
	return record.Decode(raw)
}

// Update issues the update call for an id and returns the post-update
// record, re-reading when the server responds with an empty body.
func (r *Registry) Update(ctx context.Context, d *Descriptor, scope, id string, desired record.Record, body record.Record) (record.Record, error) {
	if d.ReadOnly {
		return nil, zpa.NewPreconditionError(fmt.Sprintf("kind %s is read-only", d.Kind))
	}
	qual, err := r.qualifier(ctx, d, desired, scope)
	if err != nil {
		return nil, err
	}
	raw, err := r.client.Put(ctx, d.itemPath(qual, id), zpa.ScopedQuery(scope), body)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 && string(raw) != "null" {
		return record.Decode(raw)
	}
	fresh, err := r.client.Get(ctx, d.itemPath(qual, id), zpa.ScopedQuery(scope))
	if err != nil {
		return nil, err
	}
	return record.Decode(fresh)
}

// Delete issues the delete call for an id.
func (r *Registry) Delete(ctx context.Context, d *Descriptor, scope, id string, desired record.Record) error {
	if d.ReadOnly {
		return zpa.NewPreconditionError(fmt.Sprintf("kind %s is read-only", d.Kind))
	}
	qual, err := r.qualifier(ctx, d, desired, scope)
	if err != nil {
		return err
	}
	_, err = r.client.Delete(ctx, d.itemPath(qual, id), zpa.ScopedQuery(scope))
	return err
}

// BulkDelete issues one bulk-delete call for a set of ids.
func (r *Registry) BulkDelete(ctx context.Context, d *Descriptor, scope string, ids []string) error {
	if !d.HasBulkDelete() {
		return zpa.NewPreconditionError(
			fmt.Sprintf("kind %s has no bulk-delete endpoint", d.Kind)).
			WithResource(d.Kind, "")
	}
	if d.Endpoints.BulkDeleteKey == "" {
		return zpa.NewPreconditionError(
			fmt.Sprintf("kind %s declares a bulk-delete endpoint without a body key", d.Kind)).
			WithResource(d.Kind, "")
	}
	body := map[string]any{d.Endpoints.BulkDeleteKey: ids}
	_, err := r.client.Post(ctx, d.Endpoints.BulkDelete, zpa.ScopedQuery(scope), body)
	return err
}

// Reorder issues the bulk-reorder call with rule ids in their desired order.
func (r *Registry) Reorder(ctx context.Context, d *Descriptor, scope string, orderedIDs []string) error {
	if !d.HasBulkReorder() {
		return zpa.NewPreconditionError(
			fmt.Sprintf("kind %s has no bulk-reorder endpoint", d.Kind)).
			WithResource(d.Kind, "")
	}
	qual, err := r.qualifier(ctx, d, nil, scope)
	if err != nil {
		return err
	}
	_, err = r.client.Put(ctx, d.reorderPath(qual), zpa.ScopedQuery(scope), orderedIDs)
	return err
}
