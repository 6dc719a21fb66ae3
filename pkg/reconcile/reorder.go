package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

// RuleOrder is one entry of a proposed rule ordering.
type RuleOrder struct {
	ID    string `json:"id" validate:"required"`
	Order int    `json:"order" validate:"required,min=1"`
}

// ReorderRequest carries a bulk-reorder invocation.
type ReorderRequest struct {
	Kind          string      `json:"kind" validate:"required"`
	Rules         []RuleOrder `json:"rules" validate:"required,min=1,dive"`
	MicrotenantID string      `json:"microtenant_id,omitempty"`
	CheckMode     bool        `json:"_check_mode,omitempty"`
}

// validateOrdering checks the proposal before any network call: every order
// is a positive integer, no order is duplicated, and the multiset of orders
// is exactly {1..N}.
func validateOrdering(rules []RuleOrder) error {
	v := validator.New()
	if err := v.Struct(&ReorderRequest{Kind: "-", Rules: rules}); err != nil {
		return zpa.NewValidationError("malformed reorder request: " + err.Error())
	}

	seenOrder := make(map[int]string, len(rules))
	seenID := make(map[string]bool, len(rules))
	for _, rule := range rules {
		if prev, dup := seenOrder[rule.Order]; dup {
			return zpa.NewValidationError(
				fmt.Sprintf("order %d assigned to both %s and %s", rule.Order, prev, rule.ID),
				"order")
		}
		seenOrder[rule.Order] = rule.ID
		if seenID[rule.ID] {
			return zpa.NewValidationError(
				fmt.Sprintf("rule id %s appears more than once", rule.ID), "id")
		}
		seenID[rule.ID] = true
	}
	for want := 1; want <= len(rules); want++ {
		if _, ok := seenOrder[want]; !ok {
			return zpa.NewValidationError(
				fmt.Sprintf("ordering is not dense: missing order %d for %d rules", want, len(rules)),
				"order")
		}
	}
	return nil
}

// Reorder validates a proposed rule ordering, diffs it against the observed
// order, and issues one bulk-reorder call when they differ. Validation
// failures surface before any network traffic; check mode reports the drift
// without calling the endpoint.
func (r *Reconciler) Reorder(ctx context.Context, req *ReorderRequest) (*Result, error) {
	if err := validateOrdering(req.Rules); err != nil {
		return nil, err
	}

	d, err := r.registry.Describe(req.Kind)
	if err != nil {
		return nil, err
	}
	if !d.HasBulkReorder() {
		return nil, zpa.NewPreconditionError(
			fmt.Sprintf("kind %s has no bulk-reorder endpoint", req.Kind)).
			WithResource(req.Kind, "")
	}

	desired := make([]RuleOrder, len(req.Rules))
	copy(desired, req.Rules)
	sort.Slice(desired, func(i, j int) bool { return desired[i].Order < desired[j].Order })
	orderedIDs := make([]string, len(desired))
	for i, rule := range desired {
		orderedIDs[i] = rule.ID
	}

	observed, err := r.registry.ListAll(ctx, d, req.MicrotenantID, nil)
	if err != nil {
		return nil, decorate(err, req.Kind, "")
	}
	observedIDs := make([]string, len(observed))
	for i, rule := range observed {
		observedIDs[i] = rule.ID()
	}

	data := record.Record{"ordered_ids": orderedIDs}
	if sameOrder(orderedIDs, observedIDs) {
		return &Result{Changed: false, Decision: DecisionNoop, Data: data}, nil
	}

	if req.CheckMode {
		return &Result{Changed: true, Decision: DecisionUpdate, Data: data}, nil
	}
	if err := r.registry.Reorder(ctx, d, req.MicrotenantID, orderedIDs); err != nil {
		return nil, decorate(err, req.Kind, "")
	}
	r.logger.Info().
		Str("kind", req.Kind).
		Int("rules", len(orderedIDs)).
		Msg("reordered rules")
	return &Result{Changed: true, Decision: DecisionUpdate, Data: data}, nil
}

func sameOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// BulkDelete issues one bulk-delete call for a set of ids, bypassing lookup
// and drift. Kinds without a bulk-delete endpoint surface a precondition
// error; check mode reports the predicted change without calling.
func (r *Reconciler) BulkDelete(ctx context.Context, kind string, ids []string, microtenantID string, checkMode bool) (*Result, error) {
	if len(ids) == 0 {
		return nil, zpa.NewValidationError("bulk delete requires at least one id", "ids")
	}

	d, err := r.registry.Describe(kind)
	if err != nil {
		return nil, err
	}
	if !d.HasBulkDelete() {
		return nil, zpa.NewPreconditionError(
			fmt.Sprintf("kind %s has no bulk-delete endpoint", kind)).
			WithResource(kind, "")
	}

	data := record.Record{"deleted_ids": ids}
	if checkMode {
		return &Result{Changed: true, Decision: DecisionDelete, Data: data}, nil
	}
	if err := r.registry.BulkDelete(ctx, d, microtenantID, ids); err != nil {
		return nil, decorate(err, kind, "")
	}
	r.logger.Info().
		Str("kind", kind).
		Int("count", len(ids)).
		Msg("bulk deleted resources")
	return &Result{Changed: true, Decision: DecisionDelete, Data: data}, nil
}
