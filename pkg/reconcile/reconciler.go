package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/registry"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/telemetry"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

// Decision is the outcome of one reconciliation.
type Decision string

const (
	DecisionNoop   Decision = "noop"
	DecisionCreate Decision = "create"
	DecisionUpdate Decision = "update"
	DecisionDelete Decision = "delete"
)

// Result is what the invoker receives on success: whether the observed state
// changed (or would change, in check mode), the decision taken, the resource
// after the decision, and the drifted fields for update decisions.
type Result struct {
	Changed       bool          `json:"changed"`
	Decision      Decision      `json:"decision"`
	Data          record.Record `json:"data"`
	DriftedFields []string      `json:"drifted_fields,omitempty"`
}

// Reconciler drives observed state toward desired state for one resource
// instance per invocation. It owns no state between invocations.
type Reconciler struct {
	registry *registry.Registry
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger attaches a structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// New creates a reconciler bound to one invocation's registry.
func New(reg *registry.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		registry: reg,
		logger:   zerolog.Nop(),
		tracer:   otel.Tracer("zpa-reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile runs the compare-and-converge state machine for one request and
// returns the decision. With check mode asserted, no mutating call is issued
// and the predicted outcome is reported instead.
func (r *Reconciler) Reconcile(ctx context.Context, req *Request) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "reconcile",
		trace.WithAttributes(
			attribute.String("kind", req.Kind),
			attribute.String("state", string(req.State)),
			attribute.Bool("check_mode", req.CheckMode),
		))
	defer span.End()

	res, err := r.reconcile(ctx, req)
	if err != nil {
		span.RecordError(err)
		r.metrics.CountError(string(zpa.KindOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("decision", string(res.Decision)),
		attribute.Bool("changed", res.Changed),
	)
	r.metrics.CountDecision(req.Kind, string(res.Decision))
	return res, nil
}

func (r *Reconciler) reconcile(ctx context.Context, req *Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	d, err := r.registry.Describe(req.Kind)
	if err != nil {
		return nil, err
	}

	key := req.lookupKey()
	observed, err := r.registry.Lookup(ctx, d, key, req.MicrotenantID, req.Desired)
	if err != nil {
		return nil, decorate(err, req.Kind, key.String())
	}

	if req.State == StateAbsent {
		return r.reconcileAbsent(ctx, d, req, key, observed)
	}
	return r.reconcilePresent(ctx, d, req, key, observed)
}

// reconcileAbsent converges toward the resource not existing. Deleting a
// resource that is already gone is success, not an error.
func (r *Reconciler) reconcileAbsent(ctx context.Context, d *registry.Descriptor, req *Request, key registry.Key, observed record.Record) (*Result, error) {
	if observed == nil {
		return &Result{Changed: false, Decision: DecisionNoop, Data: record.Record{}}, nil
	}

	data := d.FromWire(observed)
	if req.CheckMode {
		return &Result{Changed: true, Decision: DecisionDelete, Data: data}, nil
	}

	if err := r.registry.Delete(ctx, d, req.MicrotenantID, observed.ID(), req.Desired); err != nil {
		// A 404 between lookup and delete still converges to absent.
		if !zpa.IsNotFound(err) {
			return nil, decorate(err, req.Kind, key.String())
		}
	}
	r.logger.Info().
		Str("kind", req.Kind).
		Str("id", observed.ID()).
		Msg("deleted resource")
	return &Result{Changed: true, Decision: DecisionDelete, Data: data}, nil
}

// reconcilePresent converges toward the desired record existing with its
// declared fields. Decisions: create when no record is observed, update on
// drift, noop otherwise.
func (r *Reconciler) reconcilePresent(ctx context.Context, d *registry.Descriptor, req *Request, key registry.Key, observed record.Record) (*Result, error) {
	if observed == nil {
		if req.ID != "" {
			// An explicit id resolves nothing; there is nothing to update.
			return nil, zpa.NewNotFoundError(
				fmt.Sprintf("no %s with id %s", req.Kind, req.ID)).
				WithResource(req.Kind, key.String())
		}
		if missing := d.ValidateForCreate(req.Desired); len(missing) > 0 {
			return nil, zpa.NewValidationError(
				fmt.Sprintf("cannot create %s: missing required fields %v", req.Kind, missing),
				missing...).
				WithResource(req.Kind, key.String())
		}
		if req.CheckMode {
			return &Result{Changed: true, Decision: DecisionCreate, Data: req.Desired}, nil
		}

		created, err := r.registry.Create(ctx, d, req.MicrotenantID, req.Desired, d.ToWire(req.Desired))
		if err != nil {
			return nil, decorate(err, req.Kind, key.String())
		}
		r.logger.Info().
			Str("kind", req.Kind).
			Str("id", created.ID()).
			Msg("created resource")
		return &Result{Changed: true, Decision: DecisionCreate, Data: d.FromWire(created)}, nil
	}

	normDesired := Normalize(d, req.Desired, SideDesired)
	normObserved := Normalize(d, observed, SideObserved)
	drifted, fields := Drift(normDesired, normObserved)
	if !drifted {
		return &Result{Changed: false, Decision: DecisionNoop, Data: d.FromWire(observed)}, nil
	}

	r.metrics.CountDrift(req.Kind, len(fields))
	r.logger.Debug().
		Str("kind", req.Kind).
		Str("id", observed.ID()).
		Strs("fields", fields).
		Msg("drift detected")

	merged := r.updateBody(d, observed, req.Desired)
	if req.CheckMode {
		return &Result{Changed: true, Decision: DecisionUpdate, Data: merged, DriftedFields: fields}, nil
	}

	updated, err := r.registry.Update(ctx, d, req.MicrotenantID, observed.ID(), req.Desired, d.ToWire(merged))
	if err != nil {
		return nil, decorate(err, req.Kind, key.String())
	}
	r.logger.Info().
		Str("kind", req.Kind).
		Str("id", observed.ID()).
		Strs("fields", fields).
		Msg("updated resource")
	return &Result{Changed: true, Decision: DecisionUpdate, Data: d.FromWire(updated), DriftedFields: fields}, nil
}

// updateBody composes the update body in user-facing space: the observed
// record as base, overlaid with every non-null desired field. Fields the
// desired record never mentions keep their observed values, so configuration
// set outside the engine survives the update.
func (r *Reconciler) updateBody(d *registry.Descriptor, observed, desired record.Record) record.Record {
	base := d.FromWire(observed)
	merged := record.Overlay(base, desired)

	// When the desired record declares a reference field as an id sequence,
	// the observed expanded objects for the same relation must not ride
	// along, or the wire body would carry the relation twice.
	for userField, wireField := range d.RefFields {
		if v, ok := desired[userField]; ok && v != nil {
			delete(merged, record.CamelToSnake(wireField))
		}
	}

	// Audit metadata is server-managed and never echoed back.
	delete(merged, "creation_time")
	delete(merged, "modified_time")
	delete(merged, "modified_by")
	delete(merged, "microtenant_name")

	return merged
}

// decorate attaches resource context to classified errors that lack it.
func decorate(err error, kind, key string) error {
	if e, ok := err.(*zpa.Error); ok && e.ResourceKind == "" {
		return e.WithResource(kind, key)
	}
	return err
}
