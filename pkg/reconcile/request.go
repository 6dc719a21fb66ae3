package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/registry"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

// State is the declared target state.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// Request carries one invocation's parameters into the reconciler.
type Request struct {
	// Kind is the resource kind selector.
	Kind string

	// State is the target state; defaults to present.
	State State

	// ID, when supplied, takes precedence over Name for lookup.
	ID string

	// Name identifies the resource within its scope.
	Name string

	// MicrotenantID is the scope qualifier carried on every API call.
	MicrotenantID string

	// CheckMode asks the engine to predict its action without mutating.
	CheckMode bool

	// Desired holds the kind-specific declared fields, user-facing names.
	Desired record.Record
}

// Validate checks the request's protocol-level fields.
func (req *Request) Validate() error {
	if req.Kind == "" {
		return zpa.NewValidationError("resource kind is required", "kind")
	}
	switch req.State {
	case StatePresent, StateAbsent:
	case "":
		req.State = StatePresent
	default:
		return zpa.NewValidationError(
			fmt.Sprintf("state must be present or absent, got %q", req.State), "state")
	}
	return nil
}

// lookupKey derives the registry lookup key: explicit id first, then the
// declared name.
func (req *Request) lookupKey() registry.Key {
	return registry.Key{ID: req.ID, Name: req.Name}
}

// ParseParams splits the invoker's parameter dictionary into the engine
// request and the provider credential block. The protocol-level keys
// (provider, state, id, microtenant_id, _check_mode) are consumed; every
// other key is a kind-specific desired field. The name key stays in the
// desired record as well; it is a declarative field like any other.
func ParseParams(kind string, params map[string]any) (*Request, *zpa.Config, error) {
	req := &Request{Kind: kind, Desired: record.Record{}}
	cfg := &zpa.Config{}

	for key, value := range params {
		switch key {
		case "provider":
			if value == nil {
				continue
			}
			if err := decodeInto(value, cfg); err != nil {
				return nil, nil, zpa.NewValidationError("malformed provider block: "+err.Error(), "provider")
			}
		case "state":
			if s, ok := value.(string); ok {
				req.State = State(s)
			}
		case "id":
			if s, ok := value.(string); ok {
				req.ID = s
			}
		case "microtenant_id":
			if s, ok := value.(string); ok {
				req.MicrotenantID = s
			}
		case "_check_mode":
			if b, ok := value.(bool); ok {
				req.CheckMode = b
			}
		default:
			req.Desired[key] = value
		}
	}

	if name, ok := req.Desired["name"].(string); ok {
		req.Name = name
	}
	if req.MicrotenantID != "" {
		req.Desired["microtenant_id"] = req.MicrotenantID
	}
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	return req, cfg, nil
}

// decodeInto round-trips a loose map into a typed struct via JSON.
func decodeInto(value any, target any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// InvokerSuccess is the success shape handed back to the invoker.
func (res *Result) InvokerSuccess() map[string]any {
	data := any(res.Data)
	if res.Data == nil {
		data = []any{}
	}
	out := map[string]any{
		"changed": res.Changed,
		"data":    data,
	}
	if len(res.DriftedFields) > 0 {
		out["drifted_fields"] = res.DriftedFields
	}
	return out
}

// InvokerFailure is the failure shape handed back to the invoker.
func InvokerFailure(err error) map[string]any {
	return map[string]any{
		"failed": true,
		"msg":    err.Error(),
	}
}
