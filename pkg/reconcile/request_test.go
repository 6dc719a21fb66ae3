package reconcile

import (
	"reflect"
	"testing"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

func TestParseParams(t *testing.T) {
	req, cfg, err := ParseParams("segment_group", map[string]any{
		"provider": map[string]any{
			"client_id":     "cid",
			"client_secret": "cs",
			"customer_id":   "cust",
			"cloud":         "beta",
		},
		"state":          "present",
		"microtenant_id": "mt-1",
		"_check_mode":    true,
		"name":           "SG1",
		"description":    "primary",
		"enabled":        true,
	})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}

	if req.Kind != "segment_group" || req.State != StatePresent || !req.CheckMode {
		t.Errorf("req = %+v", req)
	}
	if req.Name != "SG1" || req.MicrotenantID != "mt-1" {
		t.Errorf("req = %+v", req)
	}
	if cfg.ClientID != "cid" || cfg.ClientSecret != "cs" || cfg.CustomerID != "cust" || cfg.Cloud != "beta" {
		t.Errorf("cfg = %+v", cfg)
	}

	// Protocol keys are consumed; declarative keys land in Desired, with the
	// scope mirrored so it rides the record too.
	for _, key := range []string{"provider", "state", "_check_mode"} {
		if _, ok := req.Desired[key]; ok {
			t.Errorf("protocol key %q leaked into desired", key)
		}
	}
	if req.Desired["name"] != "SG1" || req.Desired["description"] != "primary" {
		t.Errorf("desired = %v", req.Desired)
	}
	if req.Desired["microtenant_id"] != "mt-1" {
		t.Errorf("scope not mirrored: %v", req.Desired)
	}
}

func TestParseParamsDefaultsToPresent(t *testing.T) {
	req, _, err := ParseParams("segment_group", map[string]any{"name": "SG1"})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	if req.State != StatePresent {
		t.Errorf("state = %q", req.State)
	}
}

func TestParseParamsRejectsBadState(t *testing.T) {
	_, _, err := ParseParams("segment_group", map[string]any{"state": "deleted"})
	if !zpa.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestParseParamsMalformedProvider(t *testing.T) {
	_, _, err := ParseParams("segment_group", map[string]any{
		"provider": map[string]any{"client_id": 12},
	})
	if !zpa.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestInvokerShapes(t *testing.T) {
	res := &Result{Changed: true, Decision: DecisionUpdate, DriftedFields: []string{"enabled"}}
	out := res.InvokerSuccess()
	if out["changed"] != true {
		t.Errorf("out = %v", out)
	}
	// A nil data record serializes as an empty list, never null.
	if !reflect.DeepEqual(out["data"], []any{}) {
		t.Errorf("data = %v", out["data"])
	}
	if !reflect.DeepEqual(out["drifted_fields"], []string{"enabled"}) {
		t.Errorf("drifted_fields = %v", out["drifted_fields"])
	}

	fail := InvokerFailure(zpa.NewConflictError("name already in use", nil))
	if fail["failed"] != true || fail["msg"] == "" {
		t.Errorf("fail = %v", fail)
	}
}
