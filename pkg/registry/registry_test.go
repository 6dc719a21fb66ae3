package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

// newTestRegistry builds a registry against an httptest server. The handler
// receives every non-token request.
func newTestRegistry(t *testing.T, handler http.HandlerFunc) *Registry {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/signin", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := zpa.NewClient(
		&zpa.Config{ClientID: "id", ClientSecret: "secret", CustomerID: "c1"},
		zpa.WithBaseURL(server.URL),
		zpa.WithTokenURL(server.URL+"/signin"),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return New(client, zerolog.Nop())
}

func listBody(items ...map[string]any) map[string]any {
	return map[string]any{"totalPages": "1", "list": items}
}

func TestLookupByIDPrecedence(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/segmentGroup/42") {
			t.Errorf("unexpected path %s; id lookup must not list", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "name": "SG1"})
	})
	d := mustDescribe(t, "segment_group")

	observed, err := reg.Lookup(context.Background(), d, Key{ID: "42", Name: "other"}, "", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if observed.ID() != "42" {
		t.Errorf("observed = %v", observed)
	}
}

func TestLookupByIDMissingIsNil(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	d := mustDescribe(t, "segment_group")

	observed, err := reg.Lookup(context.Background(), d, Key{ID: "ghost"}, "", nil)
	if err != nil {
		t.Fatalf("a 404 by id is not an error at lookup: %v", err)
	}
	if observed != nil {
		t.Errorf("observed = %v, want nil", observed)
	}
}

func TestLookupByNameFirstMatchInServerOrder(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(listBody(
			map[string]any{"id": "1", "name": "dup"},
			map[string]any{"id": "2", "name": "dup"},
			map[string]any{"id": "3", "name": "other"},
		))
	})
	d := mustDescribe(t, "segment_group")

	observed, err := reg.Lookup(context.Background(), d, Key{Name: "dup"}, "", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if observed.ID() != "1" {
		t.Errorf("observed id = %s, want first match 1", observed.ID())
	}
}

func TestLookupByNameExactMatchOnly(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(listBody(
			map[string]any{"id": "1", "name": "SG1-suffix"},
		))
	})
	d := mustDescribe(t, "segment_group")

	observed, err := reg.Lookup(context.Background(), d, Key{Name: "SG1"}, "", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if observed != nil {
		t.Errorf("prefix matched: %v", observed)
	}
}

func TestLookupRequiresKey(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	d := mustDescribe(t, "segment_group")

	_, err := reg.Lookup(context.Background(), d, Key{}, "", nil)
	if !zpa.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCompoundLookupResolvesPolicySet(t *testing.T) {
	var paths []string
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.Contains(r.URL.Path, "/policySet/policyType/ACCESS_POLICY"):
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "ps-7"})
		case strings.Contains(r.URL.Path, "/policySet/ps-7/rule"):
			_ = json.NewEncoder(w).Encode(listBody(
				map[string]any{"id": "r-1", "name": "allow-all"},
			))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	d := mustDescribe(t, "policy_access_rule")

	observed, err := reg.Lookup(context.Background(), d, Key{Name: "allow-all"}, "", nil)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if observed.ID() != "r-1" {
		t.Errorf("observed = %v", observed)
	}
	if len(paths) != 2 {
		t.Errorf("paths = %v, want policy set resolution then list", paths)
	}
}

func TestQualifierFieldFromDesired(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/associationType/CONNECTOR_GRP/provisioningKey") {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(listBody())
	})
	d := mustDescribe(t, "provisioning_key")

	desired := record.Record{"association_type": "connector_grp"}
	if _, err := reg.Lookup(context.Background(), d, Key{Name: "k"}, "", desired); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
}

func TestQualifierFieldMissingIsValidation(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected before validation")
	})
	d := mustDescribe(t, "provisioning_key")

	_, err := reg.Lookup(context.Background(), d, Key{Name: "k"}, "", record.Record{})
	if !zpa.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestReadOnlyKindRejectsMutations(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("read-only kind issued %s %s", r.Method, r.URL.Path)
	})
	d := mustDescribe(t, "trusted_network")

	if _, err := reg.Create(context.Background(), d, "", nil, record.Record{}); !zpa.IsPrecondition(err) {
		t.Errorf("create err = %v", err)
	}
	if _, err := reg.Update(context.Background(), d, "", "1", nil, record.Record{}); !zpa.IsPrecondition(err) {
		t.Errorf("update err = %v", err)
	}
	if err := reg.Delete(context.Background(), d, "", "1", nil); !zpa.IsPrecondition(err) {
		t.Errorf("delete err = %v", err)
	}
}

func TestUpdateRereadsOnEmptyResponse(t *testing.T) {
	var gets int
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			gets++
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "5", "name": "after"})
		}
	})
	d := mustDescribe(t, "segment_group")

	updated, err := reg.Update(context.Background(), d, "", "5", nil, record.Record{"name": "after"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.String("name") != "after" || gets != 1 {
		t.Errorf("updated = %v, gets = %d", updated, gets)
	}
}

func TestBulkDeleteUnsupportedKind(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	d := mustDescribe(t, "segment_group")

	err := reg.BulkDelete(context.Background(), d, "", []string{"1"})
	if !zpa.IsPrecondition(err) {
		t.Errorf("err = %v, want precondition", err)
	}
}

func TestBulkDeleteBodyKeyFromDescriptor(t *testing.T) {
	var body map[string]any
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/application/bulkDelete") {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	})
	d := mustDescribe(t, "application_segment")

	if err := reg.BulkDelete(context.Background(), d, "", []string{"1", "2"}); err != nil {
		t.Fatalf("BulkDelete: %v", err)
	}
	ids, ok := body["applicationIds"].([]any)
	if !ok || len(ids) != 2 {
		t.Errorf("body = %v, want ids under the descriptor's key", body)
	}
}

func TestScopeForwardedOnLookup(t *testing.T) {
	reg := newTestRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("microtenantId") != "mt-9" {
			t.Errorf("scope missing: %s", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(listBody())
	})
	d := mustDescribe(t, "segment_group")

	if _, err := reg.Lookup(context.Background(), d, Key{Name: "x"}, "mt-9", nil); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
}
