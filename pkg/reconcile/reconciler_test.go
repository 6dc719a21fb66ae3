package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/record"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/registry"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

const customerPrefix = "/mgmtconfig/v1/admin/customers/c1"

// fakeAPI is an in-memory segment-group backend. It counts mutating verbs so
// tests can assert check-mode safety.
type fakeAPI struct {
	mu      sync.Mutex
	groups  map[string]map[string]any
	order   []string
	nextID  int
	posts   int
	puts    int
	deletes int
	lastPut map[string]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{groups: map[string]map[string]any{}, nextID: 100}
}

func (f *fakeAPI) mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts + f.puts + f.deletes
}

func (f *fakeAPI) seed(group map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("%d", f.nextID)
	f.nextID++
	group["id"] = id
	f.groups[id] = group
	f.order = append(f.order, id)
	return id
}

func (f *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, customerPrefix)
		switch {
		case path == "/segmentGroup" && r.Method == http.MethodGet:
			items := make([]map[string]any, 0, len(f.order))
			for _, id := range f.order {
				items = append(items, f.groups[id])
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"totalPages": "1", "list": items})

		case path == "/segmentGroup" && r.Method == http.MethodPost:
			f.posts++
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			id := fmt.Sprintf("%d", f.nextID)
			f.nextID++
			body["id"] = id
			body["creationTime"] = "1700000000"
			f.groups[id] = body
			f.order = append(f.order, id)
			_ = json.NewEncoder(w).Encode(body)

		case strings.HasPrefix(path, "/segmentGroup/"):
			id := strings.TrimPrefix(path, "/segmentGroup/")
			group, ok := f.groups[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			switch r.Method {
			case http.MethodGet:
				_ = json.NewEncoder(w).Encode(group)
			case http.MethodPut:
				f.puts++
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				f.lastPut = body
				body["id"] = id
				f.groups[id] = body
				w.WriteHeader(http.StatusNoContent)
			case http.MethodDelete:
				f.deletes++
				delete(f.groups, id)
				for i, o := range f.order {
					if o == id {
						f.order = append(f.order[:i], f.order[i+1:]...)
						break
					}
				}
				w.WriteHeader(http.StatusNoContent)
			}

		case r.Method == http.MethodGet:
			// Any other collection reads as empty.
			_ = json.NewEncoder(w).Encode(map[string]any{"totalPages": "1", "list": []any{}})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestReconciler(t *testing.T, api *fakeAPI) *Reconciler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/signin", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/", api.handler())
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
	return New(registry.New(client, zerolog.Nop()))
}

func TestReconcileCreateThenNoop(t *testing.T) {
	api := newFakeAPI()
	r := newTestReconciler(t, api)
	req := &Request{
		Kind:  "segment_group",
		State: StatePresent,
		Name:  "SG1",
		Desired: record.Record{
			"name":        "SG1",
			"description": "primary",
			"enabled":     true,
		},
	}

	res, err := r.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if !res.Changed || res.Decision != DecisionCreate {
		t.Errorf("first = %+v, want create", res)
	}
	if res.Data.String("name") != "SG1" || res.Data.ID() == "" {
		t.Errorf("create data = %v", res.Data)
	}

	res, err = r.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if res.Changed || res.Decision != DecisionNoop {
		t.Errorf("second = %+v, want noop", res)
	}
	if api.posts != 1 || api.puts != 0 {
		t.Errorf("posts = %d, puts = %d; converged state must not mutate", api.posts, api.puts)
	}
}

func TestReconcileUpdatePreservesUndeclaredFields(t *testing.T) {
	api := newFakeAPI()
	api.seed(map[string]any{
		"name":           "SG1",
		"description":    "old",
		"enabled":        true,
		"policyMigrated": true,
	})
	r := newTestReconciler(t, api)

	res, err := r.Reconcile(context.Background(), &Request{
		Kind:    "segment_group",
		State:   StatePresent,
		Name:    "SG1",
		Desired: record.Record{"name": "SG1", "description": "new"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Changed || res.Decision != DecisionUpdate {
		t.Fatalf("res = %+v, want update", res)
	}
	if len(res.DriftedFields) != 1 || res.DriftedFields[0] != "description" {
		t.Errorf("drifted = %v", res.DriftedFields)
	}

	// The update body must carry the untouched fields forward.
	if api.lastPut["description"] != "new" {
		t.Errorf("description = %v", api.lastPut["description"])
	}
	if api.lastPut["enabled"] != true || api.lastPut["policyMigrated"] != true {
		t.Errorf("undeclared fields dropped from update body: %v", api.lastPut)
	}
	if res.Data.String("description") != "new" {
		t.Errorf("data = %v", res.Data)
	}
}

func TestReconcileNoDriftNoUpdate(t *testing.T) {
	api := newFakeAPI()
	api.seed(map[string]any{"name": "SG1", "description": "d", "enabled": true})
	r := newTestReconciler(t, api)

	res, err := r.Reconcile(context.Background(), &Request{
		Kind:    "segment_group",
		State:   StatePresent,
		Name:    "SG1",
		Desired: record.Record{"name": "SG1", "enabled": true},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Changed || res.Decision != DecisionNoop {
		t.Errorf("res = %+v, want noop", res)
	}
	if api.mutations() != 0 {
		t.Errorf("mutations = %d", api.mutations())
	}
}

func TestReconcileCheckModeCreate(t *testing.T) {
	api := newFakeAPI()
	r := newTestReconciler(t, api)

	res, err := r.Reconcile(context.Background(), &Request{
		Kind:      "segment_group",
		State:     StatePresent,
		Name:      "SG1",
		CheckMode: true,
		Desired:   record.Record{"name": "SG1", "enabled": true},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Changed || res.Decision != DecisionCreate {
		t.Errorf("res = %+v, want predicted create", res)
	}
	if api.mutations() != 0 {
		t.Errorf("check mode issued %d mutations", api.mutations())
	}
}

func TestReconcileCheckModeUpdate(t *testing.T) {
	api := newFakeAPI()
	api.seed(map[string]any{"name": "SG1", "description": "old", "enabled": true})
	r := newTestReconciler(t, api)

	res, err := r.Reconcile(context.Background(), &Request{
		Kind:      "segment_group",
		State:     StatePresent,
		Name:      "SG1",
		CheckMode: true,
		Desired:   record.Record{"name": "SG1", "description": "new"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Changed || res.Decision != DecisionUpdate {
		t.Errorf("res = %+v, want predicted update", res)
	}
	// Predicted data is the merged record, not the live one.
	if res.Data.String("description") != "new" {
		t.Errorf("data = %v", res.Data)
	}
	if api.mutations() != 0 {
		t.Errorf("check mode issued %d mutations", api.mutations())
	}
}

func TestReconcileAbsentMissingIsNoop(t *testing.T) {
	api := newFakeAPI()
	r := newTestReconciler(t, api)

	res, err := r.Reconcile(context.Background(), &Request{
		Kind:    "segment_group",
		State:   StateAbsent,
		Name:    "ghost",
		Desired: record.Record{"name": "ghost"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Changed || res.Decision != DecisionNoop {
		t.Errorf("res = %+v, want noop", res)
	}
	if api.mutations() != 0 {
		t.Errorf("mutations = %d", api.mutations())
	}
}

func TestReconcileAbsentDeletes(t *testing.T) {
	api := newFakeAPI()
	id := api.seed(map[string]any{"name": "SG1", "enabled": true})
	r := newTestReconciler(t, api)

	req := &Request{
		Kind:    "segment_group",
		State:   StateAbsent,
		Name:    "SG1",
		Desired: record.Record{"name": "SG1"},
	}
	res, err := r.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if !res.Changed || res.Decision != DecisionDelete {
		t.Errorf("first = %+v, want delete", res)
	}
	if res.Data.String("name") != "SG1" {
		t.Errorf("delete data = %v", res.Data)
	}
	if _, ok := api.groups[id]; ok {
		t.Errorf("group %s survived", id)
	}

	// Converged: repeating the absent declaration changes nothing.
	res, err = r.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if res.Changed || res.Decision != DecisionNoop {
		t.Errorf("second = %+v, want noop", res)
	}
	if api.deletes != 1 {
		t.Errorf("deletes = %d, want exactly one", api.deletes)
	}
}

func TestReconcileAbsentCheckMode(t *testing.T) {
	api := newFakeAPI()
	api.seed(map[string]any{"name": "SG1", "enabled": true})
	r := newTestReconciler(t, api)

	res, err := r.Reconcile(context.Background(), &Request{
		Kind:      "segment_group",
		State:     StateAbsent,
		Name:      "SG1",
		CheckMode: true,
		Desired:   record.Record{"name": "SG1"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.Changed || res.Decision != DecisionDelete {
		t.Errorf("res = %+v, want predicted delete", res)
	}
	if api.mutations() != 0 {
		t.Errorf("check mode issued %d mutations", api.mutations())
	}
}

func TestReconcileExplicitIDNotFound(t *testing.T) {
	api := newFakeAPI()
	r := newTestReconciler(t, api)

	_, err := r.Reconcile(context.Background(), &Request{
		Kind:    "segment_group",
		State:   StatePresent,
		ID:      "999",
		Desired: record.Record{"name": "SG1"},
	})
	if !zpa.IsNotFound(err) {
		t.Errorf("err = %v, want not_found", err)
	}
	if api.mutations() != 0 {
		t.Errorf("mutations = %d", api.mutations())
	}
}

func TestReconcileCreateMissingRequiredFields(t *testing.T) {
	api := newFakeAPI()
	r := newTestReconciler(t, api)

	_, err := r.Reconcile(context.Background(), &Request{
		Kind:    "application_segment",
		State:   StatePresent,
		Name:    "app",
		Desired: record.Record{"name": "app"},
	})
	if !zpa.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
	if api.mutations() != 0 {
		t.Errorf("mutations = %d", api.mutations())
	}
}

func TestReconcileRejectsBadState(t *testing.T) {
	api := newFakeAPI()
	r := newTestReconciler(t, api)

	_, err := r.Reconcile(context.Background(), &Request{
		Kind:  "segment_group",
		State: State("purged"),
		Name:  "SG1",
	})
	if !zpa.IsValidation(err) {
		t.Errorf("err = %v, want validation", err)
	}
}
