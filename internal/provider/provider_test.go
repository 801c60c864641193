// Copyright (c) DevOps Wiz
// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-go/tfprotov6"

	"github.com/devops-wiz/terraform-provider-restcall/internal/provider/testhelpers"
)

// testAccPreCheck clears provider settings from the environment so that
// acceptance configs are self-contained.
func testAccPreCheck(t *testing.T) {
	for _, env := range []string{envHost, envUsername, envPassword, envAPIToken, envToken} {
		t.Setenv(env, "")
	}
}

// Provider factory for acceptance tests
var testAccProtoV6ProviderFactories = map[string]func() (tfprotov6.ProviderServer, error){
	"restcall": providerserver.NewProtocol6WithError(New("test")()),
}

// testAccAPI is an in-process object store used as the remote end of
// acceptance tests.
type testAccAPI struct {
	*httptest.Server

	mu      sync.Mutex
	nextID  int
	objects map[string]map[string]any
	user    string
	pass    string
}

func newTestAccAPI(t *testing.T, user, pass string) *testAccAPI {
	t.Helper()
	api := &testAccAPI{objects: map[string]map[string]any{}, user: user, pass: pass}
	api.Server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.Close)
	return api
}

func (a *testAccAPI) providerCfg(t *testing.T) testhelpers.ProviderTmplCfg {
	t.Helper()
	host, port := splitServerURL(t, a.URL)
	cfg := testhelpers.ProviderTmplCfg{Host: host, Port: port, RecoverableMaxAttempts: 2}
	if a.user != "" {
		cfg.AuthMethod = authMethodBasic
		cfg.Username = a.user
		cfg.Password = a.pass
	}
	return cfg
}

func (a *testAccAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}

func (a *testAccAPI) get(id string) (map[string]any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	obj, ok := a.objects[id]
	return obj, ok
}

func (a *testAccAPI) serve(w http.ResponseWriter, r *http.Request) {
	if a.user != "" {
		if u, p, ok := r.BasicAuth(); !ok || u != a.user || p != a.pass {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	writeJSON := func(code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}

	id := strings.TrimPrefix(r.URL.Path, "/objects/")
	switch {
	case r.URL.Path == "/objects" && r.Method == http.MethodPost:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		a.nextID++
		obj := map[string]any{"id": fmt.Sprintf("obj-%d", a.nextID), "name": body["name"], "state": "created"}
		a.objects[obj["id"].(string)] = obj
		writeJSON(http.StatusCreated, obj)
	case id != r.URL.Path && r.Method == http.MethodGet:
		obj, ok := a.objects[id]
		if !ok {
			writeJSON(http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		writeJSON(http.StatusOK, obj)
	case id != r.URL.Path && r.Method == http.MethodPut:
		obj, ok := a.objects[id]
		if !ok {
			writeJSON(http.StatusNotFound, map[string]any{"error": "not found"})
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(http.StatusBadRequest, map[string]any{"error": err.Error()})
			return
		}
		obj["name"] = body["name"]
		obj["state"] = "updated"
		writeJSON(http.StatusOK, obj)
	case id != r.URL.Path && r.Method == http.MethodDelete:
		delete(a.objects, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(http.StatusMethodNotAllowed, map[string]any{"error": "unsupported"})
	}
}
