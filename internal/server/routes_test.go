package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpacode/edlsync/internal/engine"
	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/remote"
	"github.com/rpacode/edlsync/internal/store"
	"github.com/rpacode/edlsync/internal/syncq"
)

// stubClient always reports the scripted delivery outcome.
type stubClient struct {
	succeed bool
}

func (s *stubClient) CheckStatus(ctx context.Context) bool { return s.succeed }

func (s *stubClient) SubmitInspection(ctx context.Context, data json.RawMessage, idempotencyKey string) remote.Result {
	if s.succeed {
		return remote.Result{Success: true, Status: 201}
	}
	return remote.Result{Success: false, Status: 503, Error: "unavailable"}
}

func newTestServer(t *testing.T) (*httptest.Server, *store.Store, *engine.Engine) {
	t.Helper()

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	eng := engine.New(s, syncq.NewQueue(s), &stubClient{succeed: true}, 0)
	hub := NewHub()
	t.Cleanup(hub.Close)

	server := httptest.NewServer(NewHandler(s, eng, hub).Routes())
	t.Cleanup(server.Close)
	return server, s, eng
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

// TestHealthCheck verifies the liveness endpoint.
func TestHealthCheck(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

// TestEDLEndpoints walks the EDL lifecycle over HTTP: create, read,
// filter, patch, delete.
func TestEDLEndpoints(t *testing.T) {
	server, _, _ := newTestServer(t)
	base := server.URL + "/api/v1/edls"

	resp := doJSON(t, http.MethodPost, base, model.EDL{
		EDLNumber: "EDL-2024-001",
		Location:  "station A",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"/EDL-2024-001", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var edl model.EDL
	decodeBody(t, resp, &edl)
	if edl.Location != "station A" || edl.Status != model.EDLStatusActive {
		t.Errorf("edl = %+v", edl)
	}

	resp = doJSON(t, http.MethodGet, base+"?location=station+A", nil)
	var list []model.EDL
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("filtered list count = %d, want 1", len(list))
	}

	resp = doJSON(t, http.MethodPatch, base+"/EDL-2024-001",
		map[string]string{"status": model.EDLStatusInactive})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	decodeBody(t, resp, &edl)
	if edl.Status != model.EDLStatusInactive {
		t.Errorf("patched status = %q", edl.Status)
	}

	resp = doJSON(t, http.MethodDelete, base+"/EDL-2024-001", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"/EDL-2024-001", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

// TestEDLEndpoints_notFoundAndBadInput covers the error mapping.
func TestEDLEndpoints_notFoundAndBadInput(t *testing.T) {
	server, _, _ := newTestServer(t)
	base := server.URL + "/api/v1/edls"

	resp := doJSON(t, http.MethodPatch, base+"/missing",
		map[string]string{"status": "inactive"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("patch missing status = %d, want 404", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["code"] != "EDL_NOT_FOUND" {
		t.Errorf("code = %q", body["code"])
	}

	req, _ := http.NewRequest(http.MethodPost, base, bytes.NewReader([]byte("not json")))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp2.StatusCode)
	}
}

// TestInspectionEndpoints verifies submission routes through the sync
// engine and the read side sees the stored record.
func TestInspectionEndpoints(t *testing.T) {
	server, _, _ := newTestServer(t)
	base := server.URL + "/api/v1/inspections"

	// Engine starts offline, so the submission must be queued.
	resp := doJSON(t, http.MethodPost, base, model.Inspection{
		EDLNumber:   "EDL-1",
		InspectorID: "insp-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}

	var created struct {
		Inspection model.Inspection `json:"inspection"`
		Queued     bool             `json:"queued"`
	}
	decodeBody(t, resp, &created)
	if !created.Queued {
		t.Error("offline submission should report queued")
	}
	if created.Inspection.Status != model.InspectionStatusPendingSync {
		t.Errorf("status = %q", created.Inspection.Status)
	}

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/%d", base, created.Inspection.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base+"?edlNumber=EDL-1", nil)
	var list []model.Inspection
	decodeBody(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("filtered list count = %d, want 1", len(list))
	}

	resp = doJSON(t, http.MethodGet, base+"/9999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing inspection status = %d, want 404", resp.StatusCode)
	}
}

// TestSyncEndpoints verifies trigger and status reflect engine state.
func TestSyncEndpoints(t *testing.T) {
	server, _, eng := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/v1/sync/status", nil)
	var status engine.Status
	decodeBody(t, resp, &status)
	if status.Online || status.Pending != 0 {
		t.Errorf("initial status = %+v", status)
	}

	doJSON(t, http.MethodPost, server.URL+"/api/v1/inspections", model.Inspection{EDLNumber: "EDL-1"})

	eng.SetOnline(context.Background(), true)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/v1/sync/trigger", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trigger status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, server.URL+"/api/v1/sync/status", nil)
	decodeBody(t, resp, &status)
	if !status.Online || status.Pending != 0 {
		t.Errorf("status after drain = %+v", status)
	}
}

// TestSettingsEndpoints verifies settings round-trip over HTTP.
func TestSettingsEndpoints(t *testing.T) {
	server, _, _ := newTestServer(t)
	base := server.URL + "/api/v1/settings"

	resp := doJSON(t, http.MethodPut, base+"/autoSync", true)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, base, nil)
	var all map[string]json.RawMessage
	decodeBody(t, resp, &all)
	if string(all["autoSync"]) != "true" {
		t.Errorf("settings = %v", all)
	}
}

// TestParseQREndpoint verifies both content forms reach the parser.
func TestParseQREndpoint(t *testing.T) {
	server, _, _ := newTestServer(t)
	url := server.URL + "/api/v1/qr/parse"

	resp := doJSON(t, http.MethodPost, url, map[string]string{
		"content": `{"type":"EDL","edlNumber":"EDL-1","location":"station A"}`,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("parse status = %d", resp.StatusCode)
	}
	var payload struct {
		EDLNumber string `json:"edlNumber"`
		Location  string `json:"location"`
	}
	decodeBody(t, resp, &payload)
	if payload.EDLNumber != "EDL-1" || payload.Location != "station A" {
		t.Errorf("payload = %+v", payload)
	}

	resp = doJSON(t, http.MethodPost, url, map[string]string{"content": "EDL-raw"})
	decodeBody(t, resp, &payload)
	if payload.EDLNumber != "EDL-raw" {
		t.Errorf("bare payload = %+v", payload)
	}

	resp = doJSON(t, http.MethodPost, url, map[string]string{"content": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty content status = %d, want 400", resp.StatusCode)
	}
}
