package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/integrations/npm"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/peers"
	"github.com/matzehuels/peerguard/pkg/semver"
	"github.com/matzehuels/peerguard/pkg/update"
)

type fakeRegistry struct {
	metadata map[string]npm.Metadata
	peers    map[string]map[string]string
}

func (f *fakeRegistry) ResolveManyPackageMetadata(_ context.Context, names []string, _ npm.ManyOptions) (map[string]npm.Metadata, map[string]error) {
	out := map[string]npm.Metadata{}
	fails := map[string]error{}
	for _, n := range names {
		if m, ok := f.metadata[n]; ok {
			out[n] = m
			continue
		}
		fails[n] = errors.New(errors.ErrCodeRegistry, "GET %s failed", n)
	}
	return out, fails
}

func (f *fakeRegistry) FetchPeerRequirements(_ context.Context, name, version string, _ time.Duration) (map[string]string, error) {
	return f.peers[name+"@"+version], nil
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	vc, err := cache.Open(context.Background(), cache.Options{Path: t.TempDir(), Backend: cache.BackendJSON})
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() { vc.Close() })

	reg := &fakeRegistry{
		metadata: map[string]npm.Metadata{
			"react":     {LatestVersion: "19.0.0", Versions: []string{"18.2.0", "18.3.1", "19.0.0"}},
			"react-dom": {LatestVersion: "19.0.0", Versions: []string{"18.2.0", "18.3.1", "19.0.0"}},
		},
		peers: map[string]map[string]string{
			"react-dom@18.3.1": {"react": "^18.3.1"},
			"react-dom@19.0.0": {"react": "^19.0.0"},
		},
	}
	opts.Logger = log.New(io.Discard)
	return New(reg, vc, opts)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Cache.Backend != cache.BackendJSON {
		t.Errorf("health = %+v", resp)
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := do(t, s, http.MethodGet, "/healthz", "")
	if id := rec.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("generated request ID = %q, want a UUID", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("echoed request ID = %q, want abc-123", got)
	}
}

func TestCheck(t *testing.T) {
	s := newTestServer(t, Options{})

	tests := []struct {
		policy      string
		wantUpdates int
	}{
		{"major", 1},
		{"patch", 0},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			body := `{"dependencies":[{"name":"react","range":"^18.2.0","kind":"runtime"}],"policy":"` + tt.policy + `"}`
			rec := do(t, s, http.MethodPost, "/v1/check", body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			var report update.Report
			if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
				t.Fatal(err)
			}
			if len(report.Updates) != tt.wantUpdates {
				t.Fatalf("updates = %+v, want %d", report.Updates, tt.wantUpdates)
			}
			if tt.wantUpdates == 1 {
				u := report.Updates[0]
				if u.ToRange != "^19.0.0" || u.DiffType != semver.DiffMajor || u.Autofix {
					t.Errorf("update = %+v", u)
				}
			}
		})
	}
}

func TestCheckRegistryFailureIsPerPackage(t *testing.T) {
	s := newTestServer(t, Options{})
	body := `{"dependencies":[{"name":"missing-pkg","range":"^1.0.0","kind":"runtime"}]}`
	rec := do(t, s, http.MethodPost, "/v1/check", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report update.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if len(report.Errors) != 1 || report.Errors[0].Code != errors.ErrCodeRegistry {
		t.Errorf("errors = %+v", report.Errors)
	}
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t, Options{})
	tests := []struct {
		name string
		path string
		body string
		code errors.Code
	}{
		{"malformed json", "/v1/check", `{`, errors.ErrCodeInvalidInput},
		{"unknown field", "/v1/check", `{"deps":[]}`, errors.ErrCodeInvalidInput},
		{"bad policy", "/v1/check", `{"dependencies":[],"policy":"yolo"}`, errors.ErrCodeInvalidPolicy},
		{"bad name", "/v1/check", `{"dependencies":[{"name":"Bad Name","range":"1.0.0"}]}`, errors.ErrCodeInvalidInput},
		{"no manifests", "/v1/peers", `{"manifests":[]}`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestPeers(t *testing.T) {
	s := newTestServer(t, Options{})
	body := `{"manifests":[{"dependencies":[
		{"name":"react","range":"^18.2.0","kind":"runtime"},
		{"name":"react-dom","range":"^18.2.0","kind":"runtime"}],
		"installed":{"react":"18.3.1","react-dom":"18.3.1"}}],
		"overrides":{"react":"19.0.0"}}`

	rec := do(t, s, http.MethodPost, "/v1/peers", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp PeersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Errors != 1 || len(resp.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v", resp.Conflicts)
	}
	c := resp.Conflicts[0]
	if c.Requester != "react-dom" || c.Peer != "react" || c.Severity != peers.SeverityError || c.ResolvedVersion != "19.0.0" {
		t.Errorf("conflict = %+v", c)
	}
}

func TestPeersOfflineWithoutRegistry(t *testing.T) {
	vc, err := cache.Open(context.Background(), cache.Options{Path: t.TempDir(), Backend: cache.BackendJSON})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { vc.Close() })
	s := New(nil, vc, Options{Offline: true, Logger: log.New(io.Discard)})

	body := `{"manifests":[{"dependencies":[{"name":"react-dom","range":"^18.2.0","kind":"runtime"}],
		"installed":{"react-dom":"18.3.1"}}]}`
	rec := do(t, s, http.MethodPost, "/v1/peers", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp PeersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if unknown := resp.Graph.Unknown(); len(unknown) != 1 || unknown[0] != "react-dom" {
		t.Errorf("Unknown() = %v, want [react-dom]", unknown)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks, err := observability.NewPrometheusHooks(reg)
	if err != nil {
		t.Fatal(err)
	}
	observability.Register(hooks)
	t.Cleanup(observability.Reset)

	s := newTestServer(t, Options{Gatherer: reg})
	do(t, s, http.MethodPost, "/v1/check", `{"dependencies":[{"name":"react","range":"^18.2.0"}],"policy":"major"}`)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("peerguard_")) {
		t.Errorf("metrics output has no peerguard series:\n%s", rec.Body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	s := newTestServer(t, Options{})
	if rec := do(t, s, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeInvalidInput:     http.StatusBadRequest,
		errors.ErrCodeOfflineMiss:      http.StatusConflict,
		errors.ErrCodeCacheUnavailable: http.StatusServiceUnavailable,
		errors.ErrCodeUnauthorized:     http.StatusBadGateway,
		errors.ErrCodeInternal:         http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
