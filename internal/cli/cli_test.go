package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/update"
)

func npmRegistry(t *testing.T) *httptest.Server {
	t.Helper()
	packument := func(name, latest string, versions ...string) map[string]any {
		vs := map[string]any{}
		for _, v := range versions {
			vs[v] = map[string]any{}
		}
		return map[string]any{"name": name, "dist-tags": map[string]string{"latest": latest}, "versions": vs}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/react":
			json.NewEncoder(w).Encode(packument("react", "19.0.0", "18.2.0", "18.3.1", "19.0.0"))
		case "/react-dom":
			json.NewEncoder(w).Encode(packument("react-dom", "19.0.0", "18.2.0", "18.3.1", "19.0.0"))
		case "/react-dom/18.3.1":
			json.NewEncoder(w).Encode(map[string]any{
				"name":             "react-dom",
				"version":          "18.3.1",
				"peerDependencies": map[string]string{"react": "^18.3.1"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newProject creates a project using registryURL, with react and react-dom
// 18.3.1 installed. HOME and the XDG directories point into the test's temp
// space so no user configuration leaks in.
func newProject(t *testing.T, registryURL string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{
  "name": "app",
  "dependencies": {"react": "^18.2.0", "react-dom": "^18.2.0"}
}`)
	writeFile(t, filepath.Join(dir, "node_modules", "react", "package.json"), `{"name":"react","version":"18.3.1"}`)
	writeFile(t, filepath.Join(dir, "node_modules", "react-dom", "package.json"), `{"name":"react-dom","version":"18.3.1"}`)
	writeFile(t, filepath.Join(dir, ".npmrc"), "registry=${TEST_REGISTRY}\n")
	writeFile(t, filepath.Join(dir, ".env"), "TEST_REGISTRY="+registryURL+"/\n")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := New(&out, io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	srv := npmRegistry(t)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	out, err := runCLI(t, "check", "-C", dir, "--policy", "major", "--json")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var report update.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(report.Updates) != 2 {
		t.Fatalf("updates = %+v, want react and react-dom", report.Updates)
	}
	if u := report.Updates[0]; u.Name != "react" || u.ToRange != "^19.0.0" {
		t.Errorf("first update = %+v", u)
	}

	out, err = runCLI(t, "check", "-C", dir, "--policy", "patch", "--json")
	if err != nil {
		t.Fatalf("check patch: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Updates) != 0 {
		t.Errorf("patch updates = %+v, want none", report.Updates)
	}
}

func TestCheckOffline(t *testing.T) {
	srv := npmRegistry(t)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	_, err := runCLI(t, "check", "-C", dir, "--offline", "--json")
	if !errors.Is(err, errors.ErrCodeOfflineMiss) {
		t.Fatalf("cold offline check error = %v, want OFFLINE_CACHE_MISS", err)
	}

	// Entries are keyed by policy, so warm the one queried offline.
	if _, err := runCLI(t, "check", "-C", dir, "--policy", "major", "--json"); err != nil {
		t.Fatalf("warming check: %v", err)
	}
	srv.Close()

	out, err := runCLI(t, "check", "-C", dir, "--offline", "--policy", "major", "--json")
	if err != nil {
		t.Fatalf("warm offline check: %v", err)
	}
	var report update.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Updates) != 2 || len(report.Errors) != 0 {
		t.Errorf("offline report = %+v", report)
	}
}

func TestPeersCommandSimulate(t *testing.T) {
	srv := npmRegistry(t)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	out, err := runCLI(t, "peers", "-C", dir, "--json")
	if err != nil {
		t.Fatalf("peers: %v", err)
	}
	var res peersResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Conflicts) != 0 {
		t.Fatalf("installed tree conflicts = %+v", res.Conflicts)
	}

	out, err = runCLI(t, "peers", "-C", dir, "--simulate", "react@19.0.0", "--json")
	if !stderrors.Is(err, ErrPeerConflicts) {
		t.Fatalf("simulated peers error = %v, want ErrPeerConflicts", err)
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Errors != 1 || res.Conflicts[0].Requester != "react-dom" || res.Conflicts[0].ResolvedVersion != "19.0.0" {
		t.Errorf("conflicts = %+v", res.Conflicts)
	}

	if _, err := runCLI(t, "peers", "-C", dir, "--simulate", "react@19.0.0", "--warn-only", "--json"); err != nil {
		t.Errorf("--warn-only error = %v", err)
	}
}

func TestPeersCommandBadOverride(t *testing.T) {
	dir := newProject(t, "http://127.0.0.1:1")
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	_, err := runCLI(t, "peers", "-C", dir, "--simulate", "react")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestCachePathPrecedence(t *testing.T) {
	dir := newProject(t, "http://127.0.0.1:1")
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	out, err := runCLI(t, "cache", "path", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName); strings.TrimSpace(out) != want {
		t.Errorf("default cache path = %q, want %q", out, want)
	}

	writeFile(t, filepath.Join(dir, ".peerguard.toml"), "[cache]\ndir = \"/from/config\"\n")
	out, _ = runCLI(t, "cache", "path", "-C", dir)
	if strings.TrimSpace(out) != "/from/config" {
		t.Errorf("config cache path = %q", out)
	}

	out, _ = runCLI(t, "cache", "path", "-C", dir, "--cache-dir", "/from/flag")
	if strings.TrimSpace(out) != "/from/flag" {
		t.Errorf("flag cache path = %q", out)
	}
}

func TestCacheStatusAndClear(t *testing.T) {
	srv := npmRegistry(t)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	if _, err := runCLI(t, "check", "-C", dir, "--cache-backend", "json", "--json"); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "cache", "status", "-C", dir, "--cache-backend", "json", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var st cacheStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatal(err)
	}
	if st.Backend != "json" || st.Entries != 2 {
		t.Errorf("status = %+v, want 2 json entries", st)
	}

	if _, err := runCLI(t, "cache", "clear", "-C", dir, "--cache-backend", "json"); err != nil {
		t.Fatal(err)
	}
	out, _ = runCLI(t, "cache", "status", "-C", dir, "--cache-backend", "json", "--json")
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatal(err)
	}
	if st.Entries != 0 {
		t.Errorf("entries after clear = %d", st.Entries)
	}
}

func TestInvalidPolicyFlag(t *testing.T) {
	dir := newProject(t, "http://127.0.0.1:1")
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	_, err := runCLI(t, "check", "-C", dir, "--policy", "bleeding")
	if !errors.Is(err, errors.ErrCodeInvalidPolicy) {
		t.Errorf("error = %v, want INVALID_POLICY", err)
	}
}

func TestPolicyFlagReplacesInvalidConfig(t *testing.T) {
	srv := npmRegistry(t)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })
	writeFile(t, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "peerguard", "config.toml"), `policy = "bleeding"`)

	if _, err := runCLI(t, "check", "-C", dir, "--json"); !errors.Is(err, errors.ErrCodeInvalidPolicy) {
		t.Errorf("config policy only: error = %v, want INVALID_POLICY", err)
	}
	if out, err := runCLI(t, "check", "-C", dir, "--policy", "major", "--json"); err != nil {
		t.Errorf("--policy should replace the config value: %v\n%s", err, out)
	}
}

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"react@19.0.0", " @types/react@19.0.1 ", "react@19.1.0", "JSONStream@1.3.5", "pkg@2.0.0-RC.1"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"react": "19.1.0", "@types/react": "19.0.1", "JSONStream": "1.3.5", "pkg": "2.0.0-RC.1"}
	if !maps.Equal(got, want) {
		t.Errorf("overrides = %v, want %v", got, want)
	}
	if _, err := parseOverrides([]string{"@Types/react@19.0.1"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("uppercase scope: err = %v, want INVALID_INPUT", err)
	}
	if got, _ := parseOverrides(nil); got != nil {
		t.Errorf("nil input gave %v", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"version"`) {
		t.Errorf("version output = %q", out)
	}
}

func TestDoctorOffline(t *testing.T) {
	dir := newProject(t, "http://127.0.0.1:1")
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })
	writeFile(t, filepath.Join(dir, ".peerguard.toml"), "offline = true\n")

	out, err := runCLI(t, "doctor", "-C", dir, "--json")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	var rep doctorReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Registry != "http://127.0.0.1:1/" || rep.Reachable != nil || len(rep.ConfigFiles) != 1 {
		t.Errorf("doctor report = %+v", rep)
	}
}

func TestDoctorUnreachableRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	out, err := runCLI(t, "doctor", "-C", dir, "--json")
	if err == nil {
		t.Fatal("doctor succeeded against a registry answering 403")
	}
	var rep doctorReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Reachable == nil || *rep.Reachable || len(rep.Problems) != 1 {
		t.Errorf("doctor report = %+v", rep)
	}
}

func TestCheckManifestFile(t *testing.T) {
	srv := npmRegistry(t)
	dir := newProject(t, srv.URL)
	t.Cleanup(func() { os.Unsetenv("TEST_REGISTRY") })

	out, err := runCLI(t, "check", "-C", filepath.Join(dir, "package.json"), "--policy", "major", "--json")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var report update.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Updates) != 2 {
		t.Errorf("updates = %+v", report.Updates)
	}

	writeFile(t, filepath.Join(dir, "go.mod"), "module x\n")
	if _, err := runCLI(t, "check", "-C", filepath.Join(dir, "go.mod")); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("go.mod error = %v, want INVALID_INPUT", err)
	}
}
