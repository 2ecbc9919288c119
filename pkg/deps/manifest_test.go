package deps

import (
	"slices"
	"testing"
)

type mockManifestParser struct {
	typeName string
	file     string
}

func (m *mockManifestParser) Type() string                    { return m.typeName }
func (m *mockManifestParser) Supports(filename string) bool   { return filename == m.file }
func (m *mockManifestParser) Parse(string) (*Manifest, error) { return &Manifest{}, nil }

func TestDetectManifest(t *testing.T) {
	pkg := &mockManifestParser{typeName: "package.json", file: "package.json"}
	deno := &mockManifestParser{typeName: "deno", file: "deno.json"}

	tests := []struct {
		name     string
		path     string
		wantType string
		wantErr  bool
	}{
		{"package.json", "/project/package.json", "package.json", false},
		{"deno", "deno.json", "deno", false},
		{"unsupported", "/project/Cargo.toml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DetectManifest(tt.path, pkg, deno)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectManifest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Type() != tt.wantType {
				t.Errorf("DetectManifest() type = %s, want %s", p.Type(), tt.wantType)
			}
		})
	}
}

func TestNamesFirstSeenOrder(t *testing.T) {
	manifests := []Manifest{
		{Dependencies: []Dependency{
			{Name: "react", Range: "^18.2.0", Kind: KindRuntime},
			{Name: "typescript", Range: "^5.4.0", Kind: KindDev},
			{Name: "react", Range: "^18.0.0", Kind: KindPeer},
		}},
		{Dependencies: []Dependency{
			{Name: "zod", Range: "^3.0.0", Kind: KindRuntime},
			{Name: "typescript", Range: "^5.0.0", Kind: KindDev},
		}},
	}

	if got, want := Names(manifests), []string{"react", "typescript", "zod"}; !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got := len(Declared(manifests)); got != 5 {
		t.Errorf("Declared() returned %d, want 5", got)
	}
}

func TestInstalledFirstWins(t *testing.T) {
	got := Installed([]Manifest{
		{Installed: map[string]string{"react": "18.3.1"}},
		{Installed: map[string]string{"react": "17.0.2", "zod": "3.23.8"}},
	})
	if got["react"] != "18.3.1" || got["zod"] != "3.23.8" {
		t.Errorf("Installed() = %v", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []string{"runtime", "dev", "optional", "peer"} {
		if _, err := ParseKind(k); err != nil {
			t.Errorf("ParseKind(%q) error: %v", k, err)
		}
	}
	if _, err := ParseKind("bundled"); err == nil {
		t.Error("ParseKind(bundled) should fail")
	}
}
