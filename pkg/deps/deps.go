package deps

import "fmt"

// Kind classifies where a dependency was declared.
type Kind string

const (
	KindRuntime  Kind = "runtime"
	KindDev      Kind = "dev"
	KindOptional Kind = "optional"
	KindPeer     Kind = "peer"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindRuntime, KindDev, KindOptional, KindPeer:
		return k, nil
	}
	return "", fmt.Errorf("unknown dependency kind %q", s)
}

// Dependency is one declared dependency. Range is the raw string from the
// manifest ("^1.2.3", "workspace:*", a git URL, ...).
type Dependency struct {
	Name  string `json:"name"`
	Range string `json:"range"`
	Kind  Kind   `json:"kind"`
}

// Manifest is the dependency view of one project directory.
type Manifest struct {
	// Dir is the directory holding the manifest file.
	Dir string `json:"dir,omitempty"`
	// Name and Version describe the project itself.
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	// Dependencies in declaration order.
	Dependencies []Dependency `json:"dependencies"`
	// Installed maps a dependency name to the version found on disk.
	Installed map[string]string `json:"installed,omitempty"`
}

// Declared returns every dependency across manifests in first-seen order,
// keeping duplicates, so each (manifest, name, kind) appears once.
func Declared(manifests []Manifest) []Dependency {
	var out []Dependency
	for _, m := range manifests {
		out = append(out, m.Dependencies...)
	}
	return out
}

// Names returns the distinct dependency names across manifests in
// first-seen order.
func Names(manifests []Manifest) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range manifests {
		for _, d := range m.Dependencies {
			if !seen[d.Name] {
				seen[d.Name] = true
				out = append(out, d.Name)
			}
		}
	}
	return out
}

// Installed merges the installed versions across manifests. The first
// manifest that reports a name wins.
func Installed(manifests []Manifest) map[string]string {
	out := map[string]string{}
	for _, m := range manifests {
		for name, v := range m.Installed {
			if _, ok := out[name]; !ok {
				out[name] = v
			}
		}
	}
	return out
}
