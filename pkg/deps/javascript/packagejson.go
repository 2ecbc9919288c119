package javascript

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/peerguard/pkg/deps"
	"github.com/matzehuels/peerguard/pkg/errors"
)

// FileName is the manifest file this package reads.
const FileName = "package.json"

// dependency sections in package.json and the kind each maps to.
var sections = map[string]deps.Kind{
	"dependencies":         deps.KindRuntime,
	"devDependencies":      deps.KindDev,
	"optionalDependencies": deps.KindOptional,
	"peerDependencies":     deps.KindPeer,
}

// PackageJSON parses package.json files. It extracts dependencies,
// devDependencies, optionalDependencies and peerDependencies.
type PackageJSON struct{}

func (PackageJSON) Type() string              { return FileName }
func (PackageJSON) Supports(name string) bool { return strings.EqualFold(name, FileName) }

// Parse reads dir/package.json. See [ReadManifest].
func (PackageJSON) Parse(dir string) (*deps.Manifest, error) { return ReadManifest(dir) }

var _ deps.ManifestParser = PackageJSON{}

// ReadManifest reads dir/package.json, keeping dependencies in the order
// they appear in the file, and records the version of every dependency
// installed under dir/node_modules.
func ReadManifest(dir string) (*deps.Manifest, error) {
	m, _, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	fillInstalled(m, dir)
	return m, nil
}

// ReadWorkspace reads the root manifest in dir and every workspace member
// it lists. Members see packages hoisted to the root node_modules. The root
// manifest comes first, members follow in sorted path order.
func ReadWorkspace(dir string) ([]deps.Manifest, error) {
	root, patterns, err := readManifest(dir)
	if err != nil {
		return nil, err
	}
	fillInstalled(root, dir)
	out := []deps.Manifest{*root}

	members, err := expandWorkspaces(dir, patterns)
	if err != nil {
		return nil, err
	}
	for _, member := range members {
		m, _, err := readManifest(member)
		if err != nil {
			return nil, err
		}
		fillInstalled(m, member, dir)
		out = append(out, *m)
	}
	return out, nil
}

func readManifest(dir string) (*deps.Manifest, []string, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "no %s in %s", FileName, dir)
		}
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	pf, err := parsePackageJSON(data)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	m := &deps.Manifest{
		Dir:          dir,
		Name:         pf.Name,
		Version:      pf.Version,
		Dependencies: pf.Dependencies,
		Installed:    map[string]string{},
	}
	if m.Dependencies == nil {
		m.Dependencies = []deps.Dependency{}
	}
	return m, pf.Workspaces, nil
}

type packageFile struct {
	Name         string
	Version      string
	Dependencies []deps.Dependency
	Workspaces   []string
}

// parsePackageJSON walks the top-level object with a token decoder so that
// dependency maps keep their declaration order.
func parsePackageJSON(data []byte) (*packageFile, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	pf := &packageFile{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		switch key {
		case "name":
			err = dec.Decode(&pf.Name)
		case "version":
			err = dec.Decode(&pf.Version)
		case "workspaces":
			pf.Workspaces, err = decodeWorkspaces(dec)
		default:
			if kind, ok := sections[key]; ok {
				err = decodeSection(dec, kind, &pf.Dependencies)
			} else {
				var skip json.RawMessage
				err = dec.Decode(&skip)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	}
	return pf, expectDelim(dec, '}')
}

func decodeSection(dec *json.Decoder, kind deps.Kind, out *[]deps.Dependency) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var rng string
		if err := dec.Decode(&rng); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*out = append(*out, deps.Dependency{Name: name, Range: rng, Kind: kind})
	}
	return expectDelim(dec, '}')
}

// decodeWorkspaces accepts both the array form and the {"packages": [...]} form.
func decodeWorkspaces(dec *json.Decoder) ([]string, error) {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj.Packages, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func expandWorkspaces(root string, patterns []string) ([]string, error) {
	excluded := map[string]bool{}
	for _, p := range patterns {
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			matches, err := filepath.Glob(filepath.Join(root, neg))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "workspace pattern %q", p)
			}
			for _, m := range matches {
				excluded[m] = true
			}
		}
	}

	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(root, p))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "workspace pattern %q", p)
		}
		for _, m := range matches {
			if seen[m] || excluded[m] {
				continue
			}
			if _, err := os.Stat(filepath.Join(m, FileName)); err != nil {
				continue
			}
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// fillInstalled records the installed version of each dependency, looking
// in each dir's node_modules in turn.
func fillInstalled(m *deps.Manifest, dirs ...string) {
	for _, d := range m.Dependencies {
		if _, ok := m.Installed[d.Name]; ok {
			continue
		}
		for _, dir := range dirs {
			if v, ok := InstalledVersion(dir, d.Name); ok {
				m.Installed[d.Name] = v
				break
			}
		}
	}
}

// InstalledVersion reads dir/node_modules/<name>/package.json and returns its
// version field.
func InstalledVersion(dir, name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(dir, "node_modules", filepath.FromSlash(name), FileName))
	if err != nil {
		return "", false
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if json.Unmarshal(data, &pkg) != nil || pkg.Version == "" {
		return "", false
	}
	return pkg.Version, true
}
