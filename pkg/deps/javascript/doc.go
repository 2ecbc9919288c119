// Package javascript reads package.json manifests.
//
// # Manifest Parsing
//
//	m, err := javascript.ReadManifest("path/to/project")
//	for _, d := range m.Dependencies {
//	    fmt.Println(d.Kind, d.Name, d.Range, m.Installed[d.Name])
//	}
//
// dependencies, devDependencies, optionalDependencies and peerDependencies
// are read in file order. A name declared in two sections appears twice,
// once per kind.
//
// # Installed Versions
//
// When node_modules/<name>/package.json exists its version is recorded in
// [deps.Manifest.Installed]; the peer graph prefers it over the declared
// range.
//
// # Workspaces
//
// [ReadWorkspace] also reads every member matched by the root "workspaces"
// field (array or {"packages": [...]} form, "!" patterns exclude). Members
// fall back to the root node_modules for hoisted packages.
//
// [deps.Manifest.Installed]: github.com/matzehuels/peerguard/pkg/deps.Manifest
package javascript
