// Package deps defines the dependency model shared by the update checker and
// the peer graph builder.
//
// A [Manifest] lists a project's declared [Dependency] values in declaration
// order, plus the versions actually installed on disk when known. Readers for
// concrete manifest formats live in subpackages and implement
// [ManifestParser]:
//
//   - [javascript]: package.json, with node_modules lookups and workspaces
//
// Declaration order matters: the peer resolver walks roots in the order they
// were first seen, and reports are emitted in input order.
//
// [javascript]: github.com/matzehuels/peerguard/pkg/deps/javascript
package deps
