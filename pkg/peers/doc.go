// Package peers builds the peer-dependency graph of a project and finds the
// peer requirements it fails to satisfy.
//
// # Graph
//
// A [Graph] holds a node for every package that declares peer requirements,
// plus every declared package referenced as a peer. Packages with no peers
// that nobody references are left out; they cannot take part in a conflict.
// [Graph.Roots] lists direct dependencies in the order they were declared.
//
// # Building
//
// [Builder.Build] decides a version for each declared dependency (override,
// installed, highest published version in range, the range's own version,
// latest), then fetches the peer requirements of exactly that version.
// Lookups that fail leave the package without requirements and record it in
// [Graph.Unknown]: missing data is not evidence of no peers.
//
// # Resolving
//
// [Resolve] walks the graph breadth-first from the roots:
//
//   - a peer with no node is an error, resolved as "(not installed)"
//   - a resolved version outside the required range is an error when the
//     major versions differ or either side cannot be parsed
//   - otherwise it is a warning
//
// Errors sort before warnings, then by requester, so output is stable
// across runs.
package peers
