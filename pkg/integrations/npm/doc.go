// Package npm provides a client for the npm registry API and for any
// npm-compatible registry configured through .npmrc.
//
// # Usage
//
//	cfg, err := npm.LoadConfig(home, projectDir)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := npm.NewClient(cfg, peerCache)
//
//	meta, err := client.ResolvePackageMetadata(ctx, "react", 5*time.Second)
//	fmt.Println(meta.LatestVersion, len(meta.Versions))
//
// # Registry Selection
//
// A scoped package "@org/name" goes to the registry configured as
// "@org:registry" when present, otherwise to "registry" (default
// https://registry.npmjs.org/). Credentials configured as
// "//host/path/:_authToken" (Bearer) or "//host/path/:_auth" (Basic) are sent
// to every URL under the longest matching prefix.
//
// # Not Found
//
// A 404 is not an error: [Client.ResolvePackageMetadata] returns empty
// [Metadata] and [Client.FetchPeerRequirements] an empty set.
//
// # Peer Requirements
//
// Peer requirements are declared per version, so [Client.FetchPeerRequirements]
// reads the version manifest rather than the packument. Peers marked optional
// in peerDependenciesMeta are left out. Results are cached on disk because a
// published version never changes.
package npm
