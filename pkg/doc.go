// Package pkg holds the peerguard libraries.
//
// # Overview
//
// peerguard answers two questions about an npm project before anything is
// installed: which dependency updates does an update policy allow, and which
// peer dependency requirements are broken by the versions in use (or by a
// simulated upgrade). The libraries are organized as:
//
//  1. [semver] - version parsing, range matching, policy targets
//  2. [deps] - manifest model and the package.json reader
//  3. [integrations] - registry HTTP client and the npm registry
//  4. [cache] - the version cache (SQLite, JSON or Redis)
//  5. [versions] - cache-first metadata lookup shared by the engines
//  6. [update] and [peers] - the update checker and the peer resolver
//
// # Data flow
//
//	package.json (+ node_modules)
//	         ↓
//	    [deps/javascript] manifests
//	         ↓
//	    [versions] lookup ← [cache] ← [integrations/npm]
//	         ↓
//	    [update] report      [peers] graph → conflicts
//
// # Quick Start
//
//	vc, _ := cache.Open(ctx, cache.Options{})
//	defer vc.Close()
//	cfg, _ := npm.LoadConfig(home, dir)
//	reg := npm.NewClient(cfg, nil)
//
//	m, _ := javascript.ReadManifest(dir)
//	report, _ := update.NewChecker(reg, vc, update.Options{Policy: semver.PolicyMinor}).
//	    Check(ctx, m.Dependencies)
//
//	g, _ := peers.NewBuilder(reg, vc, peers.Options{}).Build(ctx, []deps.Manifest{*m})
//	conflicts := peers.Resolve(g)
//
// Supporting packages: [pool] bounds registry concurrency, [httputil]
// provides the file cache and retry helpers, [errors] the error codes,
// [observability] metrics hooks, [config] the TOML settings and
// [buildinfo] version stamps.
package pkg
