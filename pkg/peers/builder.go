package peers

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/deps"
	"github.com/matzehuels/peerguard/pkg/integrations/npm"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/pool"
	"github.com/matzehuels/peerguard/pkg/semver"
	"github.com/matzehuels/peerguard/pkg/versions"
)

// CacheTarget is the version-cache target the builder reads and writes.
const CacheTarget = "latest"

// Registry is what the builder needs from a registry client.
// *npm.Client implements it.
type Registry interface {
	versions.Registry
	FetchPeerRequirements(ctx context.Context, name, version string, timeout time.Duration) (map[string]string, error)
}

// offlineViewer is a registry that can hand out a copy restricted to
// cached documents.
type offlineViewer interface {
	OfflineView() *npm.Client
}

// Options configures a [Builder].
type Options struct {
	Concurrency int               // registry requests in flight
	Timeout     time.Duration     // per-attempt registry timeout
	TTL         time.Duration     // version cache entry lifetime
	Offline     bool              // use only cached data
	Overrides   map[string]string // name -> version, wins over everything else
	Logger      *log.Logger
}

// Builder assembles a peer [Graph] from declared dependencies.
type Builder struct {
	registry Registry
	versions *versions.Resolver
	opts     Options
	logger   *log.Logger
}

// NewBuilder creates a Builder backed by registry and the version cache.
// registry may be nil when opts.Offline is set; peer requirements are then
// unknown for every package. In offline mode a registry that offers an
// offline view is only consulted through it.
func NewBuilder(registry Registry, vc *cache.VersionCache, opts Options) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if v, ok := registry.(offlineViewer); ok && opts.Offline {
		registry = v.OfflineView()
	}
	return &Builder{
		registry: registry,
		versions: versions.NewResolver(registry, vc, versions.Options{
			Concurrency: opts.Concurrency,
			Timeout:     opts.Timeout,
			TTL:         opts.TTL,
			Offline:     opts.Offline,
			Logger:      logger,
		}),
		opts:   opts,
		logger: logger,
	}
}

// declaration is the version information known for one root.
type declaration struct {
	name      string
	rng       string
	installed string
	peerOnly  bool
}

// Build resolves a version for every declared dependency, fetches the peer
// requirements of that exact version, and assembles the graph. Peer lookups
// that fail leave the package without requirements and list it in
// [Graph.Unknown]. Build fails only when the version cache cannot be written.
func (b *Builder) Build(ctx context.Context, manifests []deps.Manifest) (*Graph, error) {
	start := time.Now()
	decls := declarations(manifests)
	roots := make([]string, len(decls))
	declared := make(map[string]bool, len(decls))
	for i, d := range decls {
		roots[i] = d.name
		declared[d.name] = true
	}
	g := NewGraph(roots)

	// Registry metadata is only needed where neither an override nor an
	// installed version settles the question.
	var lookup []string
	for _, d := range decls {
		if b.opts.Overrides[d.name] == "" && d.installed == "" && semver.IsRegistryRange(d.rng) {
			lookup = append(lookup, d.name)
		}
	}
	res, err := b.versions.Lookup(ctx, lookup, CacheTarget)
	if err != nil {
		return nil, err
	}
	for name, err := range res.Errors {
		b.logger.Warn("no version metadata", "package", name, "err", err)
	}

	resolved := make(map[string]string, len(decls))
	for _, d := range decls {
		resolved[d.name] = b.resolveVersion(d, res.Answers[d.name])
	}

	peerSets := b.fetchPeers(ctx, decls, resolved, g)

	for _, d := range decls {
		if reqs := peerSets[d.name]; len(reqs) > 0 {
			g.AddNode(Node{Name: d.name, ResolvedVersion: resolved[d.name], PeerRequirements: reqs})
		}
	}
	for _, n := range g.Nodes() {
		for _, peer := range n.PeerNames() {
			if declared[peer] && !g.Has(peer) {
				g.AddNode(Node{Name: peer, ResolvedVersion: resolved[peer]})
			}
		}
	}

	b.logger.Debug("peer graph built", "nodes", g.Len(), "roots", len(roots), "unknown", len(g.Unknown()))
	observability.Engine().OnGraphBuilt(ctx, g.Len(), len(g.Unknown()), time.Since(start))
	return g, nil
}

// resolveVersion picks the version a declared dependency is considered to be
// at: override, then installed, then the highest published version inside
// the declared range, then the range's own version, then latest.
func (b *Builder) resolveVersion(d declaration, answer versions.Answer) string {
	if v := b.opts.Overrides[d.name]; v != "" {
		return v
	}
	if d.installed != "" {
		return d.installed
	}
	if v, ok := semver.MaxSatisfying(d.rng, answer.Versions); ok {
		return v
	}
	if v, ok := semver.BaseVersion(d.rng); ok && semver.IsRegistryRange(d.rng) {
		return v.String()
	}
	return answer.LatestVersion
}

func (b *Builder) fetchPeers(ctx context.Context, decls []declaration, resolved map[string]string, g *Graph) map[string]map[string]string {
	var targets []declaration
	for _, d := range decls {
		if resolved[d.name] == "" {
			continue
		}
		if b.opts.Overrides[d.name] == "" && !semver.IsRegistryRange(d.rng) && d.installed == "" {
			continue
		}
		targets = append(targets, d)
	}

	if b.registry == nil {
		for _, d := range targets {
			g.MarkUnknown(d.name)
		}
		b.logger.Debug("no registry, peer requirements unknown", "packages", len(targets))
		return map[string]map[string]string{}
	}

	results := pool.Map(ctx, b.opts.Concurrency, targets, func(ctx context.Context, d declaration) (map[string]string, error) {
		return b.registry.FetchPeerRequirements(ctx, d.name, resolved[d.name], b.opts.Timeout)
	})

	out := make(map[string]map[string]string, len(targets))
	for i, r := range results {
		name := targets[i].name
		if r.Err != nil {
			b.logger.Warn("peer requirements unavailable", "package", name, "version", resolved[name], "err", r.Err)
			g.MarkUnknown(name)
			continue
		}
		out[name] = r.Value
	}
	return out
}

// declarations collects one entry per distinct name in first-seen order.
// The range comes from the first non-peer declaration when there is one,
// since a peer range describes consumers rather than what is installed.
func declarations(manifests []deps.Manifest) []declaration {
	installed := deps.Installed(manifests)
	index := map[string]int{}
	var out []declaration
	for _, dep := range deps.Declared(manifests) {
		i, seen := index[dep.Name]
		if !seen {
			index[dep.Name] = len(out)
			out = append(out, declaration{
				name:      dep.Name,
				rng:       dep.Range,
				installed: installed[dep.Name],
				peerOnly:  dep.Kind == deps.KindPeer,
			})
			continue
		}
		if out[i].peerOnly && dep.Kind != deps.KindPeer {
			out[i].rng = dep.Range
			out[i].peerOnly = false
		}
	}
	return out
}
