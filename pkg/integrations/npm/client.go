package npm

import (
	"context"
	stderrors "errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/peerguard/pkg/buildinfo"
	"github.com/matzehuels/peerguard/pkg/httputil"
	"github.com/matzehuels/peerguard/pkg/integrations"
	"github.com/matzehuels/peerguard/pkg/pool"
	"github.com/matzehuels/peerguard/pkg/semver"
)

const acceptPackument = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8, */*"

// Metadata is the per-package answer from the registry. A package the
// registry does not know has an empty LatestVersion and no Versions.
type Metadata struct {
	LatestVersion string   `json:"latestVersion"`
	Versions      []string `json:"versions"`
}

// Found reports whether the registry knew the package.
func (m Metadata) Found() bool {
	return m.LatestVersion != "" || len(m.Versions) > 0
}

// ManyOptions controls [Client.ResolveManyPackageMetadata].
type ManyOptions struct {
	Concurrency int           // max requests in flight; 0 means pool.DefaultConcurrency
	Timeout     time.Duration // per-attempt timeout; 0 means integrations.DefaultTimeout
}

// Client talks to the npm registry, or to whichever registry .npmrc routes a
// package to.
type Client struct {
	*integrations.Client
	config *Config
}

// NewClient creates a client for cfg. peerCache stores per-version peer
// requirements, which never change once published; it may be nil.
func NewClient(cfg *Config, peerCache *httputil.Cache) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if peerCache != nil {
		peerCache = peerCache.Namespace("npm:peers:")
	}
	return &Client{
		Client: integrations.NewClient(peerCache, map[string]string{
			"Accept":     acceptPackument,
			"User-Agent": buildinfo.UserAgent(),
		}),
		config: cfg,
	}
}

// OfflineView returns a copy of c that serves only cached documents. The
// copy shares the configuration and the peer cache; c itself is unchanged.
func (c *Client) OfflineView() *Client {
	if c == nil || c.Client == nil {
		return c
	}
	base := *c.Client
	base.Offline = true
	return &Client{Client: &base, config: c.config}
}

// Config returns the registry configuration in use.
func (c *Client) Config() *Config { return c.config }

// PackageURL returns the packument URL for name on its registry. The slash
// in a scoped name is escaped as the registry expects.
func (c *Client) PackageURL(name string) string {
	return c.config.RegistryFor(name) + escapeName(name)
}

// VersionURL returns the manifest URL for one published version.
func (c *Client) VersionURL(name, version string) string {
	return c.PackageURL(name) + "/" + version
}

func escapeName(name string) string {
	return strings.Replace(name, "/", "%2f", 1)
}

func (c *Client) headersFor(url string) map[string]string {
	if auth := c.config.AuthFor(url); auth != "" {
		return map[string]string{"Authorization": auth}
	}
	return nil
}

// ResolvePackageMetadata fetches the latest version and the full version
// list for name. A 404 yields empty metadata and no error.
func (c *Client) ResolvePackageMetadata(ctx context.Context, name string, timeout time.Duration) (Metadata, error) {
	url := c.PackageURL(name)
	var doc packument
	if err := c.Fetch(ctx, url, c.headersFor(url), timeout, &doc); err != nil {
		if stderrors.Is(err, integrations.ErrNotFound) {
			return Metadata{Versions: []string{}}, nil
		}
		return Metadata{}, err
	}

	versions := slices.Collect(maps.Keys(doc.Versions))
	semver.Sort(versions)
	if versions == nil {
		versions = []string{}
	}
	return Metadata{LatestVersion: doc.DistTags["latest"], Versions: versions}, nil
}

// ResolveManyPackageMetadata resolves every distinct name through the
// bounded pool. Successes and failures are returned separately, so one
// failing package never hides metadata for the others.
func (c *Client) ResolveManyPackageMetadata(ctx context.Context, names []string, opts ManyOptions) (map[string]Metadata, map[string]error) {
	unique := dedupe(names)
	results := pool.Map(ctx, opts.Concurrency, unique, func(ctx context.Context, name string) (Metadata, error) {
		return c.ResolvePackageMetadata(ctx, name, opts.Timeout)
	})

	metadata := make(map[string]Metadata, len(unique))
	failures := map[string]error{}
	for i, r := range results {
		if r.Err != nil {
			failures[unique[i]] = r.Err
			continue
		}
		metadata[unique[i]] = r.Value
	}
	return metadata, failures
}

// FetchPeerRequirements returns the peerDependencies that name@version
// declares, minus peers marked optional in peerDependenciesMeta. A version
// the registry does not know yields an empty set.
func (c *Client) FetchPeerRequirements(ctx context.Context, name, version string, timeout time.Duration) (map[string]string, error) {
	url := c.VersionURL(name, version)
	peers := map[string]string{}
	err := c.Cached(ctx, url, false, &peers, func() error {
		var m versionManifest
		if err := c.Fetch(ctx, url, c.headersFor(url), timeout, &m); err != nil {
			return err
		}
		peers = m.requiredPeers()
		return nil
	})
	if stderrors.Is(err, integrations.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return peers, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

type packument struct {
	Name     string              `json:"name"`
	DistTags map[string]string   `json:"dist-tags"`
	Versions map[string]struct{} `json:"versions"`
}

type versionManifest struct {
	Name                 string                  `json:"name"`
	Version              string                  `json:"version"`
	PeerDependencies     map[string]string       `json:"peerDependencies"`
	PeerDependenciesMeta map[string]peerMetaInfo `json:"peerDependenciesMeta"`
}

type peerMetaInfo struct {
	Optional bool `json:"optional"`
}

func (m *versionManifest) requiredPeers() map[string]string {
	out := make(map[string]string, len(m.PeerDependencies))
	for name, rng := range m.PeerDependencies {
		if m.PeerDependenciesMeta[name].Optional {
			continue
		}
		out[name] = rng
	}
	return out
}
