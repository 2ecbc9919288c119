// Package versions answers "what versions of these packages exist" by
// combining the version cache with the registry client.
//
// A lookup consults the cache first, batches every miss into one pooled
// registry call, writes fresh answers back, and falls back to an expired
// entry when the registry fails. In offline mode the registry is never
// called and expired entries are used as-is.
package versions

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/integrations/npm"
)

// Registry resolves package metadata in bulk. *npm.Client implements it.
type Registry interface {
	ResolveManyPackageMetadata(ctx context.Context, names []string, opts npm.ManyOptions) (map[string]npm.Metadata, map[string]error)
}

// Options configures a [Resolver].
type Options struct {
	Concurrency int           // registry requests in flight
	Timeout     time.Duration // per-attempt registry timeout
	TTL         time.Duration // lifetime of cache entries written; default cache.DefaultTTL
	Offline     bool          // never call the registry
	Logger      *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.TTL <= 0 {
		opts.TTL = cache.DefaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}

// Source says where an answer came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRegistry Source = "registry"
	SourceStale    Source = "stale"
)

// Answer is the metadata for one package and its provenance.
type Answer struct {
	npm.Metadata
	Source Source
}

// Result partitions a lookup: every requested name is in exactly one of
// Answers or Errors.
type Result struct {
	Answers map[string]Answer
	Errors  map[string]error
}

// Resolver looks up package metadata through the cache and the registry.
type Resolver struct {
	registry Registry
	cache    *cache.VersionCache
	opts     Options
}

// NewResolver creates a Resolver. registry may be nil in offline mode.
func NewResolver(registry Registry, vc *cache.VersionCache, opts Options) *Resolver {
	if vc == nil {
		vc = cache.NewNull()
	}
	return &Resolver{registry: registry, cache: vc, opts: opts.WithDefaults()}
}

// Lookup resolves names under the given cache target. Names are expected to
// be distinct. It returns an error only when a fresh answer cannot be
// written to the cache.
func (r *Resolver) Lookup(ctx context.Context, names []string, target string) (*Result, error) {
	res := &Result{Answers: map[string]Answer{}, Errors: map[string]error{}}
	stale := map[string]*cache.Entry{}
	var misses []string
	logger := r.opts.Logger

	for _, name := range names {
		e, err := r.cache.GetValid(ctx, name, target)
		if err != nil {
			logger.Debug("cache read failed", "package", name, "err", err)
		}
		if e != nil {
			res.Answers[name] = answerFromEntry(e, SourceCache)
			continue
		}
		if old, _ := r.cache.GetAny(ctx, name, target); old != nil {
			stale[name] = old
		}
		misses = append(misses, name)
	}

	if len(misses) == 0 {
		return res, nil
	}

	if r.opts.Offline || r.registry == nil {
		for _, name := range misses {
			if e, ok := stale[name]; ok {
				res.Answers[name] = answerFromEntry(e, SourceStale)
				continue
			}
			res.Errors[name] = errors.New(errors.ErrCodeOfflineMiss, "%s has no cached versions", name)
		}
		return res, nil
	}

	logger.Debug("fetching metadata", "packages", len(misses), "target", target)
	fetched, failures := r.registry.ResolveManyPackageMetadata(ctx, misses, npm.ManyOptions{
		Concurrency: r.opts.Concurrency,
		Timeout:     r.opts.Timeout,
	})

	ttl := int64(r.opts.TTL / time.Second)
	for _, name := range misses {
		if m, ok := fetched[name]; ok {
			if err := r.cache.Set(ctx, name, target, m.LatestVersion, m.Versions, ttl); err != nil {
				return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "cache %s", name)
			}
			res.Answers[name] = Answer{Metadata: m, Source: SourceRegistry}
			continue
		}
		err := failures[name]
		if e, ok := stale[name]; ok {
			logger.Warn("registry failed, using stale cache", "package", name, "fetched", e.FetchedAt, "err", err)
			res.Answers[name] = answerFromEntry(e, SourceStale)
			continue
		}
		res.Errors[name] = err
	}
	return res, nil
}

func answerFromEntry(e *cache.Entry, src Source) Answer {
	return Answer{
		Metadata: npm.Metadata{LatestVersion: e.LatestVersion, Versions: e.AvailableVersions},
		Source:   src,
	}
}
