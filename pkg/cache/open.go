package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// File names under the cache root.
const (
	SQLiteFile = "versions.db"
	JSONFile   = "versions.json"
	PeersDir   = "peers"
)

// Options configures [Open].
type Options struct {
	// Path is the cache root. Empty means [DefaultDir].
	Path string
	// Backend selects the preferred backend. The zero value probes SQLite
	// then JSON.
	Backend BackendKind
	// RedisURL is used when Backend is BackendRedis.
	RedisURL string
	// Logger receives fallback warnings. Optional.
	Logger *log.Logger
}

// DefaultDir returns $XDG_CACHE_HOME/peerguard, or ~/.cache/peerguard.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "peerguard"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "peerguard"), nil
}

// Open probes backends in order (Redis when requested, then SQLite, then a
// JSON document) and returns a cache on the first that works. Every skipped
// backend is recorded in the returned Status. Open fails only when no
// backend can be used.
func Open(ctx context.Context, opts Options) (*VersionCache, error) {
	root := opts.Path
	if root == "" {
		var err error
		if root, err = DefaultDir(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "resolve cache directory")
		}
	}

	var reasons []string
	fallback := func(kind BackendKind, err error) {
		reason := fmt.Sprintf("%s: %v", kind, err)
		reasons = append(reasons, reason)
		if opts.Logger != nil {
			opts.Logger.Warn("cache backend unavailable", "backend", kind, "err", err)
		}
	}
	status := func(kind BackendKind, location string) Status {
		return Status{
			Backend:        kind,
			Location:       location,
			Degraded:       len(reasons) > 0,
			FallbackReason: strings.Join(reasons, "; "),
		}
	}

	switch opts.Backend {
	case BackendAuto, BackendSQLite, BackendJSON, BackendRedis:
	case BackendNull:
		return NewNull(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", opts.Backend)
	}

	if opts.Backend == BackendRedis {
		if opts.RedisURL == "" {
			fallback(BackendRedis, fmt.Errorf("no redis url configured"))
		} else if b, err := OpenRedis(ctx, opts.RedisURL); err != nil {
			fallback(BackendRedis, err)
		} else {
			return New(b, status(BackendRedis, b.Addr())), nil
		}
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "create cache directory %s", root)
	}

	if opts.Backend != BackendJSON {
		path := filepath.Join(root, SQLiteFile)
		if b, err := OpenSQLite(ctx, path); err != nil {
			fallback(BackendSQLite, err)
		} else {
			return New(b, status(BackendSQLite, path)), nil
		}
	}

	path := filepath.Join(root, JSONFile)
	b, err := OpenJSON(path)
	if err != nil {
		fallback(BackendJSON, err)
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "no cache backend available (%s)", strings.Join(reasons, "; "))
	}
	return New(b, status(BackendJSON, path)), nil
}
