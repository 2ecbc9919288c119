package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/config"
	"github.com/matzehuels/peerguard/pkg/deps"
	"github.com/matzehuels/peerguard/pkg/deps/javascript"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/httputil"
	"github.com/matzehuels/peerguard/pkg/integrations/npm"
	"github.com/matzehuels/peerguard/pkg/peers"
	"github.com/matzehuels/peerguard/pkg/semver"
	"github.com/matzehuels/peerguard/pkg/update"
)

// settings loads the config files for the project directory and applies
// every flag the user set explicitly.
func (c *CLI) settings(cmd *cobra.Command) (config.Config, error) {
	home, _ := os.UserHomeDir()
	cfg, err := config.Load(home, c.projectDir())
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("policy") {
		cfg.Policy = c.flags.policy
	}
	if f.Changed("concurrency") {
		cfg.Concurrency = c.flags.concurrency
	}
	if f.Changed("timeout") {
		cfg.Timeout.Duration = c.flags.timeout
	}
	if f.Changed("offline") {
		cfg.Offline = c.flags.offline
	}
	if f.Changed("cache-dir") {
		cfg.Cache.Dir = c.flags.cacheDir
	}
	if f.Changed("cache-backend") {
		cfg.Cache.Backend = c.flags.cacheBackend
	}
	if f.Changed("redis-url") {
		cfg.Cache.RedisURL = c.flags.redisURL
	}
	if c.flags.noCache {
		cfg.Cache.Backend = string(cache.BackendNull)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// session is everything a command needs to talk to the registry and cache.
// Close it when done.
type session struct {
	cfg       config.Config
	cacheRoot string
	vc        *cache.VersionCache
	registry  *npm.Client
	logger    *log.Logger
}

func (c *CLI) openSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := c.settings(cmd)
	if err != nil {
		return nil, err
	}
	logger := c.Logger.With("run", uuid.NewString()[:8])

	if err := loadDotEnv(c.projectDir()); err != nil {
		return nil, err
	}
	home, _ := os.UserHomeDir()
	npmrc, err := npm.LoadConfig(home, c.projectDir())
	if err != nil {
		return nil, err
	}

	root, err := cacheDir(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "resolve cache directory")
	}
	vc, err := cache.Open(ctx, cache.Options{
		Path:     root,
		Backend:  cache.BackendKind(cfg.Cache.Backend),
		RedisURL: cfg.Cache.RedisURL,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	var peerCache *httputil.Cache
	if cfg.Cache.Backend != string(cache.BackendNull) {
		if peerCache, err = httputil.NewCache(filepath.Join(root, cache.PeersDir), 0); err != nil {
			logger.Warn("peer requirement cache disabled", "err", err)
			peerCache = nil
		}
	}
	registry := npm.NewClient(npmrc, peerCache)
	registry.Offline = cfg.Offline

	st := vc.Status()
	logger.Debug("session ready", "cache", st.Backend, "degraded", st.Degraded, "registry", npmrc.Registry, "offline", cfg.Offline)
	return &session{cfg: cfg, cacheRoot: root, vc: vc, registry: registry, logger: logger}, nil
}

func (s *session) Close() error {
	return s.vc.Close()
}

func (s *session) checker() *update.Checker {
	return update.NewChecker(s.registry, s.vc, update.Options{
		Policy:      semver.Policy(s.cfg.Policy),
		Concurrency: s.cfg.Concurrency,
		Timeout:     s.cfg.Timeout.Duration,
		TTL:         s.cfg.Cache.TTL.Duration,
		Offline:     s.cfg.Offline,
		Logger:      s.logger,
	})
}

func (s *session) builder(overrides map[string]string) *peers.Builder {
	return peers.NewBuilder(s.registry, s.vc, peers.Options{
		Concurrency: s.cfg.Concurrency,
		Timeout:     s.cfg.Timeout.Duration,
		TTL:         s.cfg.Cache.TTL.Duration,
		Offline:     s.cfg.Offline,
		Overrides:   overrides,
		Logger:      s.logger,
	})
}

// cacheDir returns the configured cache root, or the XDG default.
func cacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// loadDotEnv exports dir/.env so npmrc ${VAR} references resolve. Variables
// already set in the environment win.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "load %s", path)
	}
	return nil
}

// readManifests reads the project and its workspace members. --dir may also
// name a manifest file, in which case only that manifest is read.
func (c *CLI) readManifests() ([]deps.Manifest, error) {
	info, err := os.Stat(c.flags.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "project %s", c.flags.dir)
	}
	if info.IsDir() {
		return javascript.ReadWorkspace(c.flags.dir)
	}

	parser, err := deps.DetectManifest(c.flags.dir, javascript.PackageJSON{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "project %s", c.flags.dir)
	}
	m, err := parser.Parse(filepath.Dir(c.flags.dir))
	if err != nil {
		return nil, err
	}
	return []deps.Manifest{*m}, nil
}

// projectDir is the directory holding config, .env and .npmrc files.
func (c *CLI) projectDir() string {
	if info, err := os.Stat(c.flags.dir); err == nil && !info.IsDir() {
		return filepath.Dir(c.flags.dir)
	}
	return c.flags.dir
}
