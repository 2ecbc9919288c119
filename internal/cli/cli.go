// Package cli implements the peerguard command-line interface.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/buildinfo"
)

const appName = "peerguard"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Out receives command output. Logs and the spinner go to Err, so JSON
	// output stays clean.
	Out io.Writer
	Err io.Writer

	flags flags
}

// flags are the persistent flags shared by every command. Zero values mean
// "use the config file".
type flags struct {
	dir          string
	policy       string
	concurrency  int
	timeout      time.Duration
	offline      bool
	json         bool
	noCache      bool
	cacheDir     string
	cacheBackend string
	redisURL     string
}

// New creates a new CLI instance writing output to out and logs to logw.
func New(out, logw io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(logw, level),
		Out:    out,
		Err:    logw,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "peerguard checks npm dependencies for updates and peer conflicts",
		Long:          `peerguard reads package.json manifests, proposes dependency updates under a semver policy and reports peer dependency conflicts before they reach an install.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)

	pf := root.PersistentFlags()
	pf.StringVarP(&c.flags.dir, "dir", "C", ".", "project directory, or the path of its package.json")
	pf.StringVar(&c.flags.policy, "policy", "", "update policy: patch, minor, major or latest")
	pf.IntVar(&c.flags.concurrency, "concurrency", 0, "registry requests in flight")
	pf.DurationVar(&c.flags.timeout, "timeout", 0, "per-attempt registry timeout")
	pf.BoolVar(&c.flags.offline, "offline", false, "never contact the registry; use cached data only")
	pf.BoolVar(&c.flags.json, "json", false, "print machine-readable JSON")
	pf.BoolVar(&c.flags.noCache, "no-cache", false, "disable the version cache")
	pf.StringVar(&c.flags.cacheDir, "cache-dir", "", "cache directory (default $XDG_CACHE_HOME/peerguard)")
	pf.StringVar(&c.flags.cacheBackend, "cache-backend", "", "cache backend: sqlite, json, redis or null")
	pf.StringVar(&c.flags.redisURL, "redis-url", "", "redis URL for the redis cache backend")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.peersCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.versionCommand())

	return root
}
