package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/httputil"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the version and peer requirement cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheStatusCommand())

	return cmd
}

// cacheStatus is the JSON shape of "cache status".
type cacheStatus struct {
	cache.Status
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
}

// cacheStatusCommand creates the "cache status" subcommand.
func (c *CLI) cacheStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which cache backend is in use and how many entries it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.vc.Len(cmd.Context())
			if err != nil {
				return err
			}
			st := cacheStatus{Status: s.vc.Status(), Dir: s.cacheRoot, Entries: n}
			if c.flags.json {
				return c.printJSON(st)
			}

			c.printKeyValue("Backend", string(st.Backend))
			if st.Location != "" {
				c.printKeyValue("Location", st.Location)
			}
			c.printKeyValue("Entries", strconv.Itoa(st.Entries))
			c.printKeyValue("TTL", s.cfg.Cache.TTL.String())
			if st.Degraded {
				c.printWarning("degraded: %s", st.FallbackReason)
			}
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached version list and peer requirement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			versions, err := s.vc.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear version cache: %w", err)
			}
			peerCache, err := httputil.NewCache(filepath.Join(s.cacheRoot, cache.PeersDir), 0)
			if err != nil {
				return fmt.Errorf("open peer cache: %w", err)
			}
			peerDocs, err := peerCache.Clear()
			if err != nil {
				return fmt.Errorf("clear peer cache: %w", err)
			}

			c.printSuccess("Cleared %s and %s", plural(versions, "cached version"), plural(peerDocs, "peer document"))
			c.printDetail("Directory: %s", s.cacheRoot)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.settings(cmd)
			if err != nil {
				return err
			}
			dir, err := cacheDir(cfg)
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Out, dir)
			return nil
		},
	}
}
