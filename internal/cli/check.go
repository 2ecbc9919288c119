package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/deps"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/update"
)

// checkCommand creates the "check" command.
func (c *CLI) checkCommand() *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "List dependency updates allowed by the update policy",
		Long: `Check resolves the latest version of every registry dependency in the
project (and its workspaces) and prints the updates the policy allows.

Updates within the current major version are marked as safe to apply
automatically.`,
		Example: `  peerguard check
  peerguard check --policy major --json
  peerguard check --offline`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filter, err := parseKinds(kinds)
			if err != nil {
				return err
			}

			manifests, err := c.readManifests()
			if err != nil {
				return err
			}
			s, err := c.openSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			declared := filterKinds(deps.Declared(manifests), filter)
			prog := newProgress(s.logger)
			spin := c.spinner(ctx, "Checking "+plural(len(declared), "package")+"...")
			report, err := s.checker().Check(ctx, declared)
			spin.Stop()
			if err != nil {
				return err
			}
			prog.done("check complete", "packages", len(declared), "updates", len(report.Updates))

			if c.flags.json {
				if err := c.printJSON(report); err != nil {
					return err
				}
			} else {
				c.printReport(report, s.vc.Degraded(), s.vc.FallbackReason())
			}

			if s.cfg.Offline {
				if misses := report.OfflineMisses(); len(misses) > 0 {
					return errors.New(errors.ErrCodeOfflineMiss, "offline and not cached: %s", strings.Join(misses, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "only check these dependency kinds (runtime, dev, optional, peer)")
	return cmd
}

func (c *CLI) printReport(r *update.Report, degraded bool, reason string) {
	if degraded {
		c.printWarning("cache degraded: %s", reason)
	}
	if len(r.Updates) == 0 {
		c.printSuccess("Everything is up to date for policy %s", r.Policy)
	} else {
		c.printTitle(plural(len(r.Updates), "update") + " (policy " + string(r.Policy) + ")")
		for _, u := range r.Updates {
			c.printUpdate(u)
		}
	}
	if len(r.Stale) > 0 {
		c.printWarning("using stale cache for %s", strings.Join(r.Stale, ", "))
	}
	if len(r.Skipped) > 0 {
		c.printDetail("skipped non-registry ranges: %s", strings.Join(r.Skipped, ", "))
	}
	for _, e := range r.Errors {
		c.printError("%s: %s", e.Name, e.Message)
	}
}

func parseKinds(raw []string) (map[deps.Kind]bool, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := map[deps.Kind]bool{}
	for _, s := range raw {
		k, err := deps.ParseKind(s)
		if err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, nil
}

func filterKinds(ds []deps.Dependency, keep map[deps.Kind]bool) []deps.Dependency {
	if keep == nil {
		return ds
	}
	var out []deps.Dependency
	for _, d := range ds {
		if keep[d.Kind] {
			out = append(out, d)
		}
	}
	return out
}
