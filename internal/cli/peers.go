package cli

import (
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/peers"
)

// ErrPeerConflicts is returned when the peer graph has error-severity
// conflicts. main maps it to exit status 2.
var ErrPeerConflicts = stderrors.New("peer dependency conflicts found")

// peersResult is the JSON shape of the peers command.
type peersResult struct {
	Graph     *peers.Graph     `json:"graph"`
	Conflicts []peers.Conflict `json:"conflicts"`
	Errors    int              `json:"errors"`
	Warnings  int              `json:"warnings"`
}

// peersCommand creates the "peers" command.
func (c *CLI) peersCommand() *cobra.Command {
	var simulate []string
	var warnOnly bool

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Report peer dependency conflicts",
		Long: `Peers builds the peer dependency graph of the project from installed
versions (or the registry when nothing is installed) and reports every
peer requirement the resolved versions do not satisfy.

Use --simulate to see what an upgrade would break before installing it.`,
		Example: `  peerguard peers
  peerguard peers --simulate react@19.0.0
  peerguard peers --simulate @types/react@19.0.0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			overrides, err := parseOverrides(simulate)
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

			prog := newProgress(s.logger)
			spin := c.spinner(ctx, "Resolving peer dependencies...")
			g, err := s.builder(overrides).Build(ctx, manifests)
			spin.Stop()
			if err != nil {
				return err
			}
			conflicts := peers.ResolveContext(ctx, g)
			errs, warnings := peers.Count(conflicts)
			prog.done("peer graph resolved", "nodes", g.Len(), "conflicts", len(conflicts))

			if c.flags.json {
				if err := c.printJSON(peersResult{Graph: g, Conflicts: conflicts, Errors: errs, Warnings: warnings}); err != nil {
					return err
				}
			} else {
				c.printPeers(g, conflicts, errs, warnings, s.vc.Degraded(), s.vc.FallbackReason())
			}

			if errs > 0 && !warnOnly {
				return ErrPeerConflicts
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&simulate, "simulate", nil, "pretend name@version is installed (repeatable)")
	cmd.Flags().BoolVar(&warnOnly, "warn-only", false, "exit 0 even when error conflicts are found")
	return cmd
}

func (c *CLI) printPeers(g *peers.Graph, conflicts []peers.Conflict, errs, warnings int, degraded bool, reason string) {
	if degraded {
		c.printWarning("cache degraded: %s", reason)
	}
	if len(conflicts) == 0 {
		c.printSuccess("No peer conflicts across %s", plural(g.Len(), "package"))
	} else {
		c.printTitle(plural(errs, "error") + ", " + plural(warnings, "warning"))
		for _, cf := range conflicts {
			c.printConflict(cf)
		}
	}
	for _, name := range g.Unknown() {
		c.printWarning("peer requirements of %s unavailable", name)
	}
}

// parseOverrides turns repeated name@version flags into a map. A later flag
// for the same name wins.
func parseOverrides(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, version, err := errors.SplitOverride(spec)
		if err != nil {
			return nil, err
		}
		out[name] = version
	}
	return out, nil
}
