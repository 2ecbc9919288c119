package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/buildinfo"
)

// versionCommand creates the "version" command.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.flags.json {
				return c.printJSON(map[string]string{
					"version": buildinfo.Version,
					"commit":  buildinfo.Commit,
					"date":    buildinfo.Date,
				})
			}
			fmt.Fprintln(c.Out, buildinfo.String())
			return nil
		},
	}
}
