package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// probePackage is fetched to check the default registry answers.
const probePackage = "npm"

// doctorReport is the JSON shape of the doctor command.
type doctorReport struct {
	ConfigFiles []string          `json:"configFiles"`
	Policy      string            `json:"policy"`
	Offline     bool              `json:"offline"`
	Cache       cacheStatus       `json:"cache"`
	Registry    string            `json:"registry"`
	Scopes      map[string]string `json:"scopes,omitempty"`
	Credentials []string          `json:"credentials,omitempty"`
	Reachable   *bool             `json:"reachable,omitempty"`
	Problems    []string          `json:"problems"`
}

// doctorCommand creates the "doctor" command.
func (c *CLI) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, cache and registry access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			npmrc := s.registry.Config()
			rep := doctorReport{
				ConfigFiles: s.cfg.Sources,
				Policy:      s.cfg.Policy,
				Offline:     s.cfg.Offline,
				Registry:    npmrc.Registry,
				Scopes:      npmrc.Scopes,
				Problems:    []string{},
			}
			if rep.ConfigFiles == nil {
				rep.ConfigFiles = []string{}
			}
			for prefix := range npmrc.Auth {
				rep.Credentials = append(rep.Credentials, prefix)
			}
			sort.Strings(rep.Credentials)

			for _, reg := range append([]string{npmrc.Registry}, sortedValues(npmrc.Scopes)...) {
				if err := errors.ValidateRegistryURL(reg); err != nil {
					rep.Problems = append(rep.Problems, errors.UserMessage(err))
				}
			}

			n, err := s.vc.Len(ctx)
			if err != nil {
				rep.Problems = append(rep.Problems, "cache unreadable: "+err.Error())
			}
			rep.Cache = cacheStatus{Status: s.vc.Status(), Dir: s.cacheRoot, Entries: n}
			if rep.Cache.Degraded {
				rep.Problems = append(rep.Problems, "cache degraded: "+rep.Cache.FallbackReason)
			}

			if !s.cfg.Offline {
				spin := c.spinner(ctx, "Contacting "+npmrc.Registry+"...")
				_, err := s.registry.ResolvePackageMetadata(ctx, probePackage, s.cfg.Timeout.Duration)
				spin.Stop()
				ok := err == nil
				rep.Reachable = &ok
				if err != nil {
					rep.Problems = append(rep.Problems, "registry: "+errors.UserMessage(err))
				}
			}

			if c.flags.json {
				if err := c.printJSON(rep); err != nil {
					return err
				}
			} else {
				c.printDoctor(rep)
			}
			if len(rep.Problems) > 0 {
				return errors.New(errors.ErrCodeInternal, "doctor found %s", plural(len(rep.Problems), "problem"))
			}
			return nil
		},
	}
}

func (c *CLI) printDoctor(rep doctorReport) {
	c.printTitle("Configuration")
	if len(rep.ConfigFiles) == 0 {
		c.printKeyValue("Files", "(none)")
	} else {
		c.printKeyValue("Files", strings.Join(rep.ConfigFiles, ", "))
	}
	c.printKeyValue("Policy", rep.Policy)
	if rep.Offline {
		c.printKeyValue("Mode", "offline")
	}

	c.printTitle("Cache")
	c.printKeyValue("Backend", string(rep.Cache.Backend))
	c.printKeyValue("Directory", rep.Cache.Dir)

	c.printTitle("Registry")
	c.printKeyValue("Default", rep.Registry)
	scopes := make([]string, 0, len(rep.Scopes))
	for scope := range rep.Scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	for _, scope := range scopes {
		c.printKeyValue(scope, rep.Scopes[scope])
	}
	for _, prefix := range rep.Credentials {
		c.printDetail("credentials for %s", prefix)
	}

	if len(rep.Problems) == 0 {
		c.printSuccess("No problems found")
		return
	}
	for _, p := range rep.Problems {
		c.printError("%s", p)
	}
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
