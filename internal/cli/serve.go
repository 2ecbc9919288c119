package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/internal/server"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/semver"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the update checker and peer resolver over HTTP",
		Long: `Serve starts an HTTP API sharing one version cache across requests:

  GET  /healthz     cache backend status
  POST /v1/check    {"dependencies":[...],"policy":"minor"}
  POST /v1/peers    {"manifests":[...],"overrides":{"react":"19.0.0"}}
  GET  /metrics     Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := server.Options{
				Policy:      semver.Policy(s.cfg.Policy),
				Concurrency: s.cfg.Concurrency,
				Timeout:     s.cfg.Timeout.Duration,
				TTL:         s.cfg.Cache.TTL.Duration,
				Offline:     s.cfg.Offline,
				Logger:      s.logger,
			}
			if !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				hooks, err := observability.NewPrometheusHooks(reg)
				if err != nil {
					return err
				}
				observability.Register(hooks)
				defer observability.Reset()
				opts.Gatherer = reg
			}

			st := s.vc.Status()
			s.logger.Info("cache ready", "backend", st.Backend, "location", st.Location, "degraded", st.Degraded)
			return server.New(s.registry, s.vc, opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")
	return cmd
}
