package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/hivesplit/pkg/observability"
	"github.com/matzehuels/hivesplit/pkg/server"
)

// defaultAddr is used when neither --addr nor [server].addr is set.
const defaultAddr = ":8080"

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		persist bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the split API over HTTP",
		Long: `Serve the split API over HTTP.

Endpoints:
  POST /v1/split                split one readout
  POST /v1/split/batch          split an array of readouts
  GET  /v1/topology             topology graph (?format=dot|svg)
  GET  /v1/topology/{string}    rings around one string
  GET  /healthz                 liveness
  GET  /metrics                 Prometheus metrics

The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, persist, workers)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: [server].addr or "+defaultAddr+")")
	cmd.Flags().BoolVar(&persist, "store", false, "save every batch to MongoDB")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "readouts split concurrently per request")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, persist bool, workers int) error {
	cfg, setup, err := c.loadSetup()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = defaultAddr
	}

	runner, err := c.newRunner(ctx, cfg, setup, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	if persist {
		ms, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer ms.Close(context.WithoutCancel(ctx))
		runner.Sink = ms
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hooks := observability.NewPromHooks(reg)
	observability.SetSplitHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	srv := server.New(server.Options{
		Runner:   runner,
		Topology: setup.Topology,
		Logger:   c.Logger,
		Gatherer: reg,
		Workers:  workers,
	})
	return srv.ListenAndServe(ctx, addr)
}
