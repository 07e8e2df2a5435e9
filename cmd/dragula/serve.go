package main

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/dragula/internal/config"
	"github.com/vango-dev/dragula/pkg/metrics"
	"github.com/vango-dev/dragula/pkg/server"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured bags over WebSocket",
		Long: `Start the WebSocket server.

Every connection gets its own copy of the configured bags. Besides /ws
the server answers /healthz, /sessions, /sessions/{id}/models and, when
a snapshot store is configured, /sessions/{id}/snapshot and /snapshots.

Examples:
  dragula serve
  dragula serve --port=8080
  dragula serve -c board.toml --log-level=debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			srv, err := buildServer(cfg, flags, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Serving %d bags on %s", len(cfg.Bags), cfg.Address())
			return srv.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")

	return cmd
}

// buildServer wires logging, metrics, tracing and the snapshot store into a
// server for cfg. Metrics are registered on reg.
func buildServer(cfg *config.Config, flags *globalFlags, reg *prometheus.Registry) (*server.Server, error) {
	logger, err := newLogger(cfg, flags, os.Stderr)
	if err != nil {
		return nil, err
	}

	sc := server.FromProject(cfg)
	sc.Logger = logger

	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sc.Metrics = metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)
		sc.Gatherer = reg
		sc.Registerer = reg
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	sc.Store = store

	return server.New(sc), nil
}
