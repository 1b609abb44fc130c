package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"geocurtain/internal/logging"
	"geocurtain/internal/observability"
	"geocurtain/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the curtain API over HTTP",
		Long: `Serve accepts GeoJSON on POST /v1/curtains and answers with the built
curtains. Prometheus metrics are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	addCurtainFlags(cmd.Flags())
	cmd.Flags().String("addr", ":8080", "Listen address.")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.ContextWithLogger(ctx, a.log)

	shutdown, err := observability.InitTracing(ctx, a.cfg.TracingConfig(), a.log)
	if err != nil {
		return errors.Wrap(err, "init tracing")
	}
	defer observability.ShutdownWithTimeout(context.WithoutCancel(ctx), shutdown, a.log)

	srv := server.New(a.svc, a.policy, a.collector.Handler(), a.log)
	return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
}
