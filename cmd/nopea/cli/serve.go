package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/false-systems/nopea/internal/httpapi"
	"github.com/false-systems/nopea/internal/rpc"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, RPC tool-call surface, and metrics listener, running until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := buildApp(ctx, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize nopea: %w", err)
			}

			return runServers(ctx, app)
		},
	}
	return cmd
}

func runServers(ctx context.Context, app *App) error {
	handler := httpapi.NewHandler(app.Log, app.Registry, app.Memory, app.Cache)

	errCh := make(chan error, 3)

	go func() {
		errCh <- httpapi.Serve(ctx, app.Config.HTTPAddr(), handler)
	}()

	rpcServer, err := rpc.New(app.Log, rpc.Config{
		ListenAddr: app.Config.RPCAddr,
		DataDir:    app.Config.DataDir,
	}, app.Registry, app.Memory, app.Cache)
	if err != nil {
		return fmt.Errorf("failed to build rpc server: %w", err)
	}
	go func() {
		errCh <- rpcServer.Run(ctx)
	}()

	go func() {
		errCh <- serveMetrics(ctx, app.Config.MetricsAddr)
	}()

	app.Log.Info("nopea: serving", "http_addr", app.Config.HTTPAddr(), "rpc_addr", app.Config.RPCAddr, "metrics_addr", app.Config.MetricsAddr)

	select {
	case <-ctx.Done():
		app.Log.Info("nopea: shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
