package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"payments-engine/internal/metrics"
	"payments-engine/internal/server"
	"payments-engine/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the engine over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().String("port", "8080", "port to listen on; 0 picks a free port")
	if err := a.v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}

	return cmd
}

// serve runs the HTTP server until ctx is done, then shuts it down within
// server.shutdown_timeout.
func (a *app) serve(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	engine := service.NewPaymentsEngine(store, a.logger,
		service.WithWorkers(a.cfg.Engine.Workers),
		service.WithMetrics(m))

	srv := server.New(engine, store, m, reg, a.logger)
	port, err := srv.Start(a.cfg.Server.Port)
	if err != nil {
		store.Close()
		return err
	}
	a.logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("storage", a.cfg.Storage.Driver))

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	a.logger.Info("Server stopped")
	return nil
}
