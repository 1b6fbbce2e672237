package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/channel-router/config"
	"github.com/angeloszaimis/channel-router/internal/handler"
	"github.com/angeloszaimis/channel-router/internal/httpserver"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API, metrics endpoint and latency monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(os.Stdout)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	svc := newServices(cfg, log)
	svc.collector.Start(ctx)

	go svc.prober.Run(ctx, svc.channels, cfg.MonitorInterval(), nil)

	admin := handler.NewAdminHandler(log, svc.tracker, svc.prober, svc.channels, svc.collector)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(admin, svc), cfg.ServerTimeouts())
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	log.Info("Channel router listening",
		slog.String("address", srv.Addr()),
		slog.Int("channels", len(svc.channels)))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
		return nil
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting channel router", slog.Any("err", err))
		}
		return err
	}
}
