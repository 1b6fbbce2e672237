package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/channel-router/config"
	"github.com/angeloszaimis/channel-router/pkg/logger"
)

var configFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel-router",
		Short: "Channel health tracking and latency probing for upstream AI channels",
		Long: `channel-router keeps failing upstream channels out of rotation with an
exponential freeze ladder and ranks channels by measured latency.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./config/config.yaml or ./config.yaml)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(speedtestCmd())

	return cmd
}

// setup loads the configuration and builds the process logger. Logs go to
// out, which lets speedtest keep stdout for its report.
func setup(out io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Level:       cfg.Logging.Level,
		Environment: cfg.Server.Environment,
		AddSource:   cfg.Logging.AddSource,
		Output:      out,
	})
	slog.SetDefault(log)

	return cfg, log, nil
}
