package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mithilesh-1311/YANTRA/internal/collector"
	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/config"
	"github.com/Mithilesh-1311/YANTRA/internal/server"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	var addr string

	rootCmd := &cobra.Command{
		Use:   "collector",
		Short: "Receive building telemetry and serve the latest readings",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath, addr)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or ./configs/config.yaml)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (default collector.addr)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Collector.Addr = addr
	}

	logger, logCloser, err := common.NewLogger("collector", cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := collector.NewStore(cfg.Collector.HistorySize)

	if cfg.Collector.NatsUrl != "" {
		source, err := collector.NewNatsSource(cfg.Collector.NatsUrl, cfg.Collector.NatsSubject, store, logger)
		if err != nil {
			logger.Error("Error subscribing to NATS", "error", err)
			return err
		}
		defer source.Close()
	}

	handler := server.NewHandler(logger, store)
	return server.StartHttpServer(ctx, logger, cfg.Collector.Addr, server.NewRouter(handler))
}
