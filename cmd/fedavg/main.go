package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/config"
	"github.com/Mithilesh-1311/YANTRA/internal/events"
	"github.com/Mithilesh-1311/YANTRA/internal/fedavg"
	"github.com/Mithilesh-1311/YANTRA/internal/modelstore"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	var watch bool
	var interval time.Duration

	rootCmd := &cobra.Command{
		Use:   "fedavg",
		Short: "Aggregate the building models with Federated Averaging",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(configPath, watch, interval)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or ./configs/config.yaml)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "run a round on every interval until stopped")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "time between rounds in watch mode (default fedavg.interval)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, watch bool, interval time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.FedAvg.Interval = interval
	}

	logger, logCloser, err := common.NewLogger("fedavg", cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newModelStore(ctx, cfg.FedAvg)
	if err != nil {
		logger.Error("Error creating model store", "error", err)
		return err
	}

	auditLog, err := modelstore.NewFileAuditLog(cfg.FedAvg.AuditLog)
	if err != nil {
		logger.Error("Error creating audit log", "error", err)
		return err
	}

	round := fedavg.NewRound(store, auditLog, cfg.SiteIds(), newWeightSource(cfg), cfg.FedAvg.MinParticipants, logger)
	scheduler := fedavg.NewRoundScheduler(round, events.NewEventBus(), logger)

	if watch {
		return scheduler.Watch(ctx, cfg.FedAvg.Interval)
	}

	_, err = scheduler.RunOnce(ctx)
	if errors.Is(err, fedavg.ErrInsufficientParticipants) {
		return nil
	}
	return err
}

func newModelStore(ctx context.Context, cfg config.FedAvgConfig) (modelstore.IModelStore, error) {
	switch cfg.Store {
	case common.STORE_TYPE_MINIO:
		return modelstore.NewMinioStore(ctx, modelstore.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Secure:    cfg.Minio.Secure,
		})
	case common.STORE_TYPE_FILE:
		return modelstore.NewFileStore(cfg.ModelDir)
	default:
		return nil, fmt.Errorf("unknown model store: %s", cfg.Store)
	}
}

func newWeightSource(cfg *config.Config) fedavg.IWeightSource {
	if cfg.FedAvg.WeightSource == common.WEIGHT_SOURCE_TIMESERIES {
		return fedavg.NewTimeseriesWeightSource(cfg.Simulation.DataDir)
	}
	return fedavg.SnapshotWeightSource{}
}
