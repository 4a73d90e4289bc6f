package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/config"
	"github.com/Mithilesh-1311/YANTRA/internal/events"
	"github.com/Mithilesh-1311/YANTRA/internal/server"
	"github.com/Mithilesh-1311/YANTRA/internal/sim"
	"github.com/Mithilesh-1311/YANTRA/internal/telemetry"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string
	var ticks int64

	rootCmd := &cobra.Command{
		Use:   "simulator",
		Short: "Simulate the building fleet and stream its telemetry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(configPath, ticks, cmd.Flags().Changed("ticks"))
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml or ./configs/config.yaml)")
	rootCmd.Flags().Int64Var(&ticks, "ticks", 0, "stop every building after this many simulated minutes (0 runs forever)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, ticks int64, ticksSet bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ticksSet {
		cfg.Simulation.MaxTicks = ticks
	}

	logger, logCloser, err := common.NewLogger("simulator", cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder, err := telemetry.NewRecorder(cfg.Simulation.DataDir)
	if err != nil {
		logger.Error("Error creating recorder", "error", err)
		return err
	}
	defer recorder.Close()

	endpoints, err := telemetry.NewEndpoints(cfg.Simulation.Endpoints, logger)
	if err != nil {
		logger.Error("Error creating endpoints", "error", err)
		return err
	}
	broadcaster := telemetry.NewBroadcaster(endpoints, cfg.Simulation.DeliveryTimeout, logger)
	defer broadcaster.Close()

	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	tuning := cfg.Tuning()
	agents := make([]*sim.Agent, 0, len(cfg.Sites))
	for i, profile := range cfg.SiteProfiles() {
		agents = append(agents, sim.NewAgent(profile, tuning, seed+uint64(i)))
	}

	eventBus := events.NewEventBus()
	stopped := make(chan events.Event, len(agents))
	eventBus.Subscribe(common.AGENT_STOPPED_EVENT_TYPE, stopped)

	if cfg.Simulation.MetricsAddr != "" {
		go server.StartHttpServer(ctx, logger.Named("metrics"), cfg.Simulation.MetricsAddr, server.NewMetricsRouter())
	}

	logger.Info(fmt.Sprintf("Simulating %d buildings, data in %s, sending to %v", len(agents),
		cfg.Simulation.DataDir, cfg.Simulation.Endpoints))

	scheduler := sim.NewScheduler(agents, []sim.IReadingHandler{recorder, broadcaster},
		cfg.Simulation.TickInterval, cfg.Simulation.MaxTicks, eventBus, logger)
	scheduler.Run(ctx)

	crashed := 0
	for len(stopped) > 0 {
		if (<-stopped).Data.(events.AgentStoppedEvent).Reason == common.AGENT_STOP_REASON_CRASHED {
			crashed++
		}
	}
	if crashed > 0 {
		return fmt.Errorf("%d of %d buildings crashed", crashed, len(agents))
	}

	logger.Info("Simulation finished")
	return nil
}
