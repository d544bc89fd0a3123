// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/health"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/metrics"
	"github.com/opd-ai/go-orrery/pkg/network"
	"github.com/opd-ai/go-orrery/pkg/resource"
)

// maxStepStall is how long the simulation may go without a frame before it
// is reported unhealthy
const maxStepStall = 5 * time.Second

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to scene configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	template := flag.String("template", "", "Scene template to apply (solar_system, inner_planets, outer_planets)")
	seed := flag.Uint64("seed", 1, "Corona layout seed")
	flag.Parse()

	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	sceneConfig, err := loadSceneConfig(logger, *configPath, *template)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		os.Exit(1)
	}

	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()
	eventBus := event.NewEventBus()
	eventBus.Subscribe(event.SolverNotConverged, func(e event.Event) {
		if se, ok := e.(*event.SolverEvent); ok {
			logger.Warn(ctx, "Kepler solve hit the iteration cap",
				"body", se.BodyName,
				"iterations", se.Iterations,
			)
		}
	})

	sim, err := engine.NewSimulation(sceneConfig, engine.NewRealClock(),
		engine.WithLogger(logger),
		engine.WithRecorder(collector),
		engine.WithEventBus(eventBus),
		engine.WithSeed(*seed),
	)
	if err != nil {
		logger.Error(ctx, "Failed to create simulation", err)
		os.Exit(1)
	}

	server := network.NewTelemetryServer(sim, envConfig,
		network.WithServerLogger(logger),
		network.WithServerRecorder(collector),
		network.WithServerEventBus(eventBus),
	)
	server.Handle("/metrics", collector.Handler())

	resourceManager := resource.NewResourceManager(envConfig, resource.WithLogger(logger))
	if err := resourceManager.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	// Health probes share the telemetry listener
	healthChecker := health.NewHealthChecker()
	healthChecker.AddCheck(health.NewSimulationHealthCheck(sim.Running, sim.LastStep, maxStepStall))
	healthChecker.AddCheck(health.NewTelemetryHealthCheck(server.ListenerAddress))
	healthChecker.AddCheck(health.NewMemoryHealthCheck(int64(envConfig.MaxMemoryMB), resourceManager.MemoryUsageMB))
	healthChecker.AddCheck(resource.NewResourceHealthCheck(resourceManager))
	healthChecker.Register(server)

	frameRate := sceneConfig.Simulation.FrameRate
	err = resourceManager.StartGoroutine(ctx, "simulation", func(ctx context.Context) error {
		return sim.Run(ctx, frameRate)
	})
	if err != nil {
		logger.Error(ctx, "Failed to start simulation", err)
		os.Exit(1)
	}

	address := sceneConfig.Telemetry.Address
	logger.Info(ctx, "Starting telemetry server",
		"address", address,
		"max_clients", envConfig.MaxClients,
		"bodies", len(sim.Layout().Bodies),
		"health_checks", healthChecker.Names(),
	)
	if err := server.Start(address); err != nil {
		logger.Error(ctx, "Failed to start server", err,
			"address", address,
		)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info(ctx, "Shutting down server", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), envConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error(ctx, "Telemetry server shutdown failed", err)
	}
	if err := resourceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Resource manager shutdown failed", err)
	}
	logger.Info(ctx, "Server stopped", "frames", sim.Frames())
}

// loadSceneConfig reads path, falling back to the default scene when the file
// does not exist, then applies the template and environment overrides.
func loadSceneConfig(logger *logging.Logger, path, template string) (*config.SceneConfig, error) {
	ctx := context.Background()

	var sceneConfig *config.SceneConfig
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		sceneConfig = config.DefaultConfig()
	} else {
		sceneConfig, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if template != "" {
		if err := config.ApplyTemplate(sceneConfig, template); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnvironmentOverrides(sceneConfig); err != nil {
		return nil, err
	}
	if err := sceneConfig.Validate(); err != nil {
		return nil, err
	}
	return sceneConfig, nil
}
