// cmd/client/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/network"
	"github.com/opd-ai/go-orrery/pkg/render"
	engorender "github.com/opd-ai/go-orrery/pkg/render/engo"
)

func main() {
	// stdout belongs to the terminal renderer
	logger := logging.NewLoggerTo(os.Stderr)
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to scene configuration file")
	serverURL := flag.String("server", "", "Telemetry server URL, e.g. ws://localhost:4577/ws (empty runs the scene locally)")
	renderer := flag.String("renderer", "terminal", "Renderer type: 'terminal' or 'engo'")
	follow := flag.String("follow", "", "Body to keep centered (terminal only)")
	scale := flag.Float64("scale", 20, "Scene units per character column (terminal only)")
	cols := flag.Int("cols", 100, "Terminal view width in characters")
	rows := flag.Int("rows", 40, "Terminal view height in characters")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode (Engo only)")
	width := flag.Int("width", 1024, "Window width (Engo only)")
	height := flag.Int("height", 768, "Window height (Engo only)")
	flag.Parse()

	sceneConfig := config.DefaultConfig()
	if _, err := os.Stat(*configPath); err == nil {
		sceneConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
	}
	if err := config.ApplyEnvironmentOverrides(sceneConfig); err != nil {
		logger.Error(ctx, "Failed to apply environment configuration", err)
		os.Exit(1)
	}

	eventBus := event.NewEventBus()
	source, description, closeSource, err := openSource(ctx, logger, eventBus, sceneConfig, *serverURL)
	if err != nil {
		logger.Error(ctx, "Failed to open frame source", err)
		os.Exit(1)
	}
	defer closeSource()

	switch *renderer {
	case "engo":
		scene := engorender.NewOrreryScene(source, eventBus,
			engorender.WithSceneLogger(logger),
			engorender.WithStatus(func() string { return description }),
		)
		engorender.Run(scene, engorender.RunOptions{
			Title:      "Go Orrery",
			Width:      *width,
			Height:     *height,
			Fullscreen: *fullscreen,
		})
	case "terminal":
		fallthrough
	default:
		runTerminal(logger, source, description, terminalOptions{
			follow:    *follow,
			scale:     *scale,
			cols:      *cols,
			rows:      *rows,
			frameRate: sceneConfig.Telemetry.UpdateRate,
		})
	}
}

// openSource returns either a local simulation or a connected telemetry
// client, a short description for the status line and a close function.
func openSource(ctx context.Context, logger *logging.Logger, bus *event.Bus, cfg *config.SceneConfig, url string) (engine.FrameSource, string, func(), error) {
	if url == "" {
		sim, err := engine.NewSimulation(cfg, engine.NewRealClock(),
			engine.WithLogger(logger),
			engine.WithEventBus(bus),
			engine.WithSeed(uint64(time.Now().UnixNano())),
		)
		if err != nil {
			return nil, "", nil, err
		}
		sim.Start()
		return engine.NewLocalSource(sim), "local", sim.Stop, nil
	}

	bus.Subscribe(event.ClientDisconnected, func(e event.Event) {
		logger.Warn(ctx, "Disconnected from server")
	})
	bus.Subscribe(network.ClientReconnected, func(e event.Event) {
		logger.Info(ctx, "Reconnected to server")
	})
	bus.Subscribe(network.ClientReconnectFailed, func(e event.Event) {
		logger.Error(ctx, "Failed to reconnect to server", network.ErrNotConnected)
		os.Exit(1)
	})

	env, err := config.LoadConfigFromEnv()
	if err != nil {
		return nil, "", nil, err
	}
	client := network.NewTelemetryClient(url, env, bus, network.WithClientLogger(logger))
	logger.Info(ctx, "Connecting to server", "url", url)
	if err := client.Connect(ctx); err != nil {
		return nil, "", nil, err
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Error(ctx, "Failed to close connection", err)
		}
	}
	return client, "remote " + url, closeClient, nil
}

type terminalOptions struct {
	follow    string
	scale     float64
	cols      int
	rows      int
	frameRate int
}

// runTerminal draws frames to stdout until interrupted
func runTerminal(logger *logging.Logger, source engine.FrameSource, description string, opts terminalOptions) {
	ctx := context.Background()
	layout := source.Layout()
	view := engine.NewView(layout, nil)
	if opts.follow != "" {
		if err := view.SelectByName(opts.follow); err != nil {
			logger.Warn(ctx, "Cannot follow body", "body", opts.follow, "error", err)
		}
	}

	term := render.NewTerminalRenderer(os.Stdout, opts.cols, opts.rows, opts.scale)
	term.SetANSI(true)

	rate := opts.frameRate
	if rate <= 0 {
		rate = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sigChan:
			fmt.Println()
			logger.Info(ctx, "Client stopped", "frames", view.Frame().Frame)
			return
		case <-ticker.C:
		}

		frame, ok := source.Frame()
		if !ok {
			continue
		}
		view.Update(frame, 1/float64(rate))
		if bs, ok := frame.Body(view.Selected()); ok {
			term.SetCenter(bs.Position.TopDown())
		}

		status := engorender.StatusLine(frame, description)
		if bl, ok := view.SelectedLayout(); ok {
			status += "\n" + strings.Join(engorender.InfoLines(bl), "  ")
		}
		term.SetStatus(status)
		render.DrawScene(term, layout, frame)
		if err := term.Err(); err != nil {
			logger.Error(ctx, "Failed to write frame", err)
			return
		}
	}
}
