package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/realldz/yoosee-intercom/internal/client"
	"github.com/realldz/yoosee-intercom/internal/config"
	"github.com/realldz/yoosee-intercom/internal/dispatch"
	"github.com/realldz/yoosee-intercom/internal/metrics"
	"github.com/realldz/yoosee-intercom/internal/server"
	"github.com/realldz/yoosee-intercom/internal/transcode"
)

const (
	serviceName    = "yoosee-intercom"
	serviceVersion = "1.0.0"

	// How often we poll the queues while waiting for playback to finish
	drainPollInterval = 500 * time.Millisecond

	// Extra time after the queues drain so the last frames reach the device
	autoExitGrace = 2 * time.Second
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	ipList := flag.String("ip", "", "Comma-separated camera IP addresses")
	port := flag.Int("port", config.DefaultPort, "Camera control port")
	file := flag.String("file", "", "Audio file to stream")
	rate := flag.Int("rate", config.DefaultSampleRate, "PCM sample rate in Hz")
	vol := flag.Float64("vol", config.DefaultVolume, "Volume multiplier applied during decode")
	speed := flag.Float64("speed", config.DefaultSpeedMultiplier, "Playback-rate multiplier")
	debug := flag.Bool("debug", false, "Enable debug logging")
	autoExit := flag.Bool("auto-exit", false, "Exit after the audio has been fully sent")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	mergeFlags(cfg, *ipList, *port, *file, *rate, *vol, *speed, *debug)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	printBanner(cfg)
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.Int("targets", len(cfg.Targets)),
		slog.String("file", cfg.Audio.File),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("volume", cfg.Audio.Volume),
		slog.Bool("auto_exit", *autoExit),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.New()

	// Connect to every target; a single unreachable camera is not fatal
	manager := client.NewManager(logger)
	for _, t := range cfg.Targets {
		target := client.Target{
			Address:    t.Address,
			Port:       t.Port,
			SampleRate: t.SampleRate,
		}
		c, err := client.New(target, logger, client.Options{
			QueueLimit:      cfg.Queue.MaxUnconnected,
			MaxLead:         cfg.Pacing.MaxLead(),
			SpeedMultiplier: cfg.Pacing.SpeedMultiplier,
			Tick:            cfg.Pacing.Tick(),
			Metrics:         appMetrics,
		})
		if err != nil {
			logger.Error("Failed to connect to camera",
				slog.String("target", target.Addr()),
				slog.String("error", err.Error()),
			)
			continue
		}
		manager.Add(c)
	}
	if manager.Count() == 0 {
		logger.Error("No cameras reachable, nothing to do")
		os.Exit(1)
	}

	// Start HTTP status server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, manager)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Decode the source file to raw PCM via ffmpeg
	pcm, err := transcode.Stream(cfg.Audio.File, cfg.Audio.SampleRate, cfg.Audio.Volume)
	if err != nil {
		logger.Error("Failed to start audio decode", slog.String("error", err.Error()))
		manager.StopAll()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks := make([]dispatch.Sink, 0, manager.Count())
	for _, c := range manager.Clients() {
		sinks = append(sinks, c)
	}

	dispatchDone := make(chan error, 1)
	go func() {
		dispatchDone <- dispatch.Run(ctx, pcm, sinks, logger, appMetrics)
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		<-dispatchDone
	case err := <-dispatchDone:
		if err != nil {
			logger.Error("Audio dispatch failed", slog.String("error", err.Error()))
			exitCode = 1
			break
		}
		logger.Info("Audio fully dispatched, waiting for queues to drain")
		waitForDrain(manager, sigChan, logger)
		if *autoExit {
			logger.Info("Auto-exit: giving the last frames time to flush",
				slog.Duration("grace", autoExitGrace))
			time.Sleep(autoExitGrace)
		} else {
			logger.Info("Playback complete, press Ctrl+C to exit")
			<-sigChan
		}
	}

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	manager.StopAll()
	if err := pcm.Close(); err != nil {
		logger.Warn("Audio decode cleanup failed", slog.String("error", err.Error()))
	}

	logger.Info("Service stopped")
	os.Exit(exitCode)
}

// waitForDrain polls until every client queue is empty or a signal arrives.
func waitForDrain(manager *client.Manager, sigChan chan os.Signal, logger *slog.Logger) {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		select {
		case sig := <-sigChan:
			logger.Info("Received shutdown signal while draining", slog.String("signal", sig.String()))
			return
		case <-ticker.C:
			if manager.Drained() {
				return
			}
		}
	}
}

// mergeFlags overlays the CLI flags onto the loaded configuration. Flags the
// user set explicitly win over both the file and the environment.
func mergeFlags(cfg *config.Config, ipList string, port int, file string, rate int, vol, speed float64, debug bool) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if ipList != "" {
		targetRate := rate
		if !set["rate"] && cfg.Audio.SampleRate != 0 {
			targetRate = cfg.Audio.SampleRate
		}
		cfg.Targets = parseTargets(ipList, port, targetRate)
	} else if set["port"] || set["rate"] {
		for i := range cfg.Targets {
			if set["port"] {
				cfg.Targets[i].Port = port
			}
			if set["rate"] {
				cfg.Targets[i].SampleRate = rate
			}
		}
	}
	if file != "" {
		cfg.Audio.File = file
	}
	if set["rate"] {
		cfg.Audio.SampleRate = rate
	}
	if set["vol"] {
		cfg.Audio.Volume = vol
	}
	if set["speed"] {
		cfg.Pacing.SpeedMultiplier = speed
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
}

// parseTargets splits a comma-separated address list, dropping blanks and
// duplicates while keeping first-occurrence order.
func parseTargets(ipList string, port, rate int) []config.TargetConfig {
	seen := make(map[string]bool)
	var targets []config.TargetConfig
	for _, addr := range strings.Split(ipList, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		targets = append(targets, config.TargetConfig{
			Address:    addr,
			Port:       port,
			SampleRate: rate,
		})
	}
	return targets
}

func printBanner(cfg *config.Config) {
	addrs := make([]string, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		addrs = append(addrs, fmt.Sprintf("%s:%d", t.Address, t.Port))
	}
	fmt.Printf("%s %s\n", serviceName, serviceVersion)
	fmt.Printf("  targets: %s\n", strings.Join(addrs, ", "))
	fmt.Printf("  file:    %s\n", cfg.Audio.File)
	fmt.Printf("  rate:    %d Hz, volume %.2f\n", cfg.Audio.SampleRate, cfg.Audio.Volume)
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
