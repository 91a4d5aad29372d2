package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/expresssorder/voi-synthesis-service/internal/config"
	"github.com/expresssorder/voi-synthesis-service/internal/metrics"
	"github.com/expresssorder/voi-synthesis-service/internal/server"
	"github.com/expresssorder/voi-synthesis-service/internal/synthesis"
	"github.com/expresssorder/voi-synthesis-service/internal/voice"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "voi-synthesis-service"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Pick up the API credential from a local .env file if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.Server.Port),
		slog.String("bind_address", cfg.Server.Address),
		slog.String("synthesis_endpoint", cfg.Synthesis.Endpoint),
		slog.String("synthesis_model", cfg.Synthesis.Model),
		slog.Int("output_sample_rate", cfg.Audio.OutputSampleRate),
		slog.Int("priming_samples", cfg.Audio.PrimingSamples),
		slog.Int("result_ttl", cfg.Audio.ResultTTL),
		slog.Float64("voice_analysis_duration", cfg.Voice.AnalysisDuration),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Build the websocket dialer for the remote synthesis service
	dialer, err := synthesis.NewWSDialer(cfg.Synthesis.Endpoint, cfg.Synthesis.APIKey)
	if err != nil {
		logger.Error("Failed to create session dialer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Build the synthesis orchestrator
	client, err := synthesis.NewClient(synthesis.Config{
		Model:             cfg.Synthesis.Model,
		Timeout:           cfg.Synthesis.GetTimeout(),
		MaxTextLength:     cfg.Synthesis.MaxTextLength,
		OutputSampleRate:  cfg.Audio.OutputSampleRate,
		OutputChannels:    cfg.Audio.OutputChannels,
		OutputBitDepth:    cfg.Audio.OutputBitDepth,
		PrimingSampleRate: cfg.Audio.PrimingSampleRate,
		PrimingSamples:    cfg.Audio.PrimingSamples,
	}, dialer, logger)
	if err != nil {
		logger.Error("Failed to create synthesis client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize the synthesis manager with its result store
	synthMgr := synthesis.NewManager(logger, client, cfg.Audio.GetResultTTL())
	logger.Info("Synthesis manager initialized",
		slog.Duration("result_ttl", cfg.Audio.GetResultTTL()),
	)

	// Initialize the voice analyzer
	analyzer := voice.NewAnalyzer(logger, cfg.Voice.GetAnalysisDuration(), cfg.Voice.MaxUploadBytes)
	logger.Info("Voice analyzer initialized",
		slog.Duration("analysis_duration", cfg.Voice.GetAnalysisDuration()),
	)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(cfg, logger, synthMgr, analyzer, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)),
	)

	// Start HTTP server
	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop background components
	synthMgr.Stop()
	analyzer.Stop()

	// Get final statistics
	stats := synthMgr.GetStats()
	logger.Info("Final service statistics",
		slog.Uint64("synthesis_requests", stats.Client.TotalRequests),
		slog.Uint64("synthesis_successes", stats.Client.SuccessRequests),
		slog.Uint64("synthesis_failures", stats.Client.FailedRequests),
		slog.Uint64("results_expired", stats.ExpiredResults),
	)

	logger.Info("Service stopped")
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
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
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
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
