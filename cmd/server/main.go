package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkadrlik/meeting-transcription-agent/internal/asr"
	"github.com/mkadrlik/meeting-transcription-agent/internal/config"
	"github.com/mkadrlik/meeting-transcription-agent/internal/metrics"
	"github.com/mkadrlik/meeting-transcription-agent/internal/postprocess"
	"github.com/mkadrlik/meeting-transcription-agent/internal/server"
	"github.com/mkadrlik/meeting-transcription-agent/internal/session"
	"github.com/mkadrlik/meeting-transcription-agent/internal/storage"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	envPath := flag.String("env", "", "Path to a .env file with environment overrides")
	flag.Parse()

	// Load environment overrides before the configuration reads them
	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load env file %s: %v\n", *envPath, err)
			os.Exit(1)
		}
	} else {
		// Best effort: a .env in the working directory is optional
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration. Logs go to stderr by
	// default because stdout carries the MCP protocol stream.
	logger := initLogger(cfg.Logging)

	logger.Info("Service starting",
		slog.String("service", server.ServiceName),
		slog.String("version", server.ServiceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("channels", cfg.Audio.Channels),
		slog.Int("max_concurrent_sessions", cfg.Session.MaxConcurrent),
		slog.Int("session_timeout", cfg.Session.Timeout),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("model_size", cfg.Transcription.ModelSize),
		slog.Bool("cleanup_enabled", cfg.Cleanup.URL != ""),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Initialize transcript storage
	store, err := storage.NewStore(cfg.Storage.TranscriptionsDir, logger)
	if err != nil {
		logger.Error("Failed to initialize transcript storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcript storage initialized", slog.String("dir", store.Dir()))

	// Initialize session store
	sessions := session.NewStore(logger, cfg.Session.MaxConcurrent, cfg.Session.GetTimeoutDuration())
	sessions.SetExpireHook(appMetrics.RecordSessionsExpired)

	// Initialize ASR client
	asrClient, err := asr.NewClient(asr.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		Model:         cfg.Transcription.ModelSize,
		Language:      cfg.Transcription.Language,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create ASR client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize transcript cleanup client (no-op when no URL configured)
	cleanupClient := postprocess.NewClient(postprocess.Config{
		BaseURL: cfg.Cleanup.URL,
		Model:   cfg.Cleanup.Model,
		Timeout: cfg.Cleanup.GetTimeoutDuration(),
	}, logger)

	// Initialize HTTP monitoring server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, sessions,
			asrClient, cleanupClient, store, appMetrics)
		logger.Info("HTTP monitoring server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Initialize MCP server
	mcpServer := server.NewMCPServer(logger, cfg, sessions, asrClient,
		cleanupClient, store, appMetrics)

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Serve MCP on stdio. ServeStdio returns when the client closes the
	// connection, which is a normal shutdown path.
	errCh := make(chan error, 1)
	go func() {
		errCh <- mcpServer.Serve()
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("MCP server stopped", slog.String("error", err.Error()))
		} else {
			logger.Info("MCP client disconnected")
		}
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop session store (discard live sessions, stop cleanup routine)
	sessions.Stop()

	// Close the ASR client (wait for in-flight requests)
	if err := asrClient.Close(); err != nil {
		logger.Error("Error closing ASR client", slog.String("error", err.Error()))
	}

	// Get final statistics
	stats := asrClient.GetStats()
	sessionStats := sessions.Stats()
	logger.Info("Final server statistics",
		slog.Uint64("sessions_started", sessionStats.Started),
		slog.Uint64("sessions_finalized", sessionStats.Finalized),
		slog.Uint64("sessions_expired", sessionStats.Expired),
		slog.Uint64("transcription_requests", stats.TotalRequests),
		slog.Uint64("transcription_failures", stats.FailedRequests),
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

	// Determine output destination. Stdout is reserved for the MCP
	// protocol stream, so logs land on stderr unless a file is named.
	var output *os.File
	switch cfg.Output {
	case "stderr", "":
		output = os.Stderr
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
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
