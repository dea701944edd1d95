package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stillwave/recut/internal/ai"
	"github.com/stillwave/recut/internal/ai/gemini"
	"github.com/stillwave/recut/internal/ai/openai"
	"github.com/stillwave/recut/internal/api"
	"github.com/stillwave/recut/internal/cleanup"
	"github.com/stillwave/recut/internal/config"
	"github.com/stillwave/recut/internal/judge"
	"github.com/stillwave/recut/internal/refine"
	"github.com/stillwave/recut/internal/splice"
	"github.com/stillwave/recut/internal/storage/sqlite"
	"github.com/stillwave/recut/internal/websocket"
	"github.com/stillwave/recut/internal/whisper"
	"github.com/stillwave/recut/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Recut server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create SQLite storage
	sqliteStorage, err := sqlite.NewStorage(cfg.Storage.DatabasePath, log)
	if err != nil {
		log.Error("Failed to create SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer sqliteStorage.Close()

	jobStorage := sqlite.NewJobStorage(sqliteStorage.GetDB(), log)

	// Create WebSocket server
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Create transcription engine
	engine := whisper.NewCLIEngine(whisper.CLIConfig{
		BinaryPath:       cfg.Whisper.BinaryPath,
		ModelPath:        cfg.Whisper.ModelPath,
		StallTimeoutSecs: cfg.Whisper.StallTimeoutSecs,
		KillGraceSecs:    cfg.Whisper.KillGraceSecs,
	}, log)

	// Create chat provider for the quality judge
	provider, err := buildChatProvider(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create chat provider", logger.Error(err))
		os.Exit(1)
	}

	evaluator, err := judge.New(provider, judge.Config{
		Model:          cfg.AI.Model,
		Temperature:    cfg.AI.Temperature,
		MaxTokens:      cfg.AI.MaxTokens,
		TimeoutSeconds: cfg.AI.TimeoutSecs,
		SystemPrompt:   cfg.AI.SystemPrompt,
	}, log)
	if err != nil {
		log.Error("Failed to create quality judge", logger.Error(err))
		os.Exit(1)
	}

	// Create audio splicer
	splicer := splice.NewSplicer(splice.Config{
		FFmpegPath: cfg.Cleanup.FFmpegPath,
		SampleRate: cfg.Cleanup.SampleRate,
		Channels:   cfg.Cleanup.Channels,
	}, log)

	// Create refinement stage
	refiner := refine.NewStage(engine, whisper.Options{
		Language: cfg.Whisper.Language,
	}, log)

	// Create cleanup service
	service := cleanup.NewService(engine, evaluator, splicer, refiner, jobStorage, wsServer, cfg.Whisper.Language, log)

	// Create API router
	router := api.NewRouter(service, wsServer, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error on startup", logger.String("addr", server.Addr), logger.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Stop running jobs first so their subprocesses exit cleanly
	log.Info("Stopping cleanup service...")
	cancel()
	service.Stop()
	log.Info("Cleanup service stopped.")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	log.Info("Server fully stopped")
}

// buildChatProvider selects the judge's chat backend from configuration
func buildChatProvider(ctx context.Context, cfg *config.Config, log *logger.Logger) (ai.ChatProvider, error) {
	timeout := time.Duration(cfg.AI.TimeoutSecs) * time.Second

	switch cfg.AI.Provider {
	case "gemini":
		return gemini.NewClient(ctx, cfg.AI.APIKey, log)
	case "ollama":
		return openai.NewClient(openai.DialectLocal, cfg.AI.BaseURL, cfg.AI.APIKey, timeout, log), nil
	case "fullpath":
		return openai.NewClient(openai.DialectFullPath, cfg.AI.BaseURL, cfg.AI.APIKey, timeout, log), nil
	default:
		return openai.NewClient(openai.DialectStandard, cfg.AI.BaseURL, cfg.AI.APIKey, timeout, log), nil
	}
}
