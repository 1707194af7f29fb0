// Package main provides the inspo HTTP server entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dailyinspo/inspo/internal/analysis"
	"github.com/dailyinspo/inspo/internal/assistant"
	"github.com/dailyinspo/inspo/internal/chat"
	"github.com/dailyinspo/inspo/internal/config"
	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/internal/generation"
	"github.com/dailyinspo/inspo/internal/scheduler"
	"github.com/dailyinspo/inspo/internal/server"
	"github.com/dailyinspo/inspo/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "Listen port (default: from settings)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	// Optional .env for local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directories")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Port = *port
	}

	store, err := dbgorm.NewStore(dbgorm.Config{
		Path:     cfg.DBPath,
		MaxConns: cfg.MaxConns,
		LogLevel: gormlogger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	ideaStore := dbgorm.NewIdeaStore(store)
	logStore := dbgorm.NewGenerationLogStore(store)
	projectStore := dbgorm.NewProjectStore(store, ideaStore)
	chatStore := dbgorm.NewChatStore(store)

	timeout := time.Duration(cfg.GenerationTimeoutSecs) * time.Second

	chatClient := assistant.NewCLI(cfg.ChatAssistantBin, timeout)
	registry := chat.NewRegistry()
	responder := chat.NewResponder(chatStore, projectStore, chatClient, registry)
	runner := analysis.NewRunner(projectStore)

	// The generation subprocess defaults to our own one-shot binary.
	generateCmd := generation.NewCommand(cfg.GenerateCmd, timeout)

	retention := time.Duration(cfg.LogRetentionDays) * 24 * time.Hour
	sched := scheduler.New(generateCmd, logStore, cfg.ScheduleHour, retention)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop()

	// Changes to the methodology document take effect on the next
	// generation run; removal is logged so a failing run is explicable.
	methodologyWatch, err := watcher.New(cfg.MethodologyPath, func() {
		log.Info().Str("path", cfg.MethodologyPath).Msg("Methodology document changed")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Methodology watcher unavailable")
	} else if err := methodologyWatch.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start methodology watcher")
	} else {
		defer methodologyWatch.Stop()
	}

	svc := server.NewService(server.Options{
		Version:     Version,
		Config:      cfg,
		Store:       store,
		Registry:    registry,
		Responder:   responder,
		Runner:      runner,
		Scheduler:   sched,
		GenerateCmd: generateCmd,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("version", Version).Msg("inspo server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown did not finish cleanly")
	}

	svc.Shutdown()
	log.Info().Msg("Shutdown complete")
}
