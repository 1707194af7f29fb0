// Package main provides the one-shot idea generation binary. It is the
// subprocess the server and scheduler invoke, and prints the ID marker of
// the stored idea on success.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dailyinspo/inspo/internal/assistant"
	"github.com/dailyinspo/inspo/internal/config"
	dbgorm "github.com/dailyinspo/inspo/internal/db/gorm"
	"github.com/dailyinspo/inspo/internal/generation"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Stdout carries the ID marker, so all logging goes to stderr.
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

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

	store, err := dbgorm.NewStore(dbgorm.Config{
		Path:     cfg.DBPath,
		MaxConns: cfg.MaxConns,
		LogLevel: gormlogger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer store.Close()

	timeout := time.Duration(cfg.GenerationTimeoutSecs) * time.Second
	client := assistant.NewCLI(cfg.AssistantBin, timeout)
	methodology := generation.NewMethodology(cfg.MethodologyPath)

	pipeline := generation.NewPipeline(
		dbgorm.NewIdeaStore(store),
		dbgorm.NewGenerationLogStore(store),
		client,
		methodology,
		cfg.ContextIdeas,
	)

	id, err := pipeline.Run(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Generation failed")
		os.Exit(1)
	}

	log.Info().Int64("idea_id", id).Msg("Idea generated")
	fmt.Printf("%s%d\n", generation.IDMarker, id)
}
