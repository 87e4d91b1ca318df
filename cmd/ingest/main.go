package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	config "github.com/maheshrc27/insights-pipeline/configs"
	"github.com/maheshrc27/insights-pipeline/internal/database"
	"github.com/maheshrc27/insights-pipeline/internal/graph"
	"github.com/maheshrc27/insights-pipeline/internal/logger"
	"github.com/maheshrc27/insights-pipeline/internal/metrics"
	"github.com/maheshrc27/insights-pipeline/internal/pipeline"
	"github.com/maheshrc27/insights-pipeline/internal/repository"
	"github.com/maheshrc27/insights-pipeline/internal/service"
)

const pushJobName = "ig_ingest"

func main() {
	os.Exit(run())
}

func run() int {
	envErr := godotenv.Load()

	cfg := config.LoadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logger configuration: %v\n", err)
		return pipeline.ExitStartup
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded")
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return pipeline.ExitStartup
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, 1)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		return pipeline.ExitStartup
	}
	defer database.Close(db, log)

	if err := database.Migrate(ctx, db, log); err != nil {
		log.Error().Err(err).Msg("failed to apply schema")
		return pipeline.ExitStartup
	}

	reg := metrics.InitRegistry()

	client := graph.NewClient(cfg.Instagram, log)
	store := service.NewIngestService(
		db,
		repository.NewPostRepository(db),
		repository.NewHashtagRepository(db),
		repository.NewInsightRepository(db),
		log,
	)

	report := pipeline.New(client, store, client.AccountID(), log).Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.PushgatewayURL, pushJobName, reg); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}

	return report.ExitCode()
}
