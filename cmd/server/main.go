package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
	"github.com/rs/zerolog"

	config "github.com/maheshrc27/insights-pipeline/configs"
	"github.com/maheshrc27/insights-pipeline/internal/api/handlers"
	"github.com/maheshrc27/insights-pipeline/internal/api/middleware"
	"github.com/maheshrc27/insights-pipeline/internal/database"
	"github.com/maheshrc27/insights-pipeline/internal/graph"
	job "github.com/maheshrc27/insights-pipeline/internal/jobs"
	"github.com/maheshrc27/insights-pipeline/internal/logger"
	"github.com/maheshrc27/insights-pipeline/internal/metrics"
	"github.com/maheshrc27/insights-pipeline/internal/pipeline"
	"github.com/maheshrc27/insights-pipeline/internal/repository"
	"github.com/maheshrc27/insights-pipeline/internal/service"
)

const ingestTimeout = 30 * time.Minute

func main() {
	envErr := godotenv.Load()

	cfg := config.LoadConfig()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid logger configuration: %v\n", err)
		os.Exit(pipeline.ExitStartup)
	}
	if envErr != nil {
		log.Warn().Err(envErr).Msg("failed to load environment variables")
	}

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(ctx, db, log); err != nil {
		closeDB(db, log)
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	reg := metrics.InitRegistry()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			log.Error().Err(err).Str("path", c.Path()).Int("status", code).Msg("request failed")
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	hashtagRepo := repository.NewHashtagRepository(db)
	insightRepo := repository.NewInsightRepository(db)

	graphClient := graph.NewClient(cfg.Instagram, log)
	ingestService := service.NewIngestService(db, postRepo, hashtagRepo, insightRepo, log)
	dashboardService := service.NewDashboardService(postRepo, hashtagRepo, insightRepo)

	storageService, err := service.NewStorageService(ctx, cfg.Storage, log)
	if err != nil {
		log.Warn().Err(err).Msg("media uploads disabled")
	}
	scheduleService := service.NewScheduleService(storageService, graphClient, cfg.Instagram.AppAccessToken, cfg.OptimalPostingHour, log)

	health := handlers.NewHealthHandler(db)
	app.Get("/", health.Index)
	app.Get("/healthz", health.Healthz)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Use(middleware.NewAPIKeyMiddleware(cfg.APIKey).Handler())

	dashboard := handlers.NewDashboardHandler(dashboardService, cfg.Instagram.AccountID, log)
	api.Get("/dashboard/summary", dashboard.Summary)
	api.Get("/dashboard/content-calendar", dashboard.ContentCalendar)
	api.Get("/dashboard/insights-overview", dashboard.InsightsOverview)
	api.Get("/reporting/account-summary/:account_id", dashboard.AccountSummary)
	api.Get("/reporting/follower-demographics/:account_id", dashboard.FollowerDemographics)

	schedule := handlers.NewScheduleHandler(scheduleService, log)
	api.Post("/schedule-ig-post", schedule.ScheduleInstagramPost)

	// cron jobs
	c := cron.New()
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("ingestion disabled")
	} else {
		ingestPipeline := pipeline.New(graphClient, ingestService, graphClient.AccountID(), log)
		ingestJob := job.NewIngestJob(ingestPipeline, ingestTimeout, log)

		ingest := handlers.NewIngestHandler(ingestJob)
		api.Post("/ingest/run", ingest.Run)
		api.Get("/ingest/last", ingest.LastReport)

		if cfg.IngestSchedule != "" {
			if err := c.AddFunc(cfg.IngestSchedule, ingestJob.RunScheduled); err != nil {
				log.Error().Err(err).Str("schedule", cfg.IngestSchedule).Msg("invalid ingest schedule")
			} else {
				log.Info().Str("schedule", cfg.IngestSchedule).Msg("scheduled ingestion enabled")
			}
		}
	}
	c.Start()

	go func() {
		if err := app.Listen(cfg.ServerAddr); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Str("addr", cfg.ServerAddr).Msg("server is running")

	gracefulShutdown(app, c, db, log)
}

func closeDB(db *sql.DB, log zerolog.Logger) {
	log.Info().Msg("closing database connection")
	database.Close(db, log)
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, db *sql.DB, log zerolog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Info().Msg("shutting down server")

	c.Stop()
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Error().Err(err).Msg("failed to shut down server")
	}

	closeDB(db, log)
	log.Info().Msg("server shutdown complete")
}
