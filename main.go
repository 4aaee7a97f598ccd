package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cue-club-system/handlers"
	"cue-club-system/models"
	"cue-club-system/realtime"
	"cue-club-system/services"
	"cue-club-system/utils"
	"cue-club-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Msg(eris.ToString(err, true))
	}
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogPretty)

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	matchService := services.NewMatchService(db, hub)
	authService := services.NewManagerAuthService(db, utils.Duration(cfg.ManagerSessionTTL))

	sweeper, err := matchService.StartStaleMatchSweeper(ctx,
		utils.Duration(cfg.PendingSweepInterval), utils.Duration(cfg.PendingMatchTTL))
	if err != nil {
		logger.Fatal().Msg(eris.ToString(err, true))
	}

	if cfg.ArchiveEnabled() {
		archiver, err := utils.NewR2ArchiverFromConfig(ctx, cfg)
		if err != nil {
			logger.Fatal().Msg(eris.ToString(err, true))
		}
		workers.NewMatchArchiveWorker(db, archiver, utils.Duration(cfg.ArchiveInterval)).Start(ctx)
	} else {
		logger.Warn().Msg("⚠️  R2 bucket not configured, completed matches will not be archived")
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Session-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupManagerRoutes(app, authService)
	handlers.SetupMatchRoutes(app, matchService, authService)
	handlers.SetupRealtimeRoutes(app, hub, matchService, authService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("✅ Server running")
	logger.Info().Str("origins", cfg.Origins()).Msg("✅ CORS configured")

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	if err := sweeper.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown")
	}
	hub.Shutdown()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}
