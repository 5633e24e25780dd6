package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/calmapp/counselbook/internal/app"
	"github.com/calmapp/counselbook/internal/config"
	"github.com/calmapp/counselbook/internal/notify"
	"github.com/calmapp/counselbook/internal/repository"
	"github.com/calmapp/counselbook/internal/service"
	"github.com/calmapp/counselbook/internal/video"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	slotRepo := repository.NewSlotRepository(pool)
	consultationRepo := repository.NewConsultationRepository(pool)

	var provisioner video.Provisioner = video.Disabled{}
	if cfg.VideoAPIURL != "" {
		provisioner = video.NewClient(cfg.VideoAPIURL, cfg.VideoAPIToken)
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
	if cfg.NotifyURL != "" {
		dispatcher = notify.NewWebhookDispatcher(cfg.NotifyURL, cfg.NotifyToken)
	}

	bookingService := service.NewBookingService(slotRepo, consultationRepo, dispatcher, logger)
	consultationService := service.NewConsultationService(consultationRepo, slotRepo, provisioner, dispatcher, logger)

	sweeper := app.NewSweeper(consultationService, bookingService, cfg.SweepInterval, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	logger.Info("counseld started",
		zap.String("environment", cfg.Environment),
		zap.Duration("sweep_interval", cfg.SweepInterval),
	)

	<-ctx.Done()
	logger.Info("Shutting down")
}
