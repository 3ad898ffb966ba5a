package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agendasalud/payment-service/internal/config"
	"github.com/agendasalud/payment-service/internal/infrastructure/database"
	httpServer "github.com/agendasalud/payment-service/internal/infrastructure/http"
	"github.com/agendasalud/payment-service/internal/infrastructure/mercadopago"
	"github.com/agendasalud/payment-service/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, logger); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	repos := database.NewRepositories(db, logger)

	// Initialize MercadoPago client
	mpClient := mercadopago.NewClient(
		cfg.MercadoPago.AccessToken,
		cfg.MercadoPago.BaseURL,
		cfg.MercadoPago.RequestTimeout,
		logger,
	)

	// Initialize usecases
	lifecycle := usecase.NewSubscriptionLifecycle(repos.Subscription, logger)
	lifecycle.OnTransition(usecase.ProfessionalCascadeHook(repos.Professional, logger))

	webhookService := usecase.NewWebhookService(
		mpClient,
		repos.WebhookEvent,
		repos.Payment,
		repos.Plan,
		repos.Subscription,
		repos.Appointment,
		lifecycle,
		logger,
	)

	subscriptionService := usecase.NewSubscriptionService(
		repos.Subscription,
		repos.Plan,
		repos.Professional,
		repos.Payment,
		mpClient,
		lifecycle,
		cfg.Service.FrontendURL,
		cfg.Service.Name,
		logger,
	)

	depositService := usecase.NewDepositService(
		repos.Appointment,
		repos.Professional,
		mpClient,
		logger,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start renewal worker
	worker := usecase.NewRenewalWorker(
		repos.Subscription,
		repos.Plan,
		repos.Professional,
		mpClient,
		lifecycle,
		usecase.RenewalWorkerConfig{
			Interval:    cfg.Worker.Interval,
			DueWindow:   cfg.Worker.DueWindow,
			GracePeriod: cfg.Worker.GracePeriod,
			BatchSize:   cfg.Worker.BatchSize,
		},
		logger,
	)
	worker.Start(ctx)

	// Start HTTP server
	srv := httpServer.NewServer(cfg, logger, &httpServer.Services{
		Webhooks:      webhookService,
		Subscriptions: subscriptionService,
		Deposits:      depositService,
		Professionals: repos.Professional,
		Plans:         repos.Plan,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")

	worker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
