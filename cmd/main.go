/**
 * @description
 * This is the main entry point for the loan service. Its responsibility is to
 * initialize all components and run the HTTP API, the bank-link event
 * consumer, the notification outbox dispatcher and the cron scheduler.
 *
 * Key features:
 * - Loads application configuration from environment variables.
 * - Establishes and manages a connection pool to the PostgreSQL database.
 * - Optionally connects Redis for login attempt limiting.
 * - Wires up the services with their repositories and clients.
 * - Starts everything and implements graceful shutdown.
 *
 * @dependencies
 * - The service's internal packages for config, app logic, storage, and external clients.
 * - pgxpool for database connection, godotenv for local config, and rabbitmq for messaging.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/loanapp/loan-service/internal/api"
	"github.com/loanapp/loan-service/internal/app"
	"github.com/loanapp/loan-service/internal/config"
	"github.com/loanapp/loan-service/internal/store"
	"github.com/loanapp/loan-service/pkg/plaidclient"
	"github.com/loanapp/loan-service/pkg/rabbitmq"
	"github.com/loanapp/loan-service/pkg/ratelimit"
	"github.com/loanapp/loan-service/pkg/token"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Establish database connection pool.
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database URL: %v\n", err)
	}
	dbConfig.MaxConns = 50
	dbConfig.MinConns = 5
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer dbpool.Close()
	log.Println("Database connection established")

	// Redis is optional; without it attempt limiting degrades to allow-all.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Unable to parse redis URL: %v\n", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}
	loginLimiter := ratelimit.NewAttemptLimiter(redisClient, "login", 10, 15*time.Minute)

	tokens, err := token.NewManager(cfg.JWTSecret, cfg.JWTDuration)
	if err != nil {
		log.Fatalf("Unable to set up token manager: %v\n", err)
	}

	// Set up dependencies.
	applicationRepo := store.NewPostgresApplicationRepository(dbpool)
	userRepo := store.NewPostgresUserRepository(dbpool)
	verificationRepo := store.NewPostgresVerificationRepository(dbpool)
	outboxRepo := store.NewPostgresOutboxRepository(dbpool)
	plaidClient := plaidclient.NewClient(cfg.PlaidBaseURL, cfg.PlaidClientID, cfg.PlaidSecret, cfg.AppName)

	// Setup services
	applicationService := app.NewApplicationService(applicationRepo, userRepo, cfg.AllowMultipleApplications, logger)
	authService := app.NewAuthService(userRepo, verificationRepo, outboxRepo, tokens, loginLimiter, cfg.FrontendURL, logger)
	bankLinkService := app.NewBankLinkService(userRepo, plaidClient, logger)
	reconciler := app.NewReconciler(userRepo, applicationRepo, logger)

	// Setup RabbitMQ consumer for bank-link events.
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer consumer.Close()

	go func() {
		log.Printf("Starting consumer for event '%s'...", app.RoutingKeyBankLinked)
		err := consumer.Consume(app.UserEventsExchange, "loan_service_bank_linked", app.RoutingKeyBankLinked, reconciler.HandleBankLinkCompletedEvent)
		if err != nil {
			log.Printf("Consumer error: %v", err) // Log as non-fatal
		}
	}()

	// Start the notification outbox dispatcher.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	dispatcher := app.NewOutboxDispatcher(outboxRepo, cfg.RabbitMQURL, logger)
	go dispatcher.Run(dispatcherCtx)

	// Start the cron scheduler for the reconcile sweep and verification purge.
	scheduler := app.NewScheduler(reconciler, verificationRepo, cfg.ReconcileSweepSchedule, cfg.VerificationPurgeSchedule, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Setup and start HTTP server.
	router := api.NewRouter(cfg, tokens, applicationService, authService, bankLinkService)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	log.Println("Loan service is running with API, event consumer and outbox dispatcher.")

	// Wait for termination signal for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down loan-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
