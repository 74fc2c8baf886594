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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/cache"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/config"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/email"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/events"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/handlers"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories/casdoor"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories/postgres"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/scheduler"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/validator"
	"github.com/aidrizi23/TestPlatform2-sub000/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Events and email
	publisher, sender, emailPublisher, err := buildMessaging(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize messaging: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Cache:     cache.NewCacheManager(redisClient),
		Publisher: publisher,
		Sender:    sender,
		Logger:    slogLogger,
		Validator: validator.New(),
	}, services.ServiceManagerConfig{
		PublicBaseURL:      cfg.PublicBaseURL,
		LenientMultiSelect: cfg.LenientMultiSelect,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Background loops
	loopCtx, stopLoops := context.WithCancel(context.Background())
	automaton := scheduler.NewAutomaton(repo.Test(), publisher, slogLogger, cfg.SchedulerInterval)
	sweeper := scheduler.NewSweeper(serviceManager.Subscription(), slogLogger, cfg.SubscriptionSweepInterval)
	automaton.Start(loopCtx)
	sweeper.Start(loopCtx)

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, logger, cfg.Casdoor, repo.User(), cfg.BillingWebhookToken)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.CORSAllowedOrigins)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Loops first so no tick starts against a closing database
	stopLoops()
	automaton.Stop()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	if emailPublisher != nil {
		if err := emailPublisher.Close(); err != nil {
			logger.Error("Failed to close email publisher", "error", err)
		}
	}

	// Closes the database pool and the Redis client
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown repositories", "error", err)
	}

	logger.Info("Server exited")
}

// buildMessaging picks Kafka when brokers are configured and in-process delivery otherwise.
// The returned email publisher is nil when emails are only logged.
func buildMessaging(cfg *config.Config, logger *slog.Logger) (events.EventPublisher, email.Sender, events.EventPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		if cfg.IsProduction() {
			logger.Warn("No Kafka brokers configured; events stay in process and emails are not delivered")
		}
		return events.NewInProcessEventPublisher(cfg.EventTopic, logger), email.NewLogSender(logger), nil, nil
	}

	publisher, err := events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.EventTopic, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	emailPublisher, err := events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.EmailTopic, logger)
	if err != nil {
		_ = publisher.Close()
		return nil, nil, nil, err
	}
	return publisher, email.NewEventSender(emailPublisher, cfg.EmailFrom, logger), emailPublisher, nil
}
