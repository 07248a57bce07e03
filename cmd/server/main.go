package main

// @title           Task Service API
// @version         1.0
// @description     Real-time task management: REST endpoints and a WebSocket feed of task changes
// @host            localhost:8000
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	"task-service/internal/api/handlers"
	"task-service/internal/api/middleware"
	"task-service/internal/api/routes"
	"task-service/internal/config"
	"task-service/internal/database"
	"task-service/internal/events"
	"task-service/internal/repositories/postgres"
	"task-service/internal/services"
	"task-service/internal/tagging"
	"task-service/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	slog.SetDefault(config.NewLogger(cfg.Log, os.Stdout))
	slog.Info("Starting task server")

	scope, err := websocket.ParseScope(cfg.WebSocket.BroadcastScope)
	if err != nil {
		slog.Error("Invalid broadcast scope", "error", err)
		os.Exit(1)
	}

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Redis is optional: without it there is no presence and no rate limiting
	var (
		presence websocket.PresenceTracker
		guard    handlers.PresenceStats
		checker  handlers.PresenceChecker
		limiter  middleware.RateLimiter
	)
	if cfg.Redis.URI != "" {
		redisClient, err := database.NewRedisConnection(&cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		redisService := services.NewRedisService(redisClient)
		presenceGuard := websocket.NewPresenceGuard(redisService)
		presence, guard = presenceGuard, presenceGuard
		checker, limiter = redisService, redisService
	} else {
		slog.Warn("REDIS_URL not set, presence and rate limiting disabled")
	}

	ctx := context.Background()

	// Initialize WebSocket hub and dispatcher
	hub := websocket.NewHub(presence)
	metrics := websocket.NewBroadcastMetrics(100)
	metrics.SetSlowBroadcastHook(500*time.Millisecond, func(m websocket.BroadcastMetric) {
		slog.Warn("Slow broadcast", "kind", m.Kind, "duration", m.Duration, "delivered", m.Delivered, "failed", m.Failed)
	})
	dispatcher := websocket.NewDispatcher(hub, scope, metrics)

	var publisher services.EventPublisher = dispatcher
	var kafkaPublisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.InitKafkaProducer(&cfg.Kafka)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		kafkaPublisher = events.NewKafkaPublisher(producer, cfg.Kafka.Topic, cfg.Kafka.BufferSize)
		publisher = events.Fanout{dispatcher, kafkaPublisher}
		slog.Info("Mirroring task events to Kafka", "topic", cfg.Kafka.Topic)
	}

	userRepo := postgres.NewUserRepository(db)
	authService := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.ExpirationTime, userRepo)
	taskService := services.NewTaskService(postgres.NewTaskRepository(db), newTagger(ctx, &cfg.Tagging), publisher)

	// Initialize router with all dependencies
	router := routes.NewRouter(routes.Dependencies{
		Hub:            hub,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Auth:           authService,
		Tasks:          taskService,
		Users:          userRepo,
		Presence:       checker,
		PresenceStats:  guard,
		Limiter:        limiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AuthTimeout:    cfg.WebSocket.AuthTimeout,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
	})
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr, "scope", scope)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server, then drop the websocket clients it handed off
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	hub.Shutdown()

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			slog.Error("Failed to close Kafka producer", "error", err)
		}
	}

	slog.Info("Server stopped")
}

// newTagger chains the configured language models. With no API keys every
// task gets the default category.
func newTagger(ctx context.Context, cfg *config.TaggingConfig) *tagging.Tagger {
	var providers []tagging.Provider

	if cfg.GeminiAPIKey != "" {
		gemini, err := tagging.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			slog.Error("Gemini tagging disabled", "error", err)
		} else {
			providers = append(providers, gemini)
		}
	}

	if cfg.OpenAIAPIKey != "" {
		openai, err := tagging.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			slog.Error("OpenAI tagging disabled", "error", err)
		} else {
			providers = append(providers, openai)
		}
	}

	if len(providers) == 0 {
		slog.Warn("No tagging provider configured, tasks will be tagged as " + tagging.DefaultCategory)
	}
	return tagging.New(cfg.Timeout, providers...)
}
