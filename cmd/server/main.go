package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rephrase-server/internal/config"
	"rephrase-server/internal/handler"
	"rephrase-server/internal/repository"
	"rephrase-server/internal/service"
	"rephrase-server/migrations"
	"rephrase-server/pkg/authutils"
	"rephrase-server/pkg/database"
	"rephrase-server/pkg/logger"
	"rephrase-server/pkg/migration"
)

const (
	rabbitMQMaxRetries = 10
	rabbitMQRetryDelay = 3 * time.Second
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Encoding:    cfg.LogEncoding,
		ServiceName: "rephrase-server",
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("llmProvider", cfg.LLMProvider),
		zap.String("port", cfg.ServerPort))

	ctx := context.Background()

	// --- PostgreSQL ---
	pool, err := database.NewPool(ctx, cfg.PoolConfig(), log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	if cfg.RunMigrations {
		migrator := migration.NewMigrator(migration.Config{MigrationsFS: migrations.FS}, pool, log)
		if err := migrator.Up(); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// --- Generation backend ---
	llm, err := service.NewLLMProvider(cfg, log)
	if err != nil {
		log.Fatal("Failed to create LLM provider", zap.Error(err))
	}

	// --- Replay cache (optional) ---
	replayCache := service.NewNoopReplayCache()
	if cfg.RedisAddr != "" {
		redisClient, err := setupRedis(ctx, cfg, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		replayCache = service.NewRedisReplayCache(redisClient, cfg.ReplayCacheTTL, log)
	} else {
		log.Info("REDIS_ADDR not set, replay cache disabled")
	}

	// --- Usage events (optional) ---
	publisher := service.NewNoopUsagePublisher()
	if cfg.RabbitMQURL != "" {
		conn, err := connectRabbitMQ(cfg.RabbitMQURL, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
		}
		defer ch.Close()

		publisher, err = service.NewRabbitMQUsagePublisher(ch, cfg.UsageEventsQueue, log)
		if err != nil {
			log.Fatal("Failed to create usage publisher", zap.Error(err))
		}
	} else {
		log.Info("RABBITMQ_URL not set, usage events disabled")
	}

	// --- Dependency Injection ---
	rephraseService := service.NewRephraseService(service.Deps{
		DB:        pool,
		Users:     repository.NewPgUserRepository(log),
		Styles:    repository.NewPgStyleRepository(log),
		Rephrases: repository.NewPgRephraseRepository(log),
		LLM:       llm,
		Cache:     replayCache,
		Publisher: publisher,
		Logger:    log,
	})

	verifier, err := authutils.NewJWTVerifier(cfg.JWTSecret, log)
	if err != nil {
		log.Fatal("Failed to create JWT verifier", zap.Error(err))
	}

	// --- HTTP Server (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	}
	router := handler.NewRouter(handler.NewRephraseHandler(rephraseService, log), verifier.VerifyToken, log)

	// WriteTimeout покрывает генерацию целиком.
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}

// setupRedis создаёт клиент Redis и проверяет соединение.
func setupRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Info("Connected to Redis", zap.String("address", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return client, nil
}

// connectRabbitMQ подключается к RabbitMQ с несколькими попытками.
func connectRabbitMQ(rawURL string, log *zap.Logger) (*amqp.Connection, error) {
	log = log.With(zap.String("url", maskURL(rawURL)))

	var lastErr error
	for attempt := 1; attempt <= rabbitMQMaxRetries; attempt++ {
		conn, err := amqp.Dial(rawURL)
		if err == nil {
			log.Info("Connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				closeErr := <-conn.NotifyClose(make(chan *amqp.Error, 1))
				if closeErr != nil {
					log.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				}
			}()
			return conn, nil
		}
		lastErr = err
		log.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", rabbitMQMaxRetries),
			zap.Error(err))
		if attempt < rabbitMQMaxRetries {
			time.Sleep(rabbitMQRetryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", rabbitMQMaxRetries, lastErr)
}

// maskURL прячет учётные данные для логов.
func maskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
