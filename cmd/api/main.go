package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/promptvault-api/internal/config"
	"github.com/noah-isme/promptvault-api/internal/database"
	"github.com/noah-isme/promptvault-api/internal/handler"
	"github.com/noah-isme/promptvault-api/internal/middleware"
	"github.com/noah-isme/promptvault-api/internal/models"
	"github.com/noah-isme/promptvault-api/internal/repository"
	"github.com/noah-isme/promptvault-api/internal/router"
	"github.com/noah-isme/promptvault-api/internal/service"
	"github.com/noah-isme/promptvault-api/pkg/ai"
	cloud "github.com/noah-isme/promptvault-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Prompt{}, &models.PromptEvaluation{}, &models.PromptAutoTag{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured, scoring stats are cached in process")
	}

	var natsConn *nats.Conn
	natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var storage service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluator, tagger, batch, provider := buildAI(cfg, logger)

	promptRepo := repository.NewPromptRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	publisher := service.NewNATSPublisher(natsConn, cfg.EventSubject, logger)
	statsCache := service.NewLocalStatsCache(cfg.StatsCacheTTL)
	if redisClient != nil {
		statsCache = service.NewRedisStatsCache(redisClient, cfg.StatsCacheTTL, logger)
	}
	evaluationService := service.NewEvaluationService(
		promptRepo,
		evaluationRepo,
		evaluator,
		tagger,
		batch,
		publisher,
		statsCache,
		validate,
		service.EvaluationOptions{Provider: provider, MaxBatchItems: cfg.BatchMaxItems},
		logger,
	)
	promptService := service.NewPromptService(promptRepo, evaluationService, storage, validate, service.PromptOptions{
		MaxUploadMB:      cfg.UploadMaxSizeMB,
		EvaluateOnCreate: cfg.EvaluateOnCreate,
	}, logger)

	evaluateLimiter := middleware.RateLimit("evaluate", cfg.EvaluateRateLimit, cfg.EvaluateRateWindow)
	promptHandler := handler.NewPromptHandler(promptService, evaluationService, evaluateLimiter, logger)
	statsHandler := handler.NewStatsHandler(evaluationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
		ReadTimeout:  15 * time.Second,
		// Batch requests wait on paced AI calls.
		WriteTimeout: 10 * time.Minute,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.IsDevelopment(),
	})
	router.Register(app, cfg, router.Dependencies{
		HealthProbes:  healthProbes(db, redisClient, natsConn),
		PromptHandler: promptHandler,
		StatsHandler:  statsHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

// buildAI returns nil components when no provider key is configured; evaluation routes then
// answer 503 while prompt storage and stats stay available.
func buildAI(cfg config.Config, logger zerolog.Logger) (ai.Evaluator, ai.Tagger, service.BatchRunner, string) {
	if !cfg.AIEnabled() {
		logger.Warn().Str("provider", cfg.AIProvider).Msg("no AI credentials configured, evaluation disabled")
		return nil, nil, nil, ""
	}

	var (
		completer ai.Completer
		model     string
		err       error
	)
	switch cfg.AIProvider {
	case "anthropic":
		model = cfg.AnthropicModel
		completer, err = ai.NewAnthropicCompleter(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: model})
	default:
		model = cfg.OpenAIModel
		completer, err = ai.NewOpenAICompleter(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: model, BaseURL: cfg.OpenAIBaseURL})
	}
	if err != nil {
		log.Fatalf("failed to create %s completer: %v", cfg.AIProvider, err)
	}

	evaluator, err := ai.NewPromptEvaluator(completer, ai.EvaluatorConfig{
		Model:       model,
		Temperature: cfg.EvalTemperature,
		MaxTokens:   cfg.EvalMaxTokens,
		CallTimeout: cfg.AICallTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create evaluator: %v", err)
	}

	tagger, err := ai.NewAutoTagger(completer, ai.TaggerConfig{
		Model:       model,
		Temperature: cfg.TagTemperature,
		MaxTokens:   cfg.TagMaxTokens,
		CallTimeout: cfg.AICallTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create tagger: %v", err)
	}

	batch, err := ai.NewBatchOrchestrator(evaluator, ai.BatchConfig{
		WindowSize:  cfg.BatchSize,
		WindowDelay: cfg.BatchDelay,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create batch orchestrator: %v", err)
	}

	logger.Info().Str("provider", completer.Provider()).Str("model", model).Msg("AI evaluation enabled")
	return evaluator, tagger, batch, completer.Provider()
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("nats connection " + natsConn.Status().String())
			}
			return nil
		}
	}
	return probes
}
