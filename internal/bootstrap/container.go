package bootstrap

import (
	"context"
	"log"
	"time"

	"ai-taskchat-be/internal/config"
	"ai-taskchat-be/internal/controller"
	"ai-taskchat-be/internal/pkg/logger"
	"ai-taskchat-be/internal/pkg/serverutils"
	"ai-taskchat-be/internal/repository/unitofwork"
	"ai-taskchat-be/internal/service"
	"ai-taskchat-be/pkg/llm/factory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const securityTopic = "security.events"

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Loggers (Exposed so main.go can Sync on shutdown)
	SysLogger      logger.ILogger
	SecurityLogger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	securityLogger := logger.NewIsolatedLogger(cfg.App.SecurityLogPath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Redis (rate-limit counters; limiter degrades to in-memory if down)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 4. Reasoning Engine Provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIBaseURL,
		cfg.Ai.OpenAIAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Services
	publisherService := service.NewPublisherService(securityTopic, pubSub, sysLogger)
	consumerService := service.NewConsumerService(pubSub, securityTopic, securityLogger)

	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		publisherService,
		sysLogger,
		service.ChatConfig{
			HistoryLimit:  cfg.Chat.HistoryLimit,
			AgentTimeout:  time.Duration(cfg.Chat.AgentTimeoutSeconds) * time.Second,
			MaxToolRounds: cfg.Chat.MaxToolRounds,
		},
	)

	// 6. Controllers
	authMiddleware := serverutils.NewJwtMiddleware(cfg.Auth.JwtSecret, func(ctx *fiber.Ctx, reason string) {
		publisherService.PublishSecurityEvent(ctx.UserContext(), service.SecurityEventUnauthorized, "", ctx.Path(), map[string]interface{}{
			"reason": reason,
			"ip":     ctx.IP(),
		})
	})
	rateLimiter := serverutils.NewRateLimiter(rdb, func(ctx *fiber.Ctx, caller string) {
		publisherService.PublishSecurityEvent(ctx.UserContext(), service.SecurityEventRateLimited, caller, ctx.Path(), map[string]interface{}{
			"ip": ctx.IP(),
		})
	})
	chatController := controller.NewChatController(
		chatService,
		authMiddleware,
		rateLimiter,
		cfg.RateLimit.ChatPerMinute,
		cfg.RateLimit.HistoryPerMinute,
	)

	return &Container{
		ChatController:  chatController,
		ConsumerService: consumerService,
		SysLogger:       sysLogger,
		SecurityLogger:  securityLogger,
	}
}
