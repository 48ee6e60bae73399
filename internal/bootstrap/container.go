package bootstrap

import (
	"context"
	"log"

	"ai-counselor-be/internal/config"
	"ai-counselor-be/internal/controller"
	"ai-counselor-be/internal/handler"
	"ai-counselor-be/internal/pkg/logger"
	"ai-counselor-be/internal/repository/memory"
	"ai-counselor-be/internal/repository/unitofwork"
	"ai-counselor-be/internal/service"
	"ai-counselor-be/internal/websocket"
	"ai-counselor-be/pkg/chat/history"
	"ai-counselor-be/pkg/llm/factory"

	pktNats "ai-counselor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Events
	EventsHandler *handler.EventsHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.Provider,
		cfg.Ai.APIKey,
		cfg.Ai.BaseURL,
		cfg.Ai.ModelName,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.Provider, cfg.Ai.ModelName)

	// In-memory title state (tracks which sessions keep a user-chosen title)
	titleStates := memory.NewTitleStateRepository()

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
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

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	publisherService := service.NewPublisherService(cfg.Events.ChatTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Events.ChatTopic,
		wsHub,
		natsPub,
		sysLogger,
	)

	historyLoader := history.NewLoader(uowFactory)

	userService := service.NewUserService(uowFactory)
	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		historyLoader,
		titleStates,
		publisherService,
		sysLogger,
	)

	// WebSocket entrypoint
	eventsHandler := handler.NewEventsHandler(wsHub, wsLogger)

	return &Container{
		EventsHandler: eventsHandler,
		WebSocketHub:  wsHub,

		ChatController: controller.NewChatController(chatService, userService, sysLogger),

		ConsumerService: consumerService,
	}
}
