package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faqbot/internal/api"
	"faqbot/internal/api/handlers"
	"faqbot/internal/bootstrap"
	"faqbot/internal/models"
	"faqbot/internal/repository"
	"faqbot/internal/service"
	"faqbot/pkg/auth"
	"faqbot/pkg/config"
	"faqbot/pkg/logger"

	"go.uber.org/zap"
)

// @title FAQ Bot API
// @version 1.0
// @description Intent matching assistant for legal announcements.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(appLogger)

	appLogger.Info("Starting FAQ bot")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	kb, err := bootstrap.LoadKnowledgeBase(ctx, stores.Knowledge, cfg.Knowledge.CreateDefault, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load knowledge base", zap.Error(err))
	}

	engine, err := bootstrap.NewEngine(ctx, cfg, kb, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize matcher", zap.Error(err))
	}
	defer func() {
		if err := engine.Close(); err != nil {
			appLogger.Error("Failed to close engine", zap.Error(err))
		}
	}()

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Services
	authService := service.NewAuthService(stores.Users, jwtManager, appLogger)
	if err := authService.EnsureAdmin(ctx, cfg.Admin); err != nil {
		appLogger.Fatal("Failed to create administrator", zap.Error(err))
	}

	knowledgeService := service.NewKnowledgeService(stores.Knowledge, engine.Matcher, appLogger)
	engine.Track(knowledgeService)

	var conversations repository.ConversationStore
	if cfg.Chat.LogConversation {
		conversations = stores.Conversations
	}
	chatService := service.NewChatService(engine.Matcher, conversations, newRand(cfg.Chat.Seed), cfg.Chat.HistorySize, appLogger)

	if fileStore, ok := stores.Knowledge.(*repository.FileKnowledgeStore); ok && cfg.Knowledge.Watch {
		go func() {
			err := fileStore.Watch(ctx, 500*time.Millisecond, func(kb *models.KnowledgeBase) {
				if err := knowledgeService.Replace(kb); err != nil {
					appLogger.Error("Failed to install reloaded knowledge base", zap.Error(err))
				}
			})
			if err != nil {
				appLogger.Error("Knowledge base watcher stopped", zap.Error(err))
			}
		}()
	}

	app := api.SetupRouter(cfg.Server, api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, appLogger),
		Chat:      handlers.NewChatHandler(chatService, engine.Matcher, appLogger),
		Knowledge: handlers.NewKnowledgeHandler(knowledgeService, appLogger),
		Health:    handlers.NewHealthHandler(engine.Matcher),
	}, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

// newRand returns a generator seeded with seed, or with the clock when seed is 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
