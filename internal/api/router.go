package api

import (
	"os"
	"path/filepath"

	"faqbot/docs"
	"faqbot/internal/api/handlers"
	"faqbot/pkg/auth"
	"faqbot/pkg/config"
	"faqbot/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by SetupRouter.
type Handlers struct {
	Auth      *handlers.AuthHandler
	Chat      *handlers.ChatHandler
	Knowledge *handlers.KnowledgeHandler
	Health    *handlers.HealthHandler
}

func SetupRouter(serverCfg config.ServerConfig, h Handlers, jwtManager *auth.JWTManager, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// the docs import registers the swagger spec through init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)

	if webStaticPath := findWebStaticPath(); webStaticPath != "" {
		appLogger.Info("Serving chat page", zap.String("path", webStaticPath))
		app.Static("/static", webStaticPath)
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendFile(filepath.Join(webStaticPath, "index.html"))
		})
	} else {
		appLogger.Warn("Web static directory not found, chat page will not be served")
	}

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	// Public API
	v1 := app.Group("/api/v1")
	v1.Post("/chat", h.Chat.Chat)
	v1.Get("/chat/:session/history", h.Chat.History)
	v1.Post("/match", h.Chat.Match)
	v1.Get("/entries", h.Knowledge.ListEntries)
	v1.Get("/entries/:kind/:id", h.Knowledge.GetEntry)
	v1.Get("/contact", h.Knowledge.Contact)

	// Protected routes
	admin := v1.Group("/admin", middleware.AuthMiddleware(jwtManager, appLogger))
	admin.Post("/categories", h.Knowledge.SaveCategory)
	admin.Post("/faq", h.Knowledge.SaveFaq)
	admin.Delete("/entries/:kind/:id", h.Knowledge.DeleteEntry)
	admin.Get("/insights", h.Chat.Insights)

	return app
}

// findWebStaticPath looks for web/static relative to the working directory.
func findWebStaticPath() string {
	for _, path := range []string{"web/static", "../web/static", "../../web/static"} {
		if fileExists(filepath.Join(path, "index.html")) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
