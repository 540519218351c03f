package api

import (
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/api/handlers"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/auth"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/middleware"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	validationHandler *handlers.ValidationHandler,
	conscriptHandler *handlers.ConscriptHandler,
	examinationHandler *handlers.ExaminationHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
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

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes
	api := app.Group("/user")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	// Validation routes
	validation := protected.Group("/validation")
	validation.Post("/check-conclusion", validationHandler.CheckConclusion)
	validation.Post("/check-contradictions", validationHandler.CheckContradictions)
	validation.Post("/search-diseases", validationHandler.SearchDiseases)
	validation.Get("/results/:conscriptID", validationHandler.GetSavedResults)

	// Examination routes
	examinations := protected.Group("/examinations")
	examinations.Post("/", examinationHandler.Create)
	examinations.Get("/:examinationID", examinationHandler.GetByID)

	// Conscript routes
	conscripts := protected.Group("/conscripts")
	conscripts.Get("/:conscriptID/completeness", conscriptHandler.GetCompleteness)

	return app
}
