package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/api"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/api/handlers"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/repository"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/service"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/auth"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/logger"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/postgres"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/redisclient"

	"go.uber.org/zap"
)

// @title eMedosmotr AI API
// @version 1.0
// @description AI-валидация заключений военно-врачебной комиссии
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@emedosmotr.kz

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting eMedosmotr AI service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	criteriaRepo := repository.NewCriteriaRepository(db, appLogger)
	icd10Repo := repository.NewICD10Repository(db, appLogger)
	historyRepo := repository.NewHistoryRepository(db, appLogger)
	examRepo := repository.NewExaminationRepository(db, appLogger)
	analysisRepo := repository.NewAnalysisRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	var embeddingCache service.EmbeddingCache
	if cfg.Cache.Enabled {
		redisClient, err := redisclient.NewClient(ctx, &cfg.Redis, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			embeddingCache = service.NewRedisEmbeddingCache(redisClient, cfg.Cache.TTL, appLogger)
		}
	}

	llmService, err := service.NewLLMService(&cfg.GigaChat, &cfg.RAG, embeddingCache, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	// Load the regulation criteria and the ICD-10 reference into memory.
	// Embeddings are precomputed by the seed command and stored alongside
	// the rows, so startup does not call the embedding API.
	criteria, err := criteriaRepo.ListAll(ctx)
	if err != nil {
		appLogger.Fatal("Failed to load regulation criteria", zap.Error(err))
	}
	icd10Entries, err := icd10Repo.ListLeaves(ctx)
	if err != nil {
		appLogger.Fatal("Failed to load ICD-10 reference", zap.Error(err))
	}
	appLogger.Info("Reference data loaded",
		zap.Int("criteria", len(criteria)),
		zap.Int("icd10_codes", len(icd10Entries)))

	criteriaIndex := service.NewEmbeddingIndex(service.BuildCriteriaCorpus(criteria, appLogger), llmService, appLogger)
	diseaseIndex := service.NewEmbeddingIndex(service.BuildDiseaseCorpus(icd10Entries, appLogger), llmService, appLogger)

	ragService := service.NewRAGService(criteriaIndex, diseaseIndex, &cfg.RAG, appLogger)
	resolver := service.NewCategoryResolver(criteria, appLogger)
	detector := service.NewContradictionDetector(ragService, &cfg.RAG, appLogger)
	matcher := service.NewClinicalMatcher(ragService, llmService, resolver, &cfg.RAG, appLogger)
	validationService := service.NewValidationService(detector, matcher, historyRepo, analysisRepo, &cfg.RAG, llmService.ModelName(), appLogger)
	completenessService := service.NewCompletenessService(examRepo, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	validationHandler := handlers.NewValidationHandler(validationService, ragService, analysisRepo, appLogger)
	conscriptHandler := handlers.NewConscriptHandler(completenessService, appLogger)
	examinationHandler := handlers.NewExaminationHandler(examRepo, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, validationHandler, conscriptHandler, examinationHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
