package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/repository"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/service"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/config"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/logger"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/postgres"
	"github.com/NurlanOmarov/eMedosmotr-AI/pkg/redisclient"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	criteriaRepo := repository.NewCriteriaRepository(db, appLogger)
	icd10Repo := repository.NewICD10Repository(db, appLogger)

	// The embedding cache makes repeated seeding runs cheap: texts that
	// were already embedded are served from Redis instead of the API.
	var embeddingCache service.EmbeddingCache
	if cfg.Cache.Enabled {
		redisClient, err := redisclient.NewClient(ctx, &cfg.Redis, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, embeddings will not be cached", zap.Error(err))
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

	appLogger.Info("Starting database seeding...")

	seedDir := filepath.Join("cmd", "seed")

	if err := seedCriteria(ctx, filepath.Join(seedDir, "point_criteria.json"), criteriaRepo, llmService, appLogger); err != nil {
		appLogger.Fatal("Failed to seed regulation criteria", zap.Error(err))
	}
	if err := seedICD10(ctx, filepath.Join(seedDir, "icd10_codes.json"), icd10Repo, llmService, appLogger); err != nil {
		appLogger.Fatal("Failed to seed ICD-10 reference", zap.Error(err))
	}

	appLogger.Info("Database seeding completed successfully!")
}

// criterionRow mirrors one entry of the point_criteria.json export.
type criterionRow struct {
	ID          int     `json:"id"`
	Article     int     `json:"article"`
	Subpoint    string  `json:"subpoint"`
	PointName   string  `json:"point_name"`
	Description string  `json:"description"`
	Keywords    string  `json:"keywords"`
	Graph1      *string `json:"graph_1"`
	Graph2      *string `json:"graph_2"`
	Graph3      *string `json:"graph_3"`
	Graph4      *string `json:"graph_4"`
}

// icd10Row mirrors one entry of the icd10_codes.json export.
type icd10Row struct {
	ID     int    `json:"id"`
	Code   string `json:"code"`
	NameRU string `json:"name_ru"`
	NameKZ string `json:"name_kz"`
	Level  int    `json:"level"`
}

// seedCriteria loads the regulation table export, embeds each criterion
// description and inserts the rows that are not in the database yet.
func seedCriteria(
	ctx context.Context,
	path string,
	repo *repository.CriteriaRepository,
	llmService *service.LLMService,
	logger *zap.Logger,
) error {
	var rows []criterionRow
	if err := readJSONFile(path, &rows); err != nil {
		return err
	}
	logger.Info("Seeding regulation criteria", zap.String("path", path), zap.Int("rows", len(rows)))

	now := time.Now()
	created := 0
	for _, row := range rows {
		subpoint := models.NormalizeSubpoint(row.Subpoint)

		if _, err := repo.GetByArticleSubpoint(ctx, row.Article, subpoint); err == nil {
			continue
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("lookup article %d subpoint %q: %w", row.Article, subpoint, err)
		}

		text := embeddingTextForCriterion(row)
		embedding, err := llmService.CreateEmbedding(ctx, text)
		if err != nil {
			return fmt.Errorf("embed article %d subpoint %q: %w", row.Article, subpoint, err)
		}

		criterion := &models.RegulationCriterion{
			ID:          row.ID,
			Article:     row.Article,
			Subpoint:    subpoint,
			PointName:   row.PointName,
			Description: row.Description,
			Keywords:    row.Keywords,
			Categories: map[int]*string{
				1: normalizeCell(row.Graph1),
				2: normalizeCell(row.Graph2),
				3: normalizeCell(row.Graph3),
				4: normalizeCell(row.Graph4),
			},
			Embedding: embedding,
			CreatedAt: now,
		}
		if err := repo.Create(ctx, criterion); err != nil {
			return fmt.Errorf("insert article %d subpoint %q: %w", row.Article, subpoint, err)
		}
		created++
	}

	logger.Info("Regulation criteria seeded", zap.Int("created", created), zap.Int("skipped", len(rows)-created))
	return nil
}

// seedICD10 loads the ICD-10 dictionary export, embeds each Russian
// disease name and inserts the codes that are not in the database yet.
// Chapter headers (level 0) are stored without embeddings, they are not
// used for name search.
func seedICD10(
	ctx context.Context,
	path string,
	repo *repository.ICD10Repository,
	llmService *service.LLMService,
	logger *zap.Logger,
) error {
	var rows []icd10Row
	if err := readJSONFile(path, &rows); err != nil {
		return err
	}
	logger.Info("Seeding ICD-10 reference", zap.String("path", path), zap.Int("rows", len(rows)))

	created := 0
	for _, row := range rows {
		if _, err := repo.GetByCode(ctx, row.Code); err == nil {
			continue
		} else if !repository.IsNotFound(err) {
			return fmt.Errorf("lookup code %q: %w", row.Code, err)
		}

		var embedding []float32
		if row.Level > 0 && strings.TrimSpace(row.NameRU) != "" {
			var err error
			embedding, err = llmService.CreateEmbedding(ctx, row.NameRU)
			if err != nil {
				return fmt.Errorf("embed code %q: %w", row.Code, err)
			}
		}

		entry := &models.ICD10Entry{
			ID:        row.ID,
			Code:      row.Code,
			NameRU:    row.NameRU,
			NameKZ:    row.NameKZ,
			Level:     row.Level,
			Embedding: embedding,
		}
		if err := repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("insert code %q: %w", row.Code, err)
		}
		created++
	}

	logger.Info("ICD-10 reference seeded", zap.Int("created", created), zap.Int("skipped", len(rows)-created))
	return nil
}

// embeddingTextForCriterion builds the text embedded for a criterion:
// the clinical description plus the keyword list, the same shape the
// search queries take.
func embeddingTextForCriterion(row criterionRow) string {
	parts := []string{row.Description}
	if kw := strings.TrimSpace(row.Keywords); kw != "" {
		parts = append(parts, kw)
	}
	return strings.Join(parts, " ")
}

// normalizeCell maps empty cells of the source table to nil and the
// rest to the canonical category spelling.
func normalizeCell(cell *string) *string {
	if cell == nil {
		return nil
	}
	s := strings.TrimSpace(*cell)
	if s == "" || s == "null" || s == "None" {
		return nil
	}
	normalized := models.NormalizeCategory(s)
	return &normalized
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
