package handlers

import (
	"context"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/dto"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnalysisLister reads stored verdicts for the results endpoint.
type AnalysisLister interface {
	ListByConscript(ctx context.Context, conscriptID uuid.UUID) ([]*models.AnalysisResult, error)
}

type ValidationHandler struct {
	validationService *service.ValidationService
	ragService        *service.RAGService
	analysisRepo      AnalysisLister
	logger            *zap.Logger
}

func NewValidationHandler(
	validationService *service.ValidationService,
	ragService *service.RAGService,
	analysisRepo AnalysisLister,
	logger *zap.Logger,
) *ValidationHandler {
	return &ValidationHandler{
		validationService: validationService,
		ragService:        ragService,
		analysisRepo:      analysisRepo,
		logger:            logger,
	}
}

// CheckConclusion godoc
// @Summary Validate a specialist conclusion
// @Description Run the three-stage validation pipeline over a conclusion
// @Tags validation
// @Accept json
// @Produce json
// @Param request body dto.CheckConclusionRequest true "Conclusion to validate"
// @Success 200 {object} dto.CheckConclusionResponse
// @Failure 400 {object} map[string]string
// @Router /validation/check-conclusion [post]
func (h *ValidationHandler) CheckConclusion(c *fiber.Ctx) error {
	var req dto.CheckConclusionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if msg := req.Validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	exam := req.ToExamination()
	verdict, err := h.validationService.Validate(c.Context(), exam, req.SaveToDB)
	if err != nil {
		h.logger.Error("Validation failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Validation failed",
		})
	}

	return c.JSON(dto.FromVerdict(verdict))
}

// CheckContradictions godoc
// @Summary Run contradiction checks only
// @Description Fast pre-check without the language-model call
// @Tags validation
// @Accept json
// @Produce json
// @Param request body dto.CheckConclusionRequest true "Conclusion to check"
// @Success 200 {object} dto.CheckContradictionsResponse
// @Failure 400 {object} map[string]string
// @Router /validation/check-contradictions [post]
func (h *ValidationHandler) CheckContradictions(c *fiber.Ctx) error {
	var req dto.CheckConclusionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if msg := req.Validate(); msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	contradictions, skipped := h.validationService.DetectOnly(c.Context(), req.ToExamination())
	return c.JSON(dto.FromContradictionsOnly(contradictions, skipped))
}

// SearchDiseases godoc
// @Summary Search ICD-10 names by free text
// @Tags validation
// @Accept json
// @Produce json
// @Param request body dto.DiseaseSearchRequest true "Search query"
// @Success 200 {object} dto.DiseaseSearchResponse
// @Failure 400 {object} map[string]string
// @Router /validation/search-diseases [post]
func (h *ValidationHandler) SearchDiseases(c *fiber.Ctx) error {
	var req dto.DiseaseSearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}

	matches, err := h.ragService.SearchDiseaseNames(c.Context(), req.Query, req.TopK)
	if err != nil {
		h.logger.Error("Disease search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	resp := dto.DiseaseSearchResponse{Results: []dto.DiseaseMatchResponse{}}
	for _, m := range matches {
		resp.Results = append(resp.Results, dto.DiseaseMatchResponse{
			Code:       m.Code,
			Name:       m.Name,
			Similarity: m.Similarity,
		})
	}

	return c.JSON(resp)
}

// GetSavedResults godoc
// @Summary List stored verdicts for a conscript
// @Tags validation
// @Produce json
// @Param conscriptID path string true "Conscript ID"
// @Success 200 {array} dto.AnalysisResultResponse
// @Failure 400 {object} map[string]string
// @Router /validation/results/{conscriptID} [get]
func (h *ValidationHandler) GetSavedResults(c *fiber.Ctx) error {
	conscriptID, err := parseConscriptID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conscript ID",
		})
	}

	results, err := h.analysisRepo.ListByConscript(c.Context(), conscriptID)
	if err != nil {
		h.logger.Error("Results lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load results",
		})
	}

	resp := make([]dto.AnalysisResultResponse, 0, len(results))
	for _, r := range results {
		resp = append(resp, dto.FromAnalysisResult(r))
	}

	return c.JSON(resp)
}

// parseConscriptID reads and validates the :conscriptID path parameter.
func parseConscriptID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("conscriptID"))
}
