package handlers

import (
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/dto"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ConscriptHandler struct {
	completenessService *service.CompletenessService
	logger              *zap.Logger
}

func NewConscriptHandler(completenessService *service.CompletenessService, logger *zap.Logger) *ConscriptHandler {
	return &ConscriptHandler{
		completenessService: completenessService,
		logger:              logger,
	}
}

// GetCompleteness godoc
// @Summary Check examination roster completeness
// @Description Report which mandatory specialists have examined the conscript
// @Tags conscripts
// @Produce json
// @Param conscriptID path string true "Conscript ID"
// @Success 200 {object} dto.CompletenessResponse
// @Failure 400 {object} map[string]string
// @Router /conscripts/{conscriptID}/completeness [get]
func (h *ConscriptHandler) GetCompleteness(c *fiber.Ctx) error {
	conscriptID, err := parseConscriptID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid conscript ID",
		})
	}

	completeness, err := h.completenessService.Check(c.Context(), conscriptID)
	if err != nil {
		h.logger.Error("Completeness check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Completeness check failed",
		})
	}

	return c.JSON(dto.CompletenessResponse{
		ConscriptID: conscriptID.String(),
		Required:    completeness.Required,
		Completed:   completeness.Completed,
		Missing:     completeness.Missing,
		Complete:    completeness.Complete,
	})
}
