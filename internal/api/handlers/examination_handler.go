package handlers

import (
	"context"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/dto"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExaminationStore persists and reads specialist conclusions.
// Implemented by ExaminationRepository.
type ExaminationStore interface {
	Create(ctx context.Context, e *models.Examination) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Examination, error)
}

type ExaminationHandler struct {
	examinations ExaminationStore
	logger       *zap.Logger
}

func NewExaminationHandler(examinations ExaminationStore, logger *zap.Logger) *ExaminationHandler {
	return &ExaminationHandler{
		examinations: examinations,
		logger:       logger,
	}
}

// Create godoc
// @Summary Submit a specialist examination
// @Description Store a specialist's conclusion in the conscript's file
// @Tags examinations
// @Accept json
// @Produce json
// @Param request body dto.ExaminationRequest true "Examination to store"
// @Success 201 {object} dto.ExaminationResponse
// @Failure 400 {object} map[string]string
// @Router /examinations [post]
func (h *ExaminationHandler) Create(c *fiber.Ctx) error {
	var req dto.ExaminationRequest
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
	if err := h.examinations.Create(c.Context(), exam); err != nil {
		h.logger.Error("Examination create failed",
			zap.String("conscript_id", exam.ConscriptID.String()),
			zap.String("specialty", exam.Specialty),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store examination",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.FromExamination(exam))
}

// GetByID godoc
// @Summary Get a stored examination
// @Tags examinations
// @Produce json
// @Param examinationID path string true "Examination ID"
// @Success 200 {object} dto.ExaminationResponse
// @Failure 404 {object} map[string]string
// @Router /examinations/{examinationID} [get]
func (h *ExaminationHandler) GetByID(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("examinationID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid examination ID",
		})
	}

	exam, err := h.examinations.GetByID(c.Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Examination not found",
			})
		}
		h.logger.Error("Examination lookup failed", zap.String("id", id.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load examination",
		})
	}

	return c.JSON(dto.FromExamination(exam))
}
