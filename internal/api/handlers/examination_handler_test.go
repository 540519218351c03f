package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NurlanOmarov/eMedosmotr-AI/internal/dto"
	"github.com/NurlanOmarov/eMedosmotr-AI/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubExaminationStore struct {
	created   *models.Examination
	createErr error
	exam      *models.Examination
	getErr    error
}

func (s *stubExaminationStore) Create(ctx context.Context, e *models.Examination) error {
	s.created = e
	return s.createErr
}

func (s *stubExaminationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Examination, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.exam, nil
}

func newExaminationApp(store ExaminationStore) *fiber.App {
	app := fiber.New()
	h := NewExaminationHandler(store, zap.NewNop())
	app.Post("/examinations", h.Create)
	app.Get("/examinations/:examinationID", h.GetByID)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestExaminationCreate(t *testing.T) {
	store := &stubExaminationStore{}
	app := newExaminationApp(store)

	conscriptID := uuid.New()
	resp := postJSON(t, app, "/examinations", dto.ExaminationRequest{
		ConscriptID:    conscriptID.String(),
		Specialty:      "Терапевт",
		DiagnosisText:  "Хронический гастрит с частыми обострениями",
		DoctorCategory: "Б",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.NotNil(t, store.created)
	assert.Equal(t, conscriptID, store.created.ConscriptID)
	assert.Equal(t, "Терапевт", store.created.Specialty)
	assert.Equal(t, 1, store.created.Graph)

	var created dto.ExaminationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, store.created.ID.String(), created.ID)
	assert.Equal(t, "Б", created.DoctorCategory)
}

func TestExaminationCreateRejectsIncomplete(t *testing.T) {
	store := &stubExaminationStore{}
	app := newExaminationApp(store)

	resp := postJSON(t, app, "/examinations", dto.ExaminationRequest{
		ConscriptID:    uuid.New().String(),
		Specialty:      "Терапевт",
		DoctorCategory: "Б",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, store.created)
}

func TestExaminationGetByID(t *testing.T) {
	exam := &models.Examination{
		ID:             uuid.New(),
		ConscriptID:    uuid.New(),
		Specialty:      "Хирург",
		DiagnosisText:  "Продольное плоскостопие I степени",
		DoctorCategory: "А",
		Graph:          1,
	}
	app := newExaminationApp(&stubExaminationStore{exam: exam})

	req := httptest.NewRequest(http.MethodGet, "/examinations/"+exam.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got dto.ExaminationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, exam.ID.String(), got.ID)
	assert.Equal(t, "Хирург", got.Specialty)
}

func TestExaminationGetByIDNotFound(t *testing.T) {
	app := newExaminationApp(&stubExaminationStore{getErr: pgx.ErrNoRows})

	req := httptest.NewRequest(http.MethodGet, "/examinations/"+uuid.New().String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestExaminationGetByIDRejectsBadID(t *testing.T) {
	app := newExaminationApp(&stubExaminationStore{})

	req := httptest.NewRequest(http.MethodGet, "/examinations/not-a-uuid", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
