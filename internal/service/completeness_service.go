package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// requiredSpecialists is the mandatory examination roster. A conscript's
// medical file is complete only when every one of these has concluded.
var requiredSpecialists = []string{
	"Терапевт",
	"Хирург",
	"Офтальмолог",
	"Невролог",
	"Отоларинголог",
	"Дерматолог",
	"Психиатр",
	"Стоматолог",
	"Фтизиатр",
}

// SpecialtyLister reports which specialties already examined a conscript.
// Implemented by ExaminationRepository.
type SpecialtyLister interface {
	ListSpecialties(ctx context.Context, conscriptID uuid.UUID) ([]string, error)
}

// Completeness describes how far a conscript's examination file has
// progressed against the mandatory roster.
type Completeness struct {
	Required  []string
	Completed []string
	Missing   []string
	Complete  bool
}

type CompletenessService struct {
	examinations SpecialtyLister
	logger       *zap.Logger
}

func NewCompletenessService(examinations SpecialtyLister, logger *zap.Logger) *CompletenessService {
	return &CompletenessService{
		examinations: examinations,
		logger:       logger,
	}
}

func (s *CompletenessService) Check(ctx context.Context, conscriptID uuid.UUID) (*Completeness, error) {
	done, err := s.examinations.ListSpecialties(ctx, conscriptID)
	if err != nil {
		return nil, err
	}

	doneSet := make(map[string]struct{}, len(done))
	for _, specialty := range done {
		doneSet[specialty] = struct{}{}
	}

	result := &Completeness{
		Required: requiredSpecialists,
	}
	for _, specialty := range requiredSpecialists {
		if _, ok := doneSet[specialty]; ok {
			result.Completed = append(result.Completed, specialty)
		} else {
			result.Missing = append(result.Missing, specialty)
		}
	}
	result.Complete = len(result.Missing) == 0

	return result, nil
}
