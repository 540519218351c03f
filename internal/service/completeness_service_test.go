package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSpecialtyLister struct {
	specialties []string
	err         error
}

func (s *stubSpecialtyLister) ListSpecialties(ctx context.Context, conscriptID uuid.UUID) ([]string, error) {
	return s.specialties, s.err
}

func TestCompletenessCheck(t *testing.T) {
	lister := &stubSpecialtyLister{specialties: []string{"Терапевт", "Хирург", "Рентгенолог"}}
	svc := NewCompletenessService(lister, zap.NewNop())

	result, err := svc.Check(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.False(t, result.Complete)
	assert.ElementsMatch(t, []string{"Терапевт", "Хирург"}, result.Completed)
	assert.Contains(t, result.Missing, "Психиатр")
	// Extra specialties outside the roster do not count toward completion.
	assert.NotContains(t, result.Completed, "Рентгенолог")
}

func TestCompletenessAllDone(t *testing.T) {
	lister := &stubSpecialtyLister{specialties: requiredSpecialists}
	svc := NewCompletenessService(lister, zap.NewNop())

	result, err := svc.Check(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.True(t, result.Complete)
	assert.Empty(t, result.Missing)
	assert.Len(t, result.Completed, len(requiredSpecialists))
}

func TestCompletenessListError(t *testing.T) {
	svc := NewCompletenessService(&stubSpecialtyLister{err: errors.New("db down")}, zap.NewNop())

	_, err := svc.Check(context.Background(), uuid.New())
	assert.Error(t, err)
}
