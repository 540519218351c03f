package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, CategoryFit, NormalizeCategory("A"))
	assert.Equal(t, CategoryFit, NormalizeCategory(" a "))
	assert.Equal(t, CategoryFitMinor, NormalizeCategory("B"))
	assert.Equal(t, CategoryFit, NormalizeCategory("А"))
	assert.Equal(t, CategoryLimitedFitInd, NormalizeCategory("в-инд"))
	assert.Equal(t, CategoryNotEligible, NormalizeCategory(" нг"))
}

func TestCategoryRankOrdering(t *testing.T) {
	ordered := []string{
		CategoryFit,
		CategoryFitMinor,
		CategoryLimitedFit,
		CategoryTemporaryUnfit,
		CategoryUnfitPeace,
		CategoryUnfit,
		CategoryNotEligible,
	}
	for i := 1; i < len(ordered); i++ {
		assert.True(t, CategoryStricter(ordered[i], ordered[i-1]),
			"%s should be stricter than %s", ordered[i], ordered[i-1])
	}

	// В and В-ИНД share a level.
	assert.Equal(t, CategoryRank(CategoryLimitedFit), CategoryRank(CategoryLimitedFitInd))
	assert.False(t, CategoryStricter(CategoryLimitedFit, CategoryLimitedFitInd))
	assert.False(t, CategoryStricter(CategoryLimitedFitInd, CategoryLimitedFit))
}

func TestCategoryStricterUnknown(t *testing.T) {
	// Unknown codes rank below every known category.
	assert.False(t, CategoryStricter("Ж", CategoryFit))
	assert.True(t, CategoryStricter(CategoryFit, "Ж"))
	assert.Equal(t, 0, CategoryRank("123"))
}

func TestIsValidCategory(t *testing.T) {
	for _, c := range []string{"А", "Б", "В", "В-ИНД", "Г", "Д", "Е", "НГ", "A", "B"} {
		assert.True(t, IsValidCategory(c), c)
	}
	assert.False(t, IsValidCategory(""))
	assert.False(t, IsValidCategory("Z"))
}
