package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubpoint(t *testing.T) {
	assert.Equal(t, "", NormalizeSubpoint("null"))
	assert.Equal(t, "", NormalizeSubpoint("None"))
	assert.Equal(t, "", NormalizeSubpoint("  "))
	assert.Equal(t, "а", NormalizeSubpoint(" а "))
	assert.Equal(t, "б", NormalizeSubpoint("б"))
}

func TestCategoryForGraph(t *testing.T) {
	b := CategoryFitMinor
	c := &RegulationCriterion{
		Article:  13,
		Subpoint: "в",
		Categories: map[int]*string{
			1: &b,
			2: nil,
		},
	}

	got, ok := c.CategoryForGraph(1)
	assert.True(t, ok)
	assert.Equal(t, &b, got)

	got, ok = c.CategoryForGraph(2)
	assert.True(t, ok)
	assert.Nil(t, got)

	_, ok = c.CategoryForGraph(0)
	assert.False(t, ok)
	_, ok = c.CategoryForGraph(GraphCount + 1)
	assert.False(t, ok)
}

func TestICD10Chapter(t *testing.T) {
	assert.Equal(t, "J", ICD10Chapter("J35.1"))
	assert.Equal(t, "M", ICD10Chapter(" m51.1 "))
	assert.Equal(t, "", ICD10Chapter(""))
	assert.Equal(t, "", ICD10Chapter("35.1"))
}
