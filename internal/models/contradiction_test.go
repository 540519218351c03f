package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRank(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityMedium.AtLeast(SeverityHigh))
	assert.Equal(t, 0, Severity("BOGUS").Rank())
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, MaxSeverity())
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityMedium, SeverityCritical, SeverityHigh))
	assert.Equal(t, SeverityMedium, MaxSeverity(SeverityLow, SeverityMedium))
}
