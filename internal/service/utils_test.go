package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "диагноз подтвержден", sanitizeUTF8("диагноз подтвержден"))
	assert.Equal(t, "гастрит", sanitizeUTF8("гас\xffтрит"))
	assert.Equal(t, "", sanitizeUTF8("\xff\xfe"))
}
