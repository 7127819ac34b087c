package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinorUnitsRoundsInsteadOfTruncating(t *testing.T) {
	// 19.99 * 100 = 1998.9999... di float64; truncate bikin kurang satu unit
	assert.Equal(t, int64(1999), minorUnits(19.99))
	assert.Equal(t, int64(1), minorUnits(0.01))
	assert.Equal(t, int64(123456), minorUnits(1234.56))
	assert.Equal(t, int64(500000), minorUnits(5000.00))
}
