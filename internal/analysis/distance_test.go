package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKnownVectors(t *testing.T) {
	a := [VectorLength]float64{0.37860596, -0.75483, -0.85036564, -0.6326486, -0.77610075, 0.27126348, -1, 0, 1}
	b := [VectorLength]float64{0.31255, 0.15483, -0.15036564, -0.0326486, -0.87610075, -0.27126348, 1, 0, 1}
	assert.InDelta(t, 5.986180, DistanceVec9(a, b), 1e-4)
	assert.Equal(t, 0.0, DistanceVec9(a, a))
}

func TestDistanceNonNegative(t *testing.T) {
	a := []float64{0, 0, 0}
	b := []float64{0.1, 0, 0}
	m := IdentityMatrix(3)
	assert.GreaterOrEqual(t, Distance(a, b, m), 0.0)
	assert.Equal(t, 0.0, Distance(a, a, m))
}
