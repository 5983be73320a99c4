package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoudnessSilenceIsFloor(t *testing.T) {
	l := NewLoudness()
	l.Push(make([]float64, LoudnessWindow))
	assert.Equal(t, -1.0, l.Value())
}

func TestLoudnessFullScaleIsCeiling(t *testing.T) {
	l := NewLoudness()
	chunk := make([]float64, LoudnessWindow)
	for i := range chunk {
		chunk[i] = 1
	}
	l.Push(chunk)
	assert.Equal(t, 1.0, l.Value())
}

func TestLoudnessEmptyDefault(t *testing.T) {
	l := NewLoudness()
	assert.Equal(t, -1.0, l.Value())
}
