package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeometricMean(t *testing.T) {
	assert.InDelta(t, 0.0, GeometricMean([]float64{0, 1, 2, 3, 4}), 1e-7)
	assert.InDelta(t, 0.5, GeometricMean([]float64{4, 1, 0.03125}), 1e-7)
}

func TestMedian(t *testing.T) {
	assert.InDelta(t, 36.0, Median([]float64{10, 30, 35, 37, 40, 20, 50, 60}), 1e-9)
}

func TestHzToOctaves(t *testing.T) {
	got := HzToOctaves([]float64{32, 64, 128, 256}, 0.5, 10)
	want := []float64{0.16864029, 1.16864029, 2.16864029, 3.16864029}
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6)
	}
}

func TestNumberCrossings(t *testing.T) {
	assert.Equal(t, uint32(2), NumberCrossings([]float64{1, -1, 1}))
	assert.Equal(t, uint32(0), NumberCrossings([]float64{1, 1, 1}))
}

func TestConvolveSameLength(t *testing.T) {
	signal := make([]float64, 100)
	for i := range signal {
		signal[i] = float64(i % 7)
	}
	kernel := make([]float64, 15)
	for i := range kernel {
		kernel[i] = 1
	}
	out := Convolve(signal, kernel)
	assert.Len(t, out, len(signal))
}

func TestSTFTFrameCount(t *testing.T) {
	signal := make([]float64, 8192*4)
	spec := STFT(signal, 512, 128)
	assert.Equal(t, 257, spec.NumBins)
	assert.Greater(t, len(spec.Frames), 0)
}
