package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroCrossingRateSilence(t *testing.T) {
	z := NewZeroCrossingRate()
	z.Push(make([]float64, ZeroCrossingHop))
	assert.Equal(t, -1.0, z.Value())
}

func TestZeroCrossingRateAlternating(t *testing.T) {
	z := NewZeroCrossingRate()
	chunk := make([]float64, ZeroCrossingHop)
	for i := range chunk {
		if i%2 == 0 {
			chunk[i] = 1
		} else {
			chunk[i] = -1
		}
	}
	z.Push(chunk)
	v := z.Value()
	assert.GreaterOrEqual(t, v, -1.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestSpectralSineTone(t *testing.T) {
	const sampleRate = 22050
	s := NewSpectral(sampleRate)
	freq := 1000.0
	for w := 0; w < 20; w++ {
		window := make([]float64, SpectralWindow)
		for i := range window {
			t := float64(w*SpectralHop+i) / sampleRate
			window[i] = math.Sin(2 * math.Pi * freq * t)
		}
		s.Push(window)
	}
	centroid := s.Centroid()
	assert.GreaterOrEqual(t, centroid, -1.0)
	assert.LessOrEqual(t, centroid, 1.0)
	assert.GreaterOrEqual(t, s.Rolloff(), -1.0)
	assert.GreaterOrEqual(t, s.Flatness(), -1.0)
}

func TestSpectralEmptyDefaults(t *testing.T) {
	s := NewSpectral(22050)
	assert.Equal(t, -1.0, s.Centroid())
	assert.Equal(t, -1.0, s.Rolloff())
	assert.Equal(t, -1.0, s.Flatness())
}

// TestZeroCrossingRateFixtureLiteral reproduces spec.md §8 scenario 5:
// zcr on s16_mono_22_5kHz.flac must normalize to within 0.001 of -0.85036.
func TestZeroCrossingRateFixtureLiteral(t *testing.T) {
	samples := fixtureWaveform(t, "s16_mono_22_5kHz.flac")

	z := NewZeroCrossingRate()
	for i := 0; i+ZeroCrossingHop <= len(samples); i += ZeroCrossingHop {
		z.Push(samples[i : i+ZeroCrossingHop])
	}
	assert.InDelta(t, -0.85036, z.Value(), 0.001)
}
