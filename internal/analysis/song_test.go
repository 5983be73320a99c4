package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blissgo/bliss/internal/feature"
)

func TestAnalyzeSamplesTooShort(t *testing.T) {
	song := &Song{Path: "too-short.flac"}
	samples := make([]float64, largestWindow-1)

	result, err := AnalyzeSamples(song, samples)

	require.Error(t, err)
	require.Nil(t, result)
	require.Contains(t, err.Error(), "empty or too short song.")
}

func TestAnalyzeSamplesEmpty(t *testing.T) {
	song := &Song{Path: "empty.flac"}

	result, err := AnalyzeSamples(song, nil)

	require.Error(t, err)
	require.Nil(t, result)
}

func TestAnalyzeSamplesFillsVector(t *testing.T) {
	song := &Song{Path: "long-enough.flac"}
	samples := make([]float64, largestWindow+feature.ChromaHop)
	for i := range samples {
		samples[i] = 0.1
	}

	result, err := AnalyzeSamples(song, samples)

	require.NoError(t, err)
	require.Same(t, song, result)
}
