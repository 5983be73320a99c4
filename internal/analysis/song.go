// Package analysis assembles the four streaming feature extractors in
// internal/feature into one fixed-length analysis vector per song, and
// provides the batch (cross-song) analyzer and Mahalanobis distance used
// to order songs by similarity.
package analysis

import (
	"context"
	"sync"

	"github.com/blissgo/bliss/internal/blisserr"
	"github.com/blissgo/bliss/internal/decode"
	"github.com/blissgo/bliss/internal/feature"
)

// VectorLength is the fixed analysis-vector length: tempo, zcr, spectral
// centroid, spectral rolloff, spectral flatness, loudness, is_major,
// cos(tone), sin(tone) — matching the reference implementation's slot
// order exactly.
const VectorLength = 9

const (
	slotTempo = iota
	slotZCR
	slotCentroid
	slotRolloff
	slotFlatness
	slotLoudness
	slotIsMajor
	slotCosTone
	slotSinTone
)

// largestWindow is the widest window any extractor needs; a waveform
// shorter than this cannot be analyzed.
const largestWindow = feature.ChromaWindow

// Song is one decoded, analyzed track.
type Song struct {
	Path        string
	Artist      string
	Title       string
	Album       string
	TrackNumber string
	Genre       string
	Analysis    [VectorLength]float64
}

// Analyzer decodes and extracts the fixed analysis vector for one song
// at a time.
type Analyzer struct {
	decoder *decode.Decoder
}

// NewAnalyzer wraps a decoder in an Analyzer.
func NewAnalyzer(decoder *decode.Decoder) *Analyzer {
	return &Analyzer{decoder: decoder}
}

// Analyze decodes path and runs all four extractors on the resulting
// waveform in parallel, matching the three concurrency boundaries
// described for per-song analysis: one scoped fan-out region, joined at
// its end, which is the sole place the vector's slot order is fixed.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*Song, error) {
	result, err := a.decoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}

	samples := make([]float64, len(result.Samples))
	for i, s := range result.Samples {
		samples[i] = float64(s)
	}

	song := &Song{
		Path:        path,
		Artist:      result.Tags.Artist,
		Title:       result.Tags.Title,
		Album:       result.Tags.Album,
		TrackNumber: result.Tags.Track,
		Genre:       result.Tags.Genre,
	}

	return AnalyzeSamples(song, samples)
}

// AnalyzeSamples runs all four extractors on an already-decoded waveform
// and fills in song.Analysis, matching the reference implementation's
// separable Song::analyse(samples) entry point. It takes no decoder
// dependency, so it is exercised directly by tests (including the
// too-short-song error path below) without needing ffmpeg or a fixture.
func AnalyzeSamples(song *Song, samples []float64) (*Song, error) {
	if len(samples) < largestWindow {
		return nil, blisserr.Wrap(blisserr.Analysis, song.Path, "empty or too short song.", nil)
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		spectral := feature.NewSpectral(decode.SampleRate)
		zcr := feature.NewZeroCrossingRate()
		for i := 0; i+feature.SpectralWindow <= len(samples); i += feature.SpectralHop {
			spectral.Push(samples[i : i+feature.SpectralWindow])
		}
		for i := 0; i+feature.ZeroCrossingHop <= len(samples); i += feature.ZeroCrossingHop {
			zcr.Push(samples[i : i+feature.ZeroCrossingHop])
		}
		song.Analysis[slotCentroid] = spectral.Centroid()
		song.Analysis[slotRolloff] = spectral.Rolloff()
		song.Analysis[slotFlatness] = spectral.Flatness()
		song.Analysis[slotZCR] = zcr.Value()
	}()

	go func() {
		defer wg.Done()
		tempo := feature.NewTempo(decode.SampleRate)
		for i := 0; i+feature.TempoWindow <= len(samples); i += feature.TempoHop {
			tempo.Push(samples[i : i+feature.TempoWindow])
		}
		song.Analysis[slotTempo] = tempo.Value()
	}()

	go func() {
		defer wg.Done()
		loudness := feature.NewLoudness()
		for i := 0; i+feature.LoudnessWindow <= len(samples); i += feature.LoudnessWindow {
			loudness.Push(samples[i : i+feature.LoudnessWindow])
		}
		song.Analysis[slotLoudness] = loudness.Value()
	}()

	go func() {
		defer wg.Done()
		chroma := feature.NewChroma(decode.SampleRate)
		chroma.Push(samples)
		isMajor, cosTone, sinTone := chroma.Finalize()
		song.Analysis[slotIsMajor] = isMajor
		song.Analysis[slotCosTone] = cosTone
		song.Analysis[slotSinTone] = sinTone
	}()

	wg.Wait()
	return song, nil
}
