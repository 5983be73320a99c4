package feature

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/blissgo/bliss/internal/dsp"
)

// TempoWindow and TempoHop are the streaming window/hop sizes for onset
// detection feeding the tempo estimator.
const (
	TempoWindow = 512
	TempoHop    = TempoWindow / 4

	tempoMinBPM = 40.0
	tempoMaxBPM = 208.0
	tempoRangeMax = 206.0
)

// Tempo is a streaming BPM estimator. It accumulates a spectral-flux
// onset-detection function one hop at a time, then autocorrelates the
// resulting envelope over the lag range implied by tempoMinBPM/tempoMaxBPM
// to find the dominant periodicity once the whole song has been pushed.
type Tempo struct {
	mu sync.Mutex

	fft        *fourier.FFT
	window     []float64
	prevMag    []float64
	onsets     []float64
	sampleRate int
}

// NewTempo creates a streaming tempo estimator for the given sample rate.
func NewTempo(sampleRate int) *Tempo {
	return &Tempo{
		fft:        fourier.NewFFT(TempoWindow),
		window:     dsp.Hann(TempoWindow),
		prevMag:    make([]float64, TempoWindow/2+1),
		sampleRate: sampleRate,
	}
}

// Push feeds one TempoWindow-length window (hop = TempoHop between
// successive calls) into the onset-detection function.
func (t *Tempo) Push(window []float64) {
	windowed := make([]float64, TempoWindow)
	for i := 0; i < TempoWindow && i < len(window); i++ {
		windowed[i] = window[i] * t.window[i]
	}
	coeffs := t.fft.Coefficients(nil, windowed)
	mag := dsp.Magnitude(coeffs[:TempoWindow/2+1])

	t.mu.Lock()
	defer t.mu.Unlock()

	var flux float64
	for i, m := range mag {
		d := m - t.prevMag[i]
		if d > 0 {
			flux += d
		}
	}
	t.onsets = append(t.onsets, flux)
	copy(t.prevMag, mag)
}

// Value returns the estimated tempo, normalized to [-1, 1] against
// [0, 206] BPM. Silent or onset-free input returns the normalized lower
// bound, -1.
func (t *Tempo) Value() float64 {
	t.mu.Lock()
	onsets := append([]float64(nil), t.onsets...)
	sampleRate := t.sampleRate
	t.mu.Unlock()

	bpm := estimateBPM(onsets, sampleRate, TempoHop)
	return normalize(bpm, 0, tempoRangeMax)
}

// estimateBPM autocorrelates the onset envelope over the lag range that
// corresponds to [tempoMinBPM, tempoMaxBPM] at the given hop rate, and
// converts the best lag back to BPM.
func estimateBPM(onsets []float64, sampleRate, hop int) float64 {
	mean := dsp.Mean(onsets)
	hasEnergy := false
	centered := make([]float64, len(onsets))
	for i, v := range onsets {
		centered[i] = v - mean
		if v != 0 {
			hasEnergy = true
		}
	}
	if !hasEnergy || len(onsets) < 2 {
		return 0
	}

	framesPerSecond := float64(sampleRate) / float64(hop)
	lagMin := int(math.Floor(60.0 * framesPerSecond / tempoMaxBPM))
	lagMax := int(math.Ceil(60.0 * framesPerSecond / tempoMinBPM))
	if lagMin < 1 {
		lagMin = 1
	}
	if lagMax >= len(centered) {
		lagMax = len(centered) - 1
	}
	if lagMax <= lagMin {
		return 0
	}

	bestLag := lagMin
	bestScore := math.Inf(-1)
	for lag := lagMin; lag <= lagMax; lag++ {
		var score float64
		for i := 0; i+lag < len(centered); i++ {
			score += centered[i] * centered[i+lag]
		}
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestScore <= 0 {
		return 0
	}

	return 60.0 * framesPerSecond / float64(bestLag)
}
