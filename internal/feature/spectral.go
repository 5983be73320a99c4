package feature

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/blissgo/bliss/internal/dsp"
)

// SpectralWindow and SpectralHop are the streaming window/hop sizes
// shared by the centroid, rolloff and flatness descriptors.
const (
	SpectralWindow = 512
	SpectralHop    = SpectralWindow / 4
)

// Spectral is a streaming accumulator for the centroid, rolloff and
// flatness descriptors. A single FFT is computed per pushed window and
// shared across all three, mirroring the reference implementation's
// single phase-vocoder frame feeding three separate descriptor objects.
type Spectral struct {
	mu sync.Mutex

	fft    *fourier.FFT
	window []float64
	nyquist int

	sampleRate int

	centroidSum  float64
	centroidN    int
	rolloffSum   float64
	rolloffN     int
	flatnessSum  float64
	flatnessN    int
}

// NewSpectral creates a streaming spectral descriptor for the given
// sample rate.
func NewSpectral(sampleRate int) *Spectral {
	return &Spectral{
		fft:        fourier.NewFFT(SpectralWindow),
		window:     dsp.Hann(SpectralWindow),
		nyquist:    SpectralWindow/2 + 1,
		sampleRate: sampleRate,
	}
}

// Push feeds one SpectralWindow-length window (hop = SpectralHop between
// successive calls) into every descriptor this accumulator tracks.
func (s *Spectral) Push(window []float64) {
	windowed := make([]float64, SpectralWindow)
	for i := 0; i < SpectralWindow && i < len(window); i++ {
		windowed[i] = window[i] * s.window[i]
	}
	coeffs := s.fft.Coefficients(nil, windowed)
	mag := dsp.Magnitude(coeffs[:s.nyquist])

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pushCentroid(mag)
	s.pushRolloff(mag)
	s.pushFlatness(mag)
}

func binToFreq(bin, sampleRate, window int) float64 {
	return float64(bin) * float64(sampleRate) / float64(window)
}

func (s *Spectral) pushCentroid(mag []float64) {
	var weighted, power float64
	for b, m := range mag {
		p := m * m
		weighted += float64(b) * p
		power += p
	}
	if power == 0 {
		return
	}
	bin := weighted / power
	s.centroidSum += binToFreq(int(bin+0.5), s.sampleRate, SpectralWindow)
	s.centroidN++
}

func (s *Spectral) pushRolloff(mag []float64) {
	var total float64
	for _, m := range mag {
		total += m * m
	}
	if total == 0 {
		s.rolloffN++
		return
	}
	threshold := 0.95 * total
	var cumulative float64
	bin := len(mag) - 1
	for b, m := range mag {
		cumulative += m * m
		if cumulative >= threshold {
			bin = b
			break
		}
	}
	if bin > SpectralWindow/2 {
		bin = SpectralWindow / 2
	}
	s.rolloffSum += binToFreq(bin, s.sampleRate, SpectralWindow)
	s.rolloffN++
}

func (s *Spectral) pushFlatness(mag []float64) {
	geo := dsp.GeometricMean(mag)
	var flatness float64
	if geo != 0 {
		flatness = geo / dsp.Mean(mag)
	}
	s.flatnessSum += flatness
	s.flatnessN++
}

// Centroid returns the normalized mean spectral centroid over every
// pushed window with non-zero power, in [-1, 1] against [0, SR/2].
// Silent windows are not counted.
func (s *Spectral) Centroid() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.centroidN == 0 {
		return -1
	}
	return normalize(s.centroidSum/float64(s.centroidN), 0, float64(s.sampleRate)/2)
}

// Rolloff returns the normalized mean spectral rolloff frequency, in
// [-1, 1] against [0, SR/2].
func (s *Spectral) Rolloff() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rolloffN == 0 {
		return -1
	}
	return normalize(s.rolloffSum/float64(s.rolloffN), 0, float64(s.sampleRate)/2)
}

// Flatness returns the normalized mean spectral flatness, in [-1, 1]
// against [0, 1].
func (s *Spectral) Flatness() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flatnessN == 0 {
		return -1
	}
	return normalize(s.flatnessSum/float64(s.flatnessN), 0, 1)
}

// ZeroCrossingHop is the non-overlapping chunk size the zero-crossing
// counter accumulates over, matching timbral.rs's test_zcr chunking
// (WINDOW_SIZE/4). NumberCrossings only counts transitions within a
// pushed chunk, so this exact size is load-bearing for reproducing the
// reference ZCR value, not just a window-size convention.
const ZeroCrossingHop = 128

// ZeroCrossingRate is a streaming zero-crossing-rate counter,
// independent of the Spectral accumulator above (it does not need an
// FFT).
type ZeroCrossingRate struct {
	mu         sync.Mutex
	crossings  uint64
	numSamples uint64
}

// NewZeroCrossingRate creates an empty zero-crossing-rate counter.
func NewZeroCrossingRate() *ZeroCrossingRate {
	return &ZeroCrossingRate{}
}

// Push accumulates crossings for one chunk.
func (z *ZeroCrossingRate) Push(chunk []float64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.crossings += uint64(dsp.NumberCrossings(chunk))
	z.numSamples += uint64(len(chunk))
}

// Value returns the normalized zero-crossing rate, in [-1, 1] against
// [0, 1].
func (z *ZeroCrossingRate) Value() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.numSamples == 0 {
		return -1
	}
	rate := float64(z.crossings) / float64(z.numSamples)
	return normalize(rate, 0, 1)
}
