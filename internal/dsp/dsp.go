// Package dsp holds the signal-processing primitives shared by every
// feature extractor in internal/feature: windowing, reflective padding,
// the short-time Fourier transform, FFT-based linear convolution, and the
// small statistical helpers (mean, geometric mean, median, zero-crossing
// counting, Hz-to-octave conversion) that the original reference
// implementation leans on throughout.
package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Hann returns a periodic Hann window of the given size, i.e. one period
// of a size+1 symmetric Hann window with the final sample dropped. This
// matches the convention librosa and numpy's "periodic" windows use for
// STFT analysis, as opposed to a symmetric window meant for FIR design.
func Hann(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}
	return w
}

// ReflectPad pads signal on both sides by n samples using reflection
// about the edge sample (numpy's "reflect" mode: the edge sample itself
// is not repeated).
func ReflectPad(signal []float64, n int) []float64 {
	out := make([]float64, len(signal)+2*n)
	copy(out[n:n+len(signal)], signal)
	for i := 0; i < n; i++ {
		out[n-1-i] = signal[min(i+1, len(signal)-1)]
		out[n+len(signal)+i] = signal[max(len(signal)-2-i, 0)]
	}
	return out
}

// Spectrogram is the result of an STFT: Frames rows, each holding
// NumBins = nFFT/2+1 complex coefficients.
type Spectrogram struct {
	NumBins int
	Frames  [][]complex128
}

// STFT computes a centered short-time Fourier transform of signal using
// an nFFT-point periodic Hann window and the given hop size, reflect-
// padding the signal by nFFT/2 samples on each side so that frame i is
// centered on sample i*hop of the original (unpadded) signal. This
// centering convention matches librosa's default STFT, which the
// reference chroma/tuning estimation code relies on.
func STFT(signal []float64, nFFT, hop int) Spectrogram {
	window := Hann(nFFT)
	padded := ReflectPad(signal, nFFT/2)

	numFrames := 0
	if len(padded) >= nFFT {
		numFrames = (len(padded)-nFFT)/hop + 1
	}

	fft := fourier.NewFFT(nFFT)
	frames := make([][]complex128, numFrames)
	windowed := make([]float64, nFFT)
	for f := 0; f < numFrames; f++ {
		start := f * hop
		for i := 0; i < nFFT; i++ {
			windowed[i] = padded[start+i] * window[i]
		}
		coeffs := fft.Coefficients(nil, windowed)
		row := make([]complex128, nFFT/2+1)
		copy(row, coeffs[:nFFT/2+1])
		frames[f] = row
	}

	return Spectrogram{NumBins: nFFT/2 + 1, Frames: frames}
}

// Magnitude returns the per-bin magnitude of one STFT frame.
func Magnitude(frame []complex128) []float64 {
	out := make([]float64, len(frame))
	for i, c := range frame {
		out[i] = cmplx.Abs(c)
	}
	return out
}

// Convolve performs 1-D linear convolution of signal with kernel and
// returns the "same"-mode slice: length len(signal), centered on the full
// convolution output, matching numpy.convolve(..., mode="same").
func Convolve(signal, kernel []float64) []float64 {
	n := len(signal) + len(kernel) - 1
	size := 1
	for size < n {
		size *= 2
	}

	fft := fourier.NewFFT(size)
	a := make([]float64, size)
	b := make([]float64, size)
	copy(a, signal)
	copy(b, kernel)

	fa := fft.Coefficients(nil, a)
	fb := fft.Coefficients(nil, b)
	for i := range fa {
		fa[i] *= fb[i]
	}

	full := fft.Sequence(nil, fa)
	for i := range full {
		full[i] /= float64(size)
	}
	full = full[:n]

	start := (len(kernel) - 1) / 2
	out := make([]float64, len(signal))
	copy(out, full[start:start+len(signal)])
	return out
}

// Mean is the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values) / float64(len(values))
}

// GeometricMean is exp(mean(ln(x))), short-circuited to 0 if any element
// is exactly zero (matching the reference implementation, which treats a
// silent sample as making the whole window's geometric mean vanish).
func GeometricMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		if v == 0 {
			return 0
		}
		sum += math.Log(v)
	}
	return math.Exp(sum / float64(len(values)))
}

// Median returns the order-statistic median, averaging the two middle
// elements for an even-length input. values is not mutated.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	floats.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// NumberCrossings counts sign changes across chunk: a sample is treated
// as positive when strictly greater than zero, and zero counts as
// non-positive, matching the reference zero-crossing-rate counter.
func NumberCrossings(chunk []float64) uint32 {
	if len(chunk) == 0 {
		return 0
	}
	var count uint32
	wasPositive := chunk[0] > 0
	for _, v := range chunk[1:] {
		isPositive := v > 0
		if isPositive != wasPositive {
			count++
		}
		wasPositive = isPositive
	}
	return count
}

// HzToOctaves converts a slice of frequencies in Hz to (fractional)
// octave numbers relative to a 440Hz-tuned, binsPerOctave-division scale,
// offset by tuning (in units of 1/binsPerOctave of an octave).
func HzToOctaves(freqs []float64, tuning float64, binsPerOctave int) []float64 {
	a440 := 440.0 * math.Pow(2, tuning/float64(binsPerOctave))
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = math.Log2(f / (a440 / 16))
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
