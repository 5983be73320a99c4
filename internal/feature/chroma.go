package feature

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/blissgo/bliss/internal/dsp"
)

// ChromaWindow and ChromaHop are the (non-streaming) STFT parameters the
// chroma descriptor is computed over, once, for the whole song.
const (
	ChromaWindow = 8192
	ChromaHop    = 2205
)

// chordLabels names the 24 columns the major/minor template bank
// produces: 12 major triads, then 12 minor triads, both starting at C
// and ascending chromatically.
var chordLabels = []string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
	"Cm", "C#m", "Dm", "D#m", "Em", "Fm", "F#m", "Gm", "G#m", "Am", "A#m", "Bm",
}

// perfectFifthIndices reorders the 12 chromatic rows of a chroma vector
// into ascending-fifths order, starting at C.
var perfectFifthIndices = []int{0, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10, 5}

// toneAngles gives the unit-circle (cos, sin) angle for each key-center
// index produced by the fifths-sorted template match in passB below.
var toneAngles = []float64{
	math.Pi / 2, math.Pi / 3, math.Pi / 6, 0,
	11 * math.Pi / 6, 5 * math.Pi / 3, 3 * math.Pi / 2, 4 * math.Pi / 3,
	7 * math.Pi / 6, math.Pi, 5 * math.Pi / 6, 2 * math.Pi / 3,
}

// templatesMajMin and templatesScale are built once at init time via
// generateTemplateMatrix, since the literal 24-column major/minor
// template bank was not present in the retrieved reference source (the
// file defining it exceeded the retrieval window). The construction
// below reproduces it mechanically: a major triad (root, major third,
// fifth) and minor triad (root, minor third, fifth) rotated through all
// 12 chromatic roots, in the same order as chordLabels.
var (
	templatesMajMin [][]float64
	templatesScale  [][]float64
)

func init() {
	majMinBase := make([][]float64, 12)
	for i := range majMinBase {
		majMinBase[i] = make([]float64, 2)
	}
	for _, row := range []int{0, 7} {
		majMinBase[row][0] = 1
		majMinBase[row][1] = 1
	}
	majMinBase[4][0] = 1 // major third
	majMinBase[3][1] = 1 // minor third
	templatesMajMin = generateTemplateMatrix(majMinBase)

	diatonicBase := [][]float64{{1}, {3}, {2}, {1}, {2}, {3}, {1}, {0}, {0}, {0}, {0}, {0}}
	templatesScale = generateTemplateMatrix(diatonicBase)
}

// generateTemplateMatrix cyclically rotates the 12-row base template
// (one or two columns) through all 12 chromatic roots, producing a
// 12 x 12 (single-column base) or 12 x 24 (two-column base) matrix: the
// 12 rotations of column 0 followed by the 12 rotations of column 1.
func generateTemplateMatrix(base [][]float64) [][]float64 {
	numCols := len(base[0])
	outCols := 12
	if numCols > 1 {
		outCols = 24
	}
	out := make([][]float64, 12)
	for r := range out {
		out[r] = make([]float64, outCols)
	}
	for shift := 0; shift < 12; shift++ {
		for row := 0; row < 12; row++ {
			src := base[((row-shift)%12+12)%12]
			out[row][shift] = src[0]
			if numCols > 1 {
				out[row][shift+12] = src[1]
			}
		}
	}
	return out
}

// magnitudeMatrix reshapes a dsp.Spectrogram (frame-major) into a
// bin-major matrix: mag[bin][frame].
func magnitudeMatrix(spec dsp.Spectrogram) [][]float64 {
	numFrames := len(spec.Frames)
	mag := make([][]float64, spec.NumBins)
	for b := range mag {
		mag[b] = make([]float64, numFrames)
	}
	for f, frame := range spec.Frames {
		for b, c := range frame {
			mag[b][f] = cmplx.Abs(c)
		}
	}
	return mag
}

// chromaFilter builds the 12 x (nFFT/2+1) chroma filter bank for the
// given sample rate, FFT size and tuning offset (in semitone fractions).
func chromaFilter(sampleRate, nFFT int, tuning float64) [][]float64 {
	const nChroma = 12

	freq := make([]float64, nFFT+1)
	for k := range freq {
		freq[k] = float64(sampleRate) * float64(k) / float64(nFFT)
	}
	octs := dsp.HzToOctaves(freq, tuning, nChroma)

	freqBins := make([]float64, len(octs))
	for i, o := range octs {
		freqBins[i] = float64(nChroma) * o
	}
	freqBins[0] = freqBins[1] - 18

	binwidth := make([]float64, len(freqBins))
	for k := 0; k < len(freqBins)-1; k++ {
		bw := freqBins[k+1] - freqBins[k]
		if bw < 1 {
			bw = 1
		}
		binwidth[k] = bw
	}
	binwidth[len(binwidth)-1] = 1

	wts := make([][]float64, nChroma)
	for c := range wts {
		wts[c] = make([]float64, len(freqBins))
	}
	for c := 0; c < nChroma; c++ {
		for k := range freqBins {
			d := freqBins[k] - float64(c)
			d = math.Mod(d+6+120, 12) - 6
			val := 2 * d / binwidth[k]
			wts[c][k] = math.Exp(-0.5 * val * val)
		}
	}

	for k := range freqBins {
		var norm float64
		for c := 0; c < nChroma; c++ {
			norm += wts[c][k] * wts[c][k]
		}
		norm = math.Sqrt(norm)
		if norm < 0.0001 {
			norm = 1
		}
		for c := 0; c < nChroma; c++ {
			wts[c][k] /= norm
		}
	}

	for k := range freqBins {
		w := math.Exp(-0.5 * math.Pow((freqBins[k]/12-5)/2, 2))
		for c := 0; c < nChroma; c++ {
			wts[c][k] *= w
		}
	}

	rolled := make([][]float64, nChroma)
	for c := 0; c < nChroma; c++ {
		rolled[c] = wts[(c+3)%nChroma]
	}

	numBinsOut := nFFT/2 + 1
	out := make([][]float64, nChroma)
	for c := 0; c < nChroma; c++ {
		out[c] = append([]float64(nil), rolled[c][:numBinsOut]...)
	}
	return out
}

const pipMinFreq = 150.0

// pipTrack does per-column parabolic peak picking over a magnitude
// spectrogram (mag[bin][frame]), returning adjusted frequency and
// corrected magnitude matrices of the same shape; non-peak entries are
// zero.
func pipTrack(mag [][]float64, sampleRate, nFFT int) (pitches, mags [][]float64) {
	numBins := len(mag)
	numFrames := 0
	if numBins > 0 {
		numFrames = len(mag[0])
	}

	fmax := math.Min(4000.0, float64(sampleRate)/2.0)
	fftFreqs := make([]float64, numBins)
	for i := range fftFreqs {
		fftFreqs[i] = float64(i) * float64(sampleRate) / float64(nFFT)
	}

	pitches = make([][]float64, numBins)
	mags = make([][]float64, numBins)
	for b := range pitches {
		pitches[b] = make([]float64, numFrames)
		mags[b] = make([]float64, numFrames)
	}
	if numBins < 3 || numFrames == 0 {
		return pitches, mags
	}

	refValue := make([]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		max := 0.0
		for b := 0; b < numBins; b++ {
			if mag[b][f] > max {
				max = mag[b][f]
			}
		}
		refValue[f] = 0.1 * max
	}

	for b := 1; b < numBins-1; b++ {
		if fftFreqs[b] < pipMinFreq || fftFreqs[b] >= fmax {
			continue
		}
		for f := 0; f < numFrames; f++ {
			avg := 0.5 * (mag[b+1][f] - mag[b-1][f])
			shift := 2*mag[b][f] - mag[b+1][f] - mag[b-1][f]
			if math.Abs(shift) < math.SmallestNonzeroFloat64 {
				shift += 1
			}
			shift = avg / shift

			isPeak := mag[b][f] > refValue[f] &&
				mag[b+1][f] <= mag[b][f] &&
				mag[b-1][f] < mag[b][f]
			if !isPeak {
				continue
			}
			pitches[b][f] = (float64(b) + shift) * float64(sampleRate) / float64(nFFT)
			mags[b][f] = mag[b][f] + 0.5*avg*shift
		}
	}
	return pitches, mags
}

// PitchTuning folds frequencies into fractional bins-per-octave offsets
// from equal temperament, in [-0.5, 0.5), histograms them at the given
// resolution, and returns the lower edge of the most populated bin. Exported since it is directly
// testable in isolation (spec scenario 7).
func PitchTuning(frequencies []float64, resolution float64, binsPerOctave int) float64 {
	if len(frequencies) == 0 {
		return 0
	}
	// The reference implementation hardcodes 12 bins/octave for this
	// conversion regardless of the binsPerOctave argument; preserved here
	// since the documented test vector depends on it.
	octaves := dsp.HzToOctaves(frequencies, 0, 12)

	fractional := make([]float64, len(octaves))
	for i, o := range octaves {
		x := float64(binsPerOctave) * o
		x -= math.Floor(x)
		if x >= 0.5 {
			x -= 1
		}
		fractional[i] = x
	}

	numBins := int(math.Round(1 / resolution))
	if numBins < 1 {
		numBins = 1
	}
	counts := make([]int, numBins)
	for _, x := range fractional {
		idx := int(math.Floor((x + 0.5) / resolution))
		if idx < 0 {
			idx = 0
		}
		if idx >= numBins {
			idx = numBins - 1
		}
		counts[idx]++
	}
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return -0.5 + resolution*float64(best)
}

func estimateTuning(sampleRate int, mag [][]float64, nFFT int, resolution float64, binsPerOctave int) float64 {
	pitches, mags := pipTrack(mag, sampleRate, nFFT)

	var freqs, weights []float64
	for b := range pitches {
		for f := range pitches[b] {
			if pitches[b][f] > 0 {
				freqs = append(freqs, pitches[b][f])
				weights = append(weights, mags[b][f])
			}
		}
	}
	if len(freqs) == 0 {
		return 0
	}
	threshold := dsp.Median(weights)

	var filtered []float64
	for i, w := range weights {
		if w >= threshold {
			filtered = append(filtered, freqs[i])
		}
	}
	return PitchTuning(filtered, resolution, binsPerOctave)
}

func chromaSTFT(sampleRate int, mag [][]float64, nFFT int, tuning float64) [][]float64 {
	numBins := len(mag)
	numFrames := 0
	if numBins > 0 {
		numFrames = len(mag[0])
	}

	power := make([][]float64, numBins)
	for b := range power {
		power[b] = make([]float64, numFrames)
		for f := range power[b] {
			power[b][f] = mag[b][f] * mag[b][f]
		}
	}

	filt := chromaFilter(sampleRate, nFFT, tuning)

	chroma := make([][]float64, 12)
	for c := range chroma {
		chroma[c] = make([]float64, numFrames)
		for f := 0; f < numFrames; f++ {
			var sum float64
			for b := 0; b < numBins; b++ {
				sum += filt[c][b] * power[b][f]
			}
			chroma[c][f] = sum
		}
	}

	for f := 0; f < numFrames; f++ {
		var norm float64
		for c := 0; c < 12; c++ {
			norm += chroma[c][f] * chroma[c][f]
		}
		norm = math.Sqrt(norm)
		if norm < math.SmallestNonzeroFloat64 {
			norm = 1
		}
		for c := 0; c < 12; c++ {
			chroma[c][f] /= norm
		}
	}
	return chroma
}

func smoothDownsampleFeatureSequence(feature [][]float64, filterLength, downSampling int) [][]float64 {
	kernel := make([]float64, filterLength)
	for i := range kernel {
		kernel[i] = 1
	}

	out := make([][]float64, len(feature))
	for r, row := range feature {
		convolved := dsp.Convolve(row, kernel)
		down := make([]float64, 0, len(convolved)/downSampling+1)
		for i := 0; i < len(convolved); i += downSampling {
			down = append(down, convolved[i]/float64(filterLength))
		}
		out[r] = down
	}
	return out
}

func normalizeFeatureSequence(feature [][]float64) [][]float64 {
	if len(feature) == 0 {
		return feature
	}
	numCols := len(feature[0])
	out := make([][]float64, len(feature))
	for r := range out {
		out[r] = make([]float64, numCols)
	}
	for c := 0; c < numCols; c++ {
		var norm float64
		for r := range feature {
			norm += feature[r][c] * feature[r][c]
		}
		norm = math.Sqrt(norm)
		if norm < 0.0001 {
			norm = 1
		}
		for r := range feature {
			out[r][c] = feature[r][c] / norm
		}
	}
	return out
}

// sumNormalizeFeatureSequence divides each column by the sum of its
// entries (not its L2 norm), matching the plain `sum_axis` division the
// key-center pass applies to its exponentiated template-match scores.
func sumNormalizeFeatureSequence(feature [][]float64) [][]float64 {
	if len(feature) == 0 {
		return feature
	}
	numCols := len(feature[0])
	out := make([][]float64, len(feature))
	for r := range out {
		out[r] = make([]float64, numCols)
	}
	for c := 0; c < numCols; c++ {
		var sum float64
		for r := range feature {
			sum += feature[r][c]
		}
		if sum == 0 {
			sum = 1
		}
		for r := range feature {
			out[r][c] = feature[r][c] / sum
		}
	}
	return out
}

// sortByFifths reorders the 12 rows of feature into fifths order, then
// cyclically rolls the rows by -offset.
func sortByFifths(feature [][]float64, offset int) [][]float64 {
	reordered := make([][]float64, 12)
	for i := 0; i < 12; i++ {
		reordered[i] = feature[perfectFifthIndices[i]]
	}
	shift := ((-offset % 12) + 12) % 12
	rolled := make([][]float64, 12)
	for i := 0; i < 12; i++ {
		rolled[(i+shift)%12] = reordered[i]
	}
	return rolled
}

func analysisTemplateMatch(chroma, templates [][]float64, l2NormalizeOutput bool) [][]float64 {
	chromaN := normalizeFeatureSequence(chroma)
	templatesN := normalizeFeatureSequence(templates)

	numTemplates := len(templatesN[0])
	numFrames := len(chromaN[0])

	result := make([][]float64, numTemplates)
	for t := range result {
		result[t] = make([]float64, numFrames)
		for f := 0; f < numFrames; f++ {
			var dot float64
			for c := range chromaN {
				dot += templatesN[c][t] * chromaN[c][f]
			}
			result[t][f] = dot
		}
	}
	if l2NormalizeOutput {
		result = normalizeFeatureSequence(result)
	}
	return result
}

// chromaFifthIsMajor implements the mode/key-center estimation described
// in spec §4.6: a major/minor chord-count pass and a key-center pass,
// combined to produce (is_major, tone).
func chromaFifthIsMajor(chroma [][]float64) (isMajor, cosTone, sinTone float64) {
	smoothedA := smoothDownsampleFeatureSequence(chroma, 15, 10)
	normalizedA := normalizeFeatureSequence(smoothedA)
	matchedA := analysisTemplateMatch(normalizedA, templatesMajMin, true)

	summed := make([]float64, 24)
	for f := 0; f < len(matchedA[0]); f++ {
		best := 0
		for t := 1; t < 24; t++ {
			if matchedA[t][f] > matchedA[best][f] {
				best = t
			}
		}
		summed[best]++
	}

	smoothedB := smoothDownsampleFeatureSequence(chroma, 45, 15)
	normalizedB := normalizeFeatureSequence(smoothedB)
	sorted := sortByFifths(normalizedB, -1)
	matchedB := analysisTemplateMatch(sorted, templatesScale, false)
	normalizedMatchB := normalizeFeatureSequence(matchedB)

	expScaled := make([][]float64, 12)
	for r := range expScaled {
		expScaled[r] = make([]float64, len(normalizedMatchB[r]))
		for c, v := range normalizedMatchB[r] {
			expScaled[r][c] = math.Exp(v * 70)
		}
	}
	normalizedExp := sumNormalizeFeatureSequence(expScaled)

	rowMeans := make([]float64, 12)
	for r := 0; r < 12; r++ {
		var sum float64
		for _, v := range normalizedExp[r] {
			sum += v
		}
		if len(normalizedExp[r]) > 0 {
			rowMeans[r] = sum / float64(len(normalizedExp[r]))
		}
	}
	index := 0
	for i := 1; i < 12; i++ {
		if rowMeans[i] > rowMeans[index] {
			index = i
		}
	}

	majorIdx := perfectFifthIndices[index]
	minorIdx := ((majorIdx-3)%12 + 12) % 12
	major := summed[majorIdx]
	minor := summed[12+minorIdx]

	isMajor = -1.0
	if major > minor {
		isMajor = 1.0
	}
	angle := toneAngles[index]
	return isMajor, math.Cos(angle), math.Sin(angle)
}

// Chroma accumulates the entire song waveform (chroma is computed once,
// non-streaming, over the whole signal per spec §4.6) and produces the
// key/mode estimate on Finalize.
type Chroma struct {
	mu         sync.Mutex
	sampleRate int
	samples    []float64
}

// NewChroma creates a chroma accumulator for the given sample rate.
func NewChroma(sampleRate int) *Chroma {
	return &Chroma{sampleRate: sampleRate}
}

// Push appends waveform samples. Unlike the other streaming extractors,
// Chroma expects to see the whole song — callers typically call this
// once with the full buffer.
func (c *Chroma) Push(samples []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, samples...)
}

// Finalize runs the chromagram construction and mode/key estimation over
// everything pushed so far, returning is_major and the (cos, sin) tone
// angle.
func (c *Chroma) Finalize() (isMajor, cosTone, sinTone float64) {
	c.mu.Lock()
	samples := append([]float64(nil), c.samples...)
	c.mu.Unlock()

	spec := dsp.STFT(samples, ChromaWindow, ChromaHop)
	mag := magnitudeMatrix(spec)
	tuning := estimateTuning(c.sampleRate, mag, ChromaWindow, 0.01, 12)
	chromagram := chromaSTFT(c.sampleRate, mag, ChromaWindow, tuning)
	return chromaFifthIsMajor(chromagram)
}
