// Package decode turns an arbitrary audio container/codec into the
// canonical waveform the rest of the pipeline operates on: mono
// float32 samples at a fixed sample rate, plus whatever tags the
// container carries. It shells out to ffmpeg/ffprobe exactly as the
// reference decoder does, since no pure-Go demuxer in the dependency
// set covers the codec surface a real music library needs.
package decode

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/blissgo/bliss/internal/blisserr"
)

// SampleRate is the fixed output sample rate every Song is resampled to,
// matching the reference implementation's analysis sample rate.
const SampleRate = 22050

// Tags holds the subset of container metadata the analyzer cares about.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Genre       string
	Track       string
}

// Result is a fully decoded, resampled song: mono float32 samples at
// SampleRate, plus its tags.
type Result struct {
	Samples []float32
	Tags    Tags
}

// Decoder decodes audio files via the ffmpeg/ffprobe binaries on PATH.
type Decoder struct {
	ffmpegPath  string
	ffprobePath string
	logger      *log.Logger
}

// New locates ffmpeg and ffprobe on PATH. logger may be nil, in which
// case a default logger is used.
func New(logger *log.Logger) (*Decoder, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Decoding, "", "ffmpeg not found in PATH", err)
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Decoding, "", "ffprobe not found in PATH", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Decoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}, nil
}

// Decode reads path, resamples it to mono float32 at SampleRate, and
// extracts its tags. Decoding follows the same three error rules as the
// reference implementation: a stream with no audio at all is a fatal
// Decoding error; ffmpeg exiting on malformed input after producing no
// samples is a fatal "wrong codec opened" error; ffmpeg exiting after
// producing at least some samples (premature EOF) is logged as a warning
// and returned as a partial success.
func (d *Decoder) Decode(ctx context.Context, path string) (*Result, error) {
	tags, duration, err := d.probe(path)
	if err != nil {
		return nil, err
	}

	capacityHint := int(math.Ceil(duration*SampleRate)) + SampleRate
	if capacityHint < 0 {
		capacityHint = 0
	}

	args := []string{
		"-v", "error",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(SampleRate),
		"-",
	}
	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Decoding, path, "failed to open ffmpeg stdout", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, blisserr.Wrap(blisserr.Decoding, path, "failed to start ffmpeg", err)
	}

	// Reader goroutine: pulls fixed-size chunks off ffmpeg's stdout pipe
	// and hands them across a bounded channel to the convert goroutine,
	// matching the packet-thread/resample-thread split of the reference
	// decoder.
	chunks := make(chan []byte, 4)
	go func() {
		defer close(chunks)
		reader := bufio.NewReaderSize(stdout, 1<<16)
		for {
			buf := make([]byte, 1<<16)
			n, readErr := reader.Read(buf)
			if n > 0 {
				chunks <- buf[:n]
			}
			if readErr != nil {
				return
			}
		}
	}()

	samples := make([]float32, 0, capacityHint)
	var leftover []byte
	for chunk := range chunks {
		data := chunk
		if len(leftover) > 0 {
			data = append(leftover, chunk...)
			leftover = nil
		}
		usable := len(data) - len(data)%4
		for i := 0; i < usable; i += 4 {
			bits := binary.LittleEndian.Uint32(data[i : i+4])
			samples = append(samples, math.Float32frombits(bits))
		}
		if rem := len(data) - usable; rem > 0 {
			leftover = append(leftover, data[usable:]...)
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		if len(samples) == 0 {
			return nil, blisserr.Wrap(blisserr.Decoding, path, "wrong codec opened", fmt.Errorf("%w: %s", waitErr, strings.TrimSpace(stderr.String())))
		}
		d.logger.Warn("premature EOF reached while decoding", "path", path, "err", waitErr)
	}

	return &Result{Samples: samples, Tags: tags}, nil
}

type probeFormat struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

func (d *Decoder) probe(path string) (Tags, float64, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := exec.Command(d.ffprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return Tags{}, 0, blisserr.Wrap(blisserr.Decoding, path, "while opening format", err)
	}

	var probed probeFormat
	if err := json.Unmarshal(out, &probed); err != nil {
		return Tags{}, 0, blisserr.Wrap(blisserr.Decoding, path, "failed to parse ffprobe output", err)
	}

	hasAudio := false
	for _, s := range probed.Streams {
		if s.CodecType == "audio" {
			hasAudio = true
			break
		}
	}
	if !hasAudio {
		return Tags{}, 0, blisserr.New(blisserr.Decoding, "no audio stream found: "+path)
	}

	var tags Tags
	for key, value := range probed.Format.Tags {
		switch strings.ToLower(key) {
		case "title":
			tags.Title = value
		case "artist":
			tags.Artist = value
		case "album":
			tags.Album = value
		case "album_artist":
			tags.AlbumArtist = value
		case "genre":
			tags.Genre = value
		case "track":
			tags.Track = value
		}
	}
	if tags.Artist == "" {
		tags.Artist = tags.AlbumArtist
	}

	var duration float64
	if probed.Format.Duration != "" {
		duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	}

	return tags, duration, nil
}
