package decode

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("fixture %s not present in this checkout", name)
	}
	return path
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available")
	}
}

// TestDecodeMono exercises the full probe+decode path against the
// reference mono FLAC fixture, checked against the reference
// implementation's tag extraction scenario. The fixture is not part of
// this checkout, so the test skips when it is absent rather than
// failing.
func TestDecodeMono(t *testing.T) {
	requireFFmpeg(t)
	path := fixture(t, "s16_mono_22_5kHz.flac")

	d, err := New(nil)
	require.NoError(t, err)

	result, err := d.Decode(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "David TMX", result.Tags.Artist)
	require.Equal(t, "Renaissance", result.Tags.Title)
	require.Equal(t, "Renaissance", result.Tags.Album)
	require.Equal(t, "Pop", result.Tags.Genre)
	require.NotEmpty(t, result.Samples)
}

// TestDecodeNonexistent exercises the fatal-path probe error without
// needing any fixture.
func TestDecodeNonexistent(t *testing.T) {
	requireFFmpeg(t)

	d, err := New(nil)
	require.NoError(t, err)

	_, err = d.Decode(context.Background(), filepath.Join("testdata", "does-not-exist.flac"))
	require.Error(t, err)
}

// ripemd160Hex hashes the little-endian f32 byte stream of samples,
// matching `ffmpeg -ar 22050 -ac 1 -c:a pcm_f32le -f hash -hash ripemd160`
// applied to the same decode — the method the reference implementation
// used to produce its decode-hash test vectors.
func ripemd160Hex(samples []float32) string {
	h := ripemd160.New()
	buf := make([]byte, 4)
	for _, s := range samples {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(s))
		h.Write(buf)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// TestDecodeHashes reproduces spec.md §8 scenarios 1-3: decoding each
// fixture must match a reference RIPEMD-160 hash of the resampled mono
// f32 waveform.
func TestDecodeHashes(t *testing.T) {
	requireFFmpeg(t)

	cases := []struct {
		name     string
		fixture  string
		wantHash string
	}{
		{"mono 16-bit FLAC at SR", "s16_mono_22_5kHz.flac", "9d95a5f2d29c68e88a70cdf3542c5b4598b4f3b4"},
		{"stereo 16-bit FLAC at SR", "s16_stereo_22_5kHz.flac", "24ed455806bffb05575fdc4db49ba52b0556104f"},
		{"stereo 32-bit FLAC at 44.1kHz", "s32_stereo_44_1_kHz.flac", "c5f823ce632cf4a07266bb49ad84b6ea48489c50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := fixture(t, tc.fixture)

			d, err := New(nil)
			require.NoError(t, err)

			result, err := d.Decode(context.Background(), path)
			require.NoError(t, err)
			require.Equal(t, tc.wantHash, ripemd160Hex(result.Samples))
		})
	}
}
