package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blissgo/bliss/internal/analysis"
)

type fakeLibrary struct {
	songs []*analysis.Song
}

func (f *fakeLibrary) ListPaths() ([]string, error)                { return nil, nil }
func (f *fakeLibrary) StoreSong(song *analysis.Song) error         { return nil }
func (f *fakeLibrary) StoreError(path string, err error) error     { return nil }
func (f *fakeLibrary) ListStoredSongs() ([]*analysis.Song, error)  { return f.songs, nil }

func vec3(a, b, c float64) [analysis.VectorLength]float64 {
	var v [analysis.VectorLength]float64
	v[0], v[1], v[2] = a, b, c
	return v
}

func TestPlaylistFromSongOrdersByDistance(t *testing.T) {
	seed := &analysis.Song{Path: "seed", Analysis: vec3(0, 0, 0)}
	near := &analysis.Song{Path: "near", Analysis: vec3(0.1, 0, 0)}
	far := &analysis.Song{Path: "far", Analysis: vec3(10, 11, 10)}

	lib := &fakeLibrary{songs: []*analysis.Song{far, near, seed}}

	playlist, err := PlaylistFromSong(lib, seed, 3)
	require.NoError(t, err)
	require.Len(t, playlist, 3)
	assert.Equal(t, "seed", playlist[0].Path)
	assert.Equal(t, "near", playlist[1].Path)
	assert.Equal(t, "far", playlist[2].Path)
}
