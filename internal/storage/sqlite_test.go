package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blissgo/bliss/internal/analysis"
)

func TestSQLiteRoundTrip(t *testing.T) {
	lib, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer lib.Close()

	require.NoError(t, lib.RegisterPaths([]string{"a.flac", "b.flac"}))

	paths, err := lib.ListPaths()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a.flac", "b.flac"}, paths)

	song := &analysis.Song{Path: "a.flac", Artist: "David TMX", Title: "Renaissance"}
	song.Analysis[0] = 0.5
	require.NoError(t, lib.StoreSong(song))

	require.NoError(t, lib.StoreError("b.flac", assertError{"too short"}))

	remaining, err := lib.ListPaths()
	require.NoError(t, err)
	require.Equal(t, []string{"b.flac"}, remaining)

	stored, err := lib.ListStoredSongs()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "a.flac", stored[0].Path)
	require.InDelta(t, 0.5, stored[0].Analysis[0], 1e-9)
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }
