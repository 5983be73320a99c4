package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManagerLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	require.NoError(t, m.Load())

	require.NoError(t, m.AddLibraryPath("/music"))

	reloaded := NewManager(dir)
	require.NoError(t, reloaded.Load())
	require.Equal(t, []string{"/music"}, reloaded.Get().LibraryPaths)
	require.Equal(t, 22050, reloaded.Get().Analysis.SampleRate)
	require.Equal(t, filepath.Join(dir, "config.json"), reloaded.GetPath())
}
