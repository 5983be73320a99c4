// Package library defines the capability set a media library exposes to
// the fingerprinting core, and the default algorithms built on top of it
// (batch analysis and similarity-ordered playlists), matching the
// reference implementation's Library trait.
package library

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/blissgo/bliss/internal/analysis"
)

// Library is the capability set a storage/media backend must provide.
// The core never depends on a concrete storage technology; it only
// calls through this interface.
type Library interface {
	ListPaths() ([]string, error)
	StoreSong(song *analysis.Song) error
	StoreError(path string, err error) error
	ListStoredSongs() ([]*analysis.Song, error)
}

// AnalyzePaths analyzes every path, storing each successful result and
// logging (not propagating) any StoreSong failure, matching the
// reference implementation's analyze_paths: a single path's or store's
// failure never aborts the batch.
func AnalyzePaths(ctx context.Context, lib Library, analyzer *analysis.Analyzer, paths []string, logger *log.Logger) []analysis.BatchResult {
	if logger == nil {
		logger = log.Default()
	}
	results := analysis.AnalyzeBatch(ctx, analyzer, paths, logger)
	for _, r := range results {
		if r.Err != nil {
			if err := lib.StoreError(r.Path, r.Err); err != nil {
				logger.Warn("failed to store analysis error", "path", r.Path, "err", err)
			}
			continue
		}
		if err := lib.StoreSong(r.Song); err != nil {
			logger.Warn("failed to store song", "path", r.Path, "err", err)
		}
	}
	return results
}

// AnalyzeLibrary lists every path the library knows about and analyzes
// them all.
func AnalyzeLibrary(ctx context.Context, lib Library, analyzer *analysis.Analyzer, logger *log.Logger) ([]analysis.BatchResult, error) {
	paths, err := lib.ListPaths()
	if err != nil {
		return nil, err
	}
	return AnalyzePaths(ctx, lib, analyzer, paths, logger), nil
}

// PlaylistFromSong returns the n songs (including first itself) from the
// library's stored songs, ordered by increasing Mahalanobis distance
// from first's analysis vector.
func PlaylistFromSong(lib Library, first *analysis.Song, n int) ([]*analysis.Song, error) {
	stored, err := lib.ListStoredSongs()
	if err != nil {
		return nil, err
	}

	type scored struct {
		song *analysis.Song
		d    float64
	}
	scoredSongs := make([]scored, 0, len(stored))
	for _, s := range stored {
		scoredSongs = append(scoredSongs, scored{song: s, d: analysis.DistanceVec9(first.Analysis, s.Analysis)})
	}

	sort.SliceStable(scoredSongs, func(i, j int) bool {
		return scoredSongs[i].d < scoredSongs[j].d
	})

	if n > len(scoredSongs) {
		n = len(scoredSongs)
	}
	out := make([]*analysis.Song, n)
	for i := 0; i < n; i++ {
		out[i] = scoredSongs[i].song
	}
	return out, nil
}
