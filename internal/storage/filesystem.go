// Package storage provides reference Library implementations: a
// filesystem-backed path lister adapted from the teacher's directory
// scanner, and a SQLite-backed song/feature store.
package storage

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blissgo/bliss/internal/analysis"
	"github.com/blissgo/bliss/internal/blisserr"
)

// SupportedExtensions are the audio file extensions Filesystem
// recognizes during a scan.
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".wav":  true,
	".wma":  true,
	".alac": true,
	".opus": true,
}

// Filesystem is a Library whose ListPaths walks a root directory for
// recognized audio files, and whose store/list operations are an
// in-memory cache — useful for tests and small libraries, where a full
// database is unnecessary.
type Filesystem struct {
	root string

	mu     sync.Mutex
	songs  map[string]*analysis.Song
	errors map[string]error
}

// NewFilesystem creates a Filesystem library rooted at root.
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{
		root:   root,
		songs:  make(map[string]*analysis.Song),
		errors: make(map[string]error),
	}
}

// ListPaths walks root and returns every file whose extension is in
// SupportedExtensions.
func (f *Filesystem) ListPaths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(f.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if SupportedExtensions[ext] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Provider, f.root, "failed to scan library", err)
	}
	return paths, nil
}

// StoreSong caches song by path.
func (f *Filesystem) StoreSong(song *analysis.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.songs[song.Path] = song
	return nil
}

// StoreError records a per-path analysis failure.
func (f *Filesystem) StoreError(path string, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[path] = err
	return nil
}

// ListStoredSongs returns every song stored so far.
func (f *Filesystem) ListStoredSongs() ([]*analysis.Song, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*analysis.Song, 0, len(f.songs))
	for _, s := range f.songs {
		out = append(out, s)
	}
	return out, nil
}
