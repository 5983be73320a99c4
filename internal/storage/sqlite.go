package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/blissgo/bliss/internal/analysis"
	"github.com/blissgo/bliss/internal/blisserr"
)

// SQLite is a Library backed by the illustrative two-table schema from
// the external-interfaces contract: a `song` table (metadata + analyzed
// flag) and a `feature` table recovering the analysis vector from
// (song_id, feature_index) pairs.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a SQLite-backed library at
// path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Provider, path, "failed to open database", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS song (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT UNIQUE NOT NULL,
	artist TEXT,
	title TEXT,
	album TEXT,
	track_number TEXT,
	genre TEXT,
	analyzed BOOLEAN NOT NULL DEFAULT 0,
	error_message TEXT
);
CREATE TABLE IF NOT EXISTS feature (
	song_id INTEGER NOT NULL REFERENCES song(id) ON DELETE CASCADE,
	feature_index INTEGER NOT NULL,
	feature REAL NOT NULL,
	PRIMARY KEY (song_id, feature_index)
);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, blisserr.Wrap(blisserr.Provider, path, "failed to create schema", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RegisterPaths seeds the song table with paths not yet known, leaving
// analyzed=0, so a later AnalyzeLibrary call via ListPaths picks them up.
func (s *SQLite) RegisterPaths(paths []string) error {
	stmt, err := s.db.Prepare(`INSERT OR IGNORE INTO song (path) VALUES (?)`)
	if err != nil {
		return blisserr.Wrap(blisserr.Provider, "", "failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.Exec(p); err != nil {
			return blisserr.Wrap(blisserr.Provider, p, "failed to register path", err)
		}
	}
	return nil
}

// ListPaths returns every registered path that has not yet been
// successfully analyzed.
func (s *SQLite) ListPaths() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM song WHERE analyzed = 0`)
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Provider, "", "failed to list paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, blisserr.Wrap(blisserr.Provider, "", "failed to scan path", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// StoreSong upserts song's metadata and analysis vector, marking it
// analyzed.
func (s *SQLite) StoreSong(song *analysis.Song) error {
	tx, err := s.db.Begin()
	if err != nil {
		return blisserr.Wrap(blisserr.Provider, song.Path, "failed to begin transaction", err)
	}

	_, err = tx.Exec(`
INSERT INTO song (path, artist, title, album, track_number, genre, analyzed, error_message)
VALUES (?, ?, ?, ?, ?, ?, 1, NULL)
ON CONFLICT(path) DO UPDATE SET
	artist=excluded.artist, title=excluded.title, album=excluded.album,
	track_number=excluded.track_number, genre=excluded.genre,
	analyzed=1, error_message=NULL
`, song.Path, song.Artist, song.Title, song.Album, song.TrackNumber, song.Genre)
	if err != nil {
		tx.Rollback()
		return blisserr.Wrap(blisserr.Provider, song.Path, "failed to upsert song", err)
	}

	// Look the id up explicitly: on the conflict path LastInsertId does not
	// report the updated row's id.
	var songID int64
	row := tx.QueryRow(`SELECT id FROM song WHERE path = ?`, song.Path)
	if scanErr := row.Scan(&songID); scanErr != nil {
		tx.Rollback()
		return blisserr.Wrap(blisserr.Provider, song.Path, "failed to resolve song id", scanErr)
	}

	if _, err := tx.Exec(`DELETE FROM feature WHERE song_id = ?`, songID); err != nil {
		tx.Rollback()
		return blisserr.Wrap(blisserr.Provider, song.Path, "failed to clear features", err)
	}

	for i, v := range song.Analysis {
		if _, err := tx.Exec(`INSERT INTO feature (song_id, feature_index, feature) VALUES (?, ?, ?)`, songID, i, v); err != nil {
			tx.Rollback()
			return blisserr.Wrap(blisserr.Provider, song.Path, fmt.Sprintf("failed to store feature %d", i), err)
		}
	}

	return tx.Commit()
}

// StoreError marks path as not analyzed, recording the failure message.
func (s *SQLite) StoreError(path string, storeErr error) error {
	_, err := s.db.Exec(`
INSERT INTO song (path, analyzed, error_message) VALUES (?, 0, ?)
ON CONFLICT(path) DO UPDATE SET analyzed=0, error_message=excluded.error_message
`, path, storeErr.Error())
	if err != nil {
		return blisserr.Wrap(blisserr.Provider, path, "failed to store analysis error", err)
	}
	return nil
}

// ListStoredSongs returns every successfully analyzed song with its full
// analysis vector reconstructed from the feature table.
func (s *SQLite) ListStoredSongs() ([]*analysis.Song, error) {
	rows, err := s.db.Query(`
SELECT id, path, artist, title, album, track_number, genre
FROM song WHERE analyzed = 1
`)
	if err != nil {
		return nil, blisserr.Wrap(blisserr.Provider, "", "failed to list songs", err)
	}
	defer rows.Close()

	var songs []*analysis.Song
	ids := map[int64]*analysis.Song{}
	for rows.Next() {
		var id int64
		song := &analysis.Song{}
		if err := rows.Scan(&id, &song.Path, &song.Artist, &song.Title, &song.Album, &song.TrackNumber, &song.Genre); err != nil {
			return nil, blisserr.Wrap(blisserr.Provider, "", "failed to scan song", err)
		}
		songs = append(songs, song)
		ids[id] = song
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for id, song := range ids {
		featureRows, err := s.db.Query(`SELECT feature_index, feature FROM feature WHERE song_id = ?`, id)
		if err != nil {
			return nil, blisserr.Wrap(blisserr.Provider, song.Path, "failed to load features", err)
		}
		for featureRows.Next() {
			var idx int
			var v float64
			if err := featureRows.Scan(&idx, &v); err != nil {
				featureRows.Close()
				return nil, blisserr.Wrap(blisserr.Provider, song.Path, "failed to scan feature", err)
			}
			if idx >= 0 && idx < analysis.VectorLength {
				song.Analysis[idx] = v
			}
		}
		featureRows.Close()
	}

	return songs, nil
}
