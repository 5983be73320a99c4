// Package main is the entry point for blissctl, a thin CLI that drives
// the fingerprinting core through internal/library, an analysis.Analyzer
// and a SQLite-backed storage.SQLite library — it holds no analysis
// logic of its own.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/blissgo/bliss/internal/analysis"
	"github.com/blissgo/bliss/internal/config"
	"github.com/blissgo/bliss/internal/decode"
	"github.com/blissgo/bliss/internal/library"
	"github.com/blissgo/bliss/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("blissctl", pflag.ContinueOnError)
	configDir := flags.StringP("config", "c", defaultConfigDir(), "Configuration directory.")
	dbPath := flags.StringP("db", "d", "", "SQLite library file (default: <config-dir>/library.db).")
	playlistLen := flags.IntP("length", "n", 0, "Playlist length for playlist-from-current (default: config value).")
	verbose := flags.BoolP("verbose", "v", false, "Enable debug-level logging.")

	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "blissctl - a thin CLI over a music fingerprinting library.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: blissctl [options] <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  rescan                register every audio file under the configured library paths\n")
		fmt.Fprintf(os.Stderr, "  update                analyze every unanalyzed, registered path\n")
		fmt.Fprintf(os.Stderr, "  analyze-path <file>   analyze and store a single file\n")
		fmt.Fprintf(os.Stderr, "  playlist-from-current <file>   print the n nearest stored songs to file\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	positional := flags.Args()
	if len(positional) == 0 {
		flags.Usage()
		return 2
	}
	command, commandArgs := positional[0], positional[1:]

	if *dbPath == "" {
		*dbPath = filepath.Join(*configDir, "library.db")
	}

	mgr := config.NewManager(*configDir)
	if err := mgr.Load(); err != nil {
		logger.Error("failed to load configuration", "err", err)
		return 1
	}
	cfg := mgr.Get()
	if *playlistLen <= 0 {
		*playlistLen = cfg.Analysis.PlaylistLength
	}

	lib, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		logger.Error("failed to open library database", "path", *dbPath, "err", err)
		return 1
	}
	defer lib.Close()

	decoder, err := decode.New(logger)
	if err != nil {
		logger.Error("failed to locate ffmpeg/ffprobe", "err", err)
		return 1
	}
	analyzer := analysis.NewAnalyzer(decoder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Warn("received signal, shutting down", "signal", sig)
		cancel()
	}()

	switch command {
	case "rescan":
		return cmdRescan(cfg, lib, logger)
	case "update":
		return cmdUpdate(ctx, lib, analyzer, logger)
	case "analyze-path":
		return cmdAnalyzePath(ctx, commandArgs, lib, analyzer, logger)
	case "playlist-from-current":
		return cmdPlaylist(commandArgs, lib, *playlistLen, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		flags.Usage()
		return 2
	}
}

func defaultConfigDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".blissctl"
	}
	return filepath.Join(dir, ".config", "blissctl")
}

func cmdRescan(cfg *config.Config, lib *storage.SQLite, logger *log.Logger) int {
	runID := uuid.New().String()
	start := time.Now()

	var found []string
	for _, root := range cfg.LibraryPaths {
		fs := storage.NewFilesystem(root)
		paths, err := fs.ListPaths()
		if err != nil {
			logger.Error("failed to scan library path", "run", runID, "path", root, "err", err)
			return 1
		}
		found = append(found, paths...)
	}

	if err := lib.RegisterPaths(found); err != nil {
		logger.Error("failed to register paths", "run", runID, "err", err)
		return 1
	}

	logger.Info("rescan complete",
		"run", runID,
		"files", humanize.Comma(int64(len(found))),
		"elapsed", humanize.RelTime(start, time.Now(), "", ""))
	return 0
}

func cmdUpdate(ctx context.Context, lib *storage.SQLite, analyzer *analysis.Analyzer, logger *log.Logger) int {
	runID := uuid.New().String()
	start := time.Now()

	results, err := library.AnalyzeLibrary(ctx, lib, analyzer, logger.With("run", runID))
	if err != nil {
		logger.Error("failed to list library paths", "run", runID, "err", err)
		return 1
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	logger.Info("update complete",
		"run", runID,
		"analyzed", humanize.Comma(int64(len(results)-failed)),
		"failed", humanize.Comma(int64(failed)),
		"elapsed", humanize.RelTime(start, time.Now(), "", ""))
	if failed > 0 && failed == len(results) {
		return 1
	}
	return 0
}

func cmdAnalyzePath(ctx context.Context, args []string, lib *storage.SQLite, analyzer *analysis.Analyzer, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "analyze-path requires exactly one file argument")
		return 2
	}
	path := args[0]

	song, err := analyzer.Analyze(ctx, path)
	if err != nil {
		logger.Error("analysis failed", "path", path, "err", err)
		if storeErr := lib.StoreError(path, err); storeErr != nil {
			logger.Warn("failed to record analysis error", "path", path, "err", storeErr)
		}
		return 1
	}

	if err := lib.StoreSong(song); err != nil {
		logger.Error("failed to store song", "path", path, "err", err)
		return 1
	}

	logger.Info("analyzed", "path", path, "artist", song.Artist, "title", song.Title)
	return 0
}

func cmdPlaylist(args []string, lib *storage.SQLite, n int, logger *log.Logger) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "playlist-from-current requires exactly one file argument")
		return 2
	}
	path := args[0]

	stored, err := lib.ListStoredSongs()
	if err != nil {
		logger.Error("failed to list stored songs", "err", err)
		return 1
	}

	var seed *analysis.Song
	for _, s := range stored {
		if s.Path == path {
			seed = s
			break
		}
	}
	if seed == nil {
		fmt.Fprintf(os.Stderr, "%s is not a stored, analyzed song\n", path)
		return 1
	}

	playlist, err := library.PlaylistFromSong(lib, seed, n)
	if err != nil {
		logger.Error("failed to build playlist", "err", err)
		return 1
	}

	for i, s := range playlist {
		fmt.Printf("%s\t%s\t%s\t%s\n", strconv.Itoa(i+1), s.Path, s.Artist, s.Title)
	}
	return 0
}
