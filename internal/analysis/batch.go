package analysis

import (
	"context"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
)

// BatchResult is one path's analysis outcome within a batch run.
type BatchResult struct {
	Path string
	Song *Song
	Err  error
}

// AnalyzeBatch partitions paths across roughly runtime.NumCPU() workers,
// each running the full per-song pipeline independently (the batch
// analyzer's own concurrency boundary, distinct from the per-song
// fan-out inside Analyzer.Analyze). A single path's failure never
// aborts the others; the returned slice preserves input order.
func AnalyzeBatch(ctx context.Context, analyzer *Analyzer, paths []string, logger *log.Logger) []BatchResult {
	if logger == nil {
		logger = log.Default()
	}
	results := make([]BatchResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	indices := make(chan int, len(paths))
	for i := range paths {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range indices {
				path := paths[idx]
				song, err := analyzer.Analyze(ctx, path)
				if err != nil {
					logger.Warn("analysis failed", "path", path, "err", err)
				}
				results[idx] = BatchResult{Path: path, Song: song, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}
