// Package parallel splits a range of independent conditions across worker
// goroutines. The host backend uses it to emulate a device's compute
// units: each worker owns one contiguous sub-range and the call blocks
// until every worker finishes.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how a range is split.
type Config struct {
	Workers      int // Worker goroutines; <= 0 means all CPUs.
	MinChunkSize int // Minimum conditions per worker to avoid overhead.
}

// DefaultConfig uses every logical CPU with a modest per-worker minimum.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		MinChunkSize: 64,
	}
}

// ForRanges executes f(lo, hi) over disjoint sub-ranges covering [0, n)
// exactly, in parallel. Sub-ranges never overlap and never leave gaps, so
// f may write to per-index data without coordination. Runs sequentially
// when one worker suffices.
func ForRanges(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunk := (n + workers - 1) / workers
	if chunk < cfg.MinChunkSize {
		chunk = cfg.MinChunkSize
	}
	if chunk >= n || workers == 1 {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(start, end)
	}
	wg.Wait()
}

// For executes f(i) for every i in [0, n), parallelized via ForRanges.
func For(n int, cfg Config, f func(i int)) {
	ForRanges(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}
