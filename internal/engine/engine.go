// Package engine builds catalogs from raw point-cloud files by shelling out
// to external tooling. Nothing here decodes point data itself; the engine
// boundary is process execution and JSON parsing.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/lidar-tools/tilecat/internal/vpc"
)

// probeThreshold is the batch size above which per-file probing fans out to
// a worker pool.
const probeThreshold = 20

// Prober extracts one catalog entry from one point-cloud file.
type Prober interface {
	Probe(ctx context.Context, path string) (vpc.Entry, error)
}

// ProbeEngine implements vpc.Engine by probing files one by one, fanning
// out to a bounded worker pool for large batches. The pool lives for one
// batch only; results keep the input file order either way.
type ProbeEngine struct {
	Prober Prober
	// Workers caps the pool size; 0 means half the logical cores.
	Workers int
}

// NewProbeEngine wraps a prober with the default pool sizing.
func NewProbeEngine(p Prober) *ProbeEngine {
	return &ProbeEngine{Prober: p}
}

func (e *ProbeEngine) workers() int {
	if e.Workers > 0 {
		return e.Workers
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}

// Build probes every file and assembles the results into a catalog. Files
// that fail to probe are skipped with a warning; if every file fails the
// result is nil, nil.
func (e *ProbeEngine) Build(ctx context.Context, files []string) (*vpc.Catalog, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if e.Prober == nil {
		return nil, fmt.Errorf("no prober configured")
	}

	results := make([]vpc.Entry, len(files))
	errs := make([]error, len(files))

	if len(files) <= probeThreshold {
		for i, path := range files {
			results[i], errs[i] = e.Prober.Probe(ctx, path)
		}
	} else {
		workers := e.workers()
		slog.Debug("Probing files with worker pool", "files", len(files), "workers", workers)

		var wg sync.WaitGroup
		semaphore := make(chan struct{}, workers)
		for i, path := range files {
			wg.Add(1)
			go func(idx int, path string) {
				defer wg.Done()
				semaphore <- struct{}{}        // Acquire
				defer func() { <-semaphore }() // Release

				results[idx], errs[idx] = e.Prober.Probe(ctx, path)
			}(i, path)
		}
		wg.Wait()
	}

	entries := make([]vpc.Entry, 0, len(files))
	for i, err := range errs {
		if err != nil {
			slog.Warn("Skipping file that failed to probe", "path", files[i], "err", err)
			continue
		}
		entries = append(entries, results[i])
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return vpc.New(entries...), nil
}

// binaryFromEnv reads an external tool path from the environment, falling
// back to looking the default name up on PATH.
func binaryFromEnv(envVar, fallback string) string {
	if bin := os.Getenv(envVar); bin != "" {
		return bin
	}
	return fallback
}
