// Package workers sizes the artifact pipeline's worker pool. Worker counts
// derive from GOMAXPROCS so container CPU limits are respected (Go 1.19+),
// and are always capped: every pipeline worker may hold a live external
// process, and an unbounded pool would mean unbounded ffmpeg processes.
package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the worker count for the given per-CPU multiplier, capped
// at limit (0 means no cap). The PIPELINE_WORKERS environment variable
// overrides the calculation.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("PIPELINE_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	available := runtime.GOMAXPROCS(0)

	count := int(float64(available) * multiplier)
	if count < 1 {
		count = 1
	}
	if limit > 0 && count > limit {
		count = limit
	}
	return count
}

// ForPipeline returns the worker count for artifact tasks. Tasks mix
// subprocess waits with image decode work, so 1.5 workers per CPU.
func ForPipeline(limit int) int {
	return Count(1.5, limit)
}
