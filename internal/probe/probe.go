package probe

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"video-browser/internal/metrics"
)

const (
	// DefaultProbeTimeout bounds a single ffprobe invocation.
	DefaultProbeTimeout = 10 * time.Second
	// DefaultExtractTimeout bounds a single ffmpeg frame extraction.
	DefaultExtractTimeout = 30 * time.Second
)

// Runner executes an external command and reports its stdout and whether it
// exited successfully within the timeout. Implementations must never block
// past the timeout.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (stdout string, ok bool)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct {
	Log zerolog.Logger
}

// Run invokes name with args, killing the process once timeout elapses or
// ctx is canceled. ok is false on non-zero exit, timeout, or spawn failure.
func (r ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...) // #nosec G204

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.Log.Debug().
			Str("command", name).
			Err(err).
			Str("stderr", truncate(stderr.String(), 512)).
			Msg("command failed")
		return stdout.String(), false
	}

	return stdout.String(), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Prober wraps the duration-probe and frame-extraction commands. It is a
// thin synchronous facade; callers are expected to run it off the control
// goroutine, inside pipeline workers.
type Prober struct {
	runner         Runner
	probeTimeout   time.Duration
	extractTimeout time.Duration
	log            zerolog.Logger
}

// New creates a Prober on the given runner. A nil runner gets an ExecRunner.
func New(runner Runner, log zerolog.Logger) *Prober {
	if runner == nil {
		runner = ExecRunner{Log: log}
	}
	return &Prober{
		runner:         runner,
		probeTimeout:   DefaultProbeTimeout,
		extractTimeout: DefaultExtractTimeout,
		log:            log,
	}
}

// Duration probes the container duration of path in seconds. ok is false on
// process failure, timeout, or unparsable output; it is the caller's job to
// apply a fallback. A parsed value is returned as-is, including zero and
// negative values.
func (p *Prober) Duration(ctx context.Context, path string) (float64, bool) {
	start := time.Now()
	out, ok := p.runner.Run(ctx, "ffprobe", []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}, p.probeTimeout)
	metrics.CommandDuration.WithLabelValues("ffprobe").Observe(time.Since(start).Seconds())
	if !ok {
		metrics.CommandsTotal.WithLabelValues("ffprobe", "error").Inc()
		return 0, false
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues("ffprobe", "error").Inc()
		p.log.Debug().Str("path", path).Str("output", truncate(out, 64)).Msg("unparsable ffprobe duration")
		return 0, false
	}
	metrics.CommandsTotal.WithLabelValues("ffprobe", "success").Inc()
	return secs, true
}

// ExtractFrame writes the frame at offsetSecs of path to outPath. It returns
// false when the command fails, times out, or leaves no output file behind.
func (p *Prober) ExtractFrame(ctx context.Context, path string, offsetSecs float64, outPath string) bool {
	start := time.Now()
	_, ok := p.runner.Run(ctx, "ffmpeg", []string{
		"-y",
		"-ss", strconv.FormatFloat(offsetSecs, 'f', -1, 64),
		"-i", path,
		"-vframes", "1",
		outPath,
	}, p.extractTimeout)
	metrics.CommandDuration.WithLabelValues("ffmpeg").Observe(time.Since(start).Seconds())
	if !ok {
		metrics.CommandsTotal.WithLabelValues("ffmpeg", "error").Inc()
		return false
	}

	// ffmpeg can exit zero without producing a frame (e.g. seeking past EOF).
	if fi, err := os.Stat(outPath); err != nil || fi.Size() == 0 {
		metrics.CommandsTotal.WithLabelValues("ffmpeg", "error").Inc()
		p.log.Debug().Str("path", path).Float64("offset", offsetSecs).Msg("extraction produced no output file")
		return false
	}
	metrics.CommandsTotal.WithLabelValues("ffmpeg", "success").Inc()
	return true
}
