package card

import (
	"context"
	"image"
	"sync/atomic"

	"github.com/rs/zerolog"

	"video-browser/internal/artifact"
	"video-browser/internal/metrics"
)

// FilmstripFrames is the number of preview frames sampled per video, at
// offsets duration*i/(FilmstripFrames+1) for i in 1..FilmstripFrames.
const FilmstripFrames = 5

// FallbackDuration substitutes for a failed or non-positive duration probe,
// so downstream offsets are always positive.
const FallbackDuration = 1.0

// FrameExtractor is the external media-command surface tasks depend on.
// Satisfied by *probe.Prober.
type FrameExtractor interface {
	Duration(ctx context.Context, path string) (float64, bool)
	ExtractFrame(ctx context.Context, path string, offsetSecs float64, outPath string) bool
}

// ArtifactResolver resolves overrides, designates ephemeral output paths,
// and decodes artifacts. Satisfied by *artifact.Cache.
type ArtifactResolver interface {
	ResolveOverride(identity, title string) (string, bool)
	ThumbPath(identity string) string
	FramePath(identity string, index int) string
	DecodeScaled(path string) (image.Image, error)
}

// TaskKind names the two artifact task types.
type TaskKind string

const (
	// TaskThumbnail produces the single representative thumbnail.
	TaskThumbnail TaskKind = "thumbnail"
	// TaskFilmstrip produces the ordered preview frames, streamed one at a
	// time.
	TaskFilmstrip TaskKind = "filmstrip"
)

// TaskState is a task's lifecycle state.
type TaskState int32

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskCompleted
	TaskCanceled
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskCanceled:
		return "canceled"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a terminal state.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskCanceled || s == TaskFailed
}

// taskContext carries the values a task captures at creation time, so task
// code never closes over shared mutable state.
type taskContext struct {
	identity string
	title    string
	source   string
}

// Task is one cancelable artifact-generation job for one card. Cancellation
// is cooperative: the task observes its flags at defined checkpoints, which
// bracket every external call and every publish. After a checkpoint
// observes cancellation, the task publishes nothing further.
type Task struct {
	kind      TaskKind
	card      *Card
	tctx      taskContext
	extractor FrameExtractor
	resolver  ArtifactResolver
	log       zerolog.Logger

	// cancel is this task's own flag, on top of the card-level one, so a
	// single task (e.g. a superseded thumbnail task) can be retired without
	// tearing down its sibling.
	cancel atomic.Bool
	state  atomic.Int32
	done   chan struct{}
}

func newTask(kind TaskKind, c *Card, extractor FrameExtractor, resolver ArtifactResolver, log zerolog.Logger) *Task {
	return &Task{
		kind: kind,
		card: c,
		tctx: taskContext{
			identity: c.Entry.Identity,
			title:    c.Entry.Title,
			source:   c.Entry.SourcePath,
		},
		extractor: extractor,
		resolver:  resolver,
		log:       log.With().Str("task", string(kind)).Str("title", c.Entry.Title).Logger(),
		done:      make(chan struct{}),
	}
}

// State returns the task's current state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

// Done is closed once the task has fully terminated, including any external
// process it had spawned.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel requests cooperative cancellation of this task only.
func (t *Task) Cancel() {
	t.cancel.Store(true)
}

func (t *Task) isCanceled() bool {
	return t.cancel.Load() || t.card.canceled.Load()
}

// Run executes the task to a terminal state. ctx is the generation context;
// canceling it kills any in-flight external process, after which the
// cooperative flags take effect at the next checkpoint.
func (t *Task) Run(ctx context.Context) {
	defer close(t.done)

	if t.isCanceled() {
		t.finish(TaskCanceled)
		return
	}

	t.state.Store(int32(TaskRunning))
	metrics.TasksInFlight.WithLabelValues(string(t.kind)).Inc()
	defer metrics.TasksInFlight.WithLabelValues(string(t.kind)).Dec()

	switch t.kind {
	case TaskThumbnail:
		t.finish(t.runThumbnail(ctx))
	case TaskFilmstrip:
		t.finish(t.runFilmstrip(ctx))
	}
}

func (t *Task) finish(s TaskState) {
	if t.kind == TaskFilmstrip {
		// Terminal means frozen: the partial filmstrip of a canceled task
		// is retained exactly as-is.
		t.card.freezeFilmstrip()
	}
	t.state.Store(int32(s))
	metrics.TasksTotal.WithLabelValues(string(t.kind), s.String()).Inc()
	t.log.Debug().Str("state", s.String()).Msg("task finished")
}

func (t *Task) runThumbnail(ctx context.Context) TaskState {
	if path, ok := t.resolver.ResolveOverride(t.tctx.identity, t.tctx.title); ok {
		// Override present: decode it directly, no probing or extraction.
		img, err := t.resolver.DecodeScaled(path)
		if err != nil {
			t.log.Warn().Str("override", path).Err(err).Msg("override decode failed")
			return TaskFailed
		}
		if t.isCanceled() {
			return TaskCanceled
		}
		t.card.setThumbnail(&artifact.Artifact{Image: img, Origin: artifact.OriginOverride})
		return TaskCompleted
	}

	if t.isCanceled() {
		return TaskCanceled
	}
	d, ok := t.extractor.Duration(ctx, t.tctx.source)
	if !ok || d <= 0 {
		d = FallbackDuration
	}
	if t.isCanceled() {
		return TaskCanceled
	}
	t.card.setDuration(d)

	outPath := t.resolver.ThumbPath(t.tctx.identity)
	if !t.extractor.ExtractFrame(ctx, t.tctx.source, d/2, outPath) {
		// Extraction failed; the card keeps its placeholder.
		return TaskFailed
	}
	if t.isCanceled() {
		return TaskCanceled
	}

	img, err := t.resolver.DecodeScaled(outPath)
	if err != nil {
		t.log.Debug().Err(err).Msg("thumbnail decode failed")
		return TaskFailed
	}
	if t.isCanceled() {
		return TaskCanceled
	}
	t.card.setThumbnail(&artifact.Artifact{Image: img, Origin: artifact.OriginGenerated})
	return TaskCompleted
}

func (t *Task) runFilmstrip(ctx context.Context) TaskState {
	d, ok := t.extractor.Duration(ctx, t.tctx.source)
	if !ok || d <= 0 {
		d = FallbackDuration
	}
	if t.isCanceled() {
		return TaskCanceled
	}
	t.card.setDuration(d)

	for i := 1; i <= FilmstripFrames; i++ {
		if t.isCanceled() {
			return TaskCanceled
		}

		offset := d * float64(i) / float64(FilmstripFrames+1)
		outPath := t.resolver.FramePath(t.tctx.identity, i)
		if !t.extractor.ExtractFrame(ctx, t.tctx.source, offset, outPath) {
			// One bad frame doesn't sink the strip.
			continue
		}
		img, err := t.resolver.DecodeScaled(outPath)
		if err != nil {
			t.log.Debug().Int("frame", i).Err(err).Msg("frame decode failed")
			continue
		}

		if t.isCanceled() {
			return TaskCanceled
		}
		if _, ok := t.card.appendFrame(img); ok {
			metrics.FramesGenerated.Inc()
		}
	}
	return TaskCompleted
}
