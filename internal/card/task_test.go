package card

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"video-browser/internal/artifact"
	"video-browser/internal/catalog"
)

type extractCall struct {
	path   string
	offset float64
	out    string
}

// fakeExtractor stands in for the ffprobe/ffmpeg facade.
type fakeExtractor struct {
	mu       sync.Mutex
	dur      float64
	durOK    bool
	durBy    map[string]float64
	durCalls int
	calls    []extractCall
	failOut  map[string]bool
	// onExtract runs before each extraction is recorded; used to trigger
	// cancellation mid-task.
	onExtract func(call extractCall)
}

func (f *fakeExtractor) Duration(_ context.Context, path string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durCalls++
	if d, ok := f.durBy[path]; ok {
		return d, true
	}
	return f.dur, f.durOK
}

func (f *fakeExtractor) ExtractFrame(_ context.Context, path string, offset float64, out string) bool {
	call := extractCall{path: path, offset: offset, out: out}
	f.mu.Lock()
	hook := f.onExtract
	f.calls = append(f.calls, call)
	fail := f.failOut[out]
	f.mu.Unlock()
	if hook != nil {
		hook(call)
	}
	return !fail
}

func (f *fakeExtractor) extractCalls() []extractCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]extractCall(nil), f.calls...)
}

// fakeResolver stands in for the artifact cache. Output paths are symbolic;
// nothing touches the filesystem.
type fakeResolver struct {
	mu        sync.Mutex
	overrides map[string]string
	decodeErr map[string]bool
	decoded   []string
}

func (f *fakeResolver) ResolveOverride(identity, _ string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.overrides[identity]
	return path, ok
}

func (f *fakeResolver) ThumbPath(identity string) string {
	return "thumb:" + identity
}

func (f *fakeResolver) FramePath(identity string, index int) string {
	return fmt.Sprintf("frame:%s:%d", identity, index)
}

func (f *fakeResolver) DecodeScaled(path string) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decodeErr[path] {
		return nil, fmt.Errorf("decode %s: bad data", path)
	}
	f.decoded = append(f.decoded, path)
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func testEntry(id string) catalog.Entry {
	return catalog.Entry{
		Identity:   id,
		Title:      "clip",
		Channel:    "channel",
		SourcePath: id,
	}
}

func drainEvents(c *Card) []Event {
	var out []Event
	for {
		select {
		case ev := <-c.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestThumbnailTaskGenerated(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true}
	res := &fakeResolver{}

	task := newTask(TaskThumbnail, c, ex, res, zerolog.Nop())
	task.Run(context.Background())

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
	calls := ex.extractCalls()
	if len(calls) != 1 {
		t.Fatalf("got %d extractions, want 1", len(calls))
	}
	if calls[0].offset != 30 {
		t.Errorf("thumbnail offset = %v, want duration/2 = 30", calls[0].offset)
	}
	if calls[0].out != "thumb:/v/a.mp4" {
		t.Errorf("output path = %q", calls[0].out)
	}

	thumb := c.Thumbnail()
	if thumb == nil || thumb.Origin != artifact.OriginGenerated {
		t.Fatalf("thumbnail = %+v, want generated artifact", thumb)
	}
	if d, ok := c.Duration(); !ok || d != 60 {
		t.Errorf("duration = (%v, %v), want (60, true)", d, ok)
	}

	events := drainEvents(c)
	var sawThumb, sawDur bool
	for _, ev := range events {
		switch ev.Kind {
		case EventThumbnailReady:
			sawThumb = true
			if ev.Identity != "/v/a.mp4" {
				t.Errorf("event identity = %q", ev.Identity)
			}
		case EventDurationKnown:
			sawDur = true
			if ev.Duration != 60 {
				t.Errorf("duration event = %v, want 60", ev.Duration)
			}
		}
	}
	if !sawThumb || !sawDur {
		t.Errorf("events = %+v, want thumbnail-ready and duration-known", events)
	}
}

func TestThumbnailTaskFallbackDuration(t *testing.T) {
	tests := []struct {
		name  string
		dur   float64
		durOK bool
	}{
		{"probe failure", 0, false},
		{"zero duration", 0, true},
		{"negative duration", -3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCard(testEntry("/v/a.mp4"))
			ex := &fakeExtractor{dur: tt.dur, durOK: tt.durOK}
			task := newTask(TaskThumbnail, c, ex, &fakeResolver{}, zerolog.Nop())
			task.Run(context.Background())

			calls := ex.extractCalls()
			if len(calls) != 1 || calls[0].offset != 0.5 {
				t.Fatalf("calls = %+v, want one extraction at fallback/2 = 0.5", calls)
			}
			if d, ok := c.Duration(); !ok || d != FallbackDuration {
				t.Errorf("duration = (%v, %v), want fallback 1.0", d, ok)
			}
		})
	}
}

func TestThumbnailTaskOverride(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true}
	res := &fakeResolver{overrides: map[string]string{"/v/a.mp4": "/covers/a.png"}}

	task := newTask(TaskThumbnail, c, ex, res, zerolog.Nop())
	task.Run(context.Background())

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
	if len(ex.extractCalls()) != 0 || ex.durCalls != 0 {
		t.Error("override path must skip probing and extraction entirely")
	}
	thumb := c.Thumbnail()
	if thumb == nil || thumb.Origin != artifact.OriginOverride {
		t.Fatalf("thumbnail = %+v, want override artifact", thumb)
	}
}

func TestThumbnailTaskOverrideDecodeFails(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	res := &fakeResolver{
		overrides: map[string]string{"/v/a.mp4": "/covers/bad.png"},
		decodeErr: map[string]bool{"/covers/bad.png": true},
	}
	task := newTask(TaskThumbnail, c, &fakeExtractor{}, res, zerolog.Nop())
	task.Run(context.Background())

	if got := task.State(); got != TaskFailed {
		t.Errorf("state = %v, want failed", got)
	}
	if c.Thumbnail() != nil {
		t.Error("failed decode must leave the placeholder in place")
	}
}

func TestThumbnailTaskExtractionFails(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true, failOut: map[string]bool{"thumb:/v/a.mp4": true}}
	task := newTask(TaskThumbnail, c, ex, &fakeResolver{}, zerolog.Nop())
	task.Run(context.Background())

	if got := task.State(); got != TaskFailed {
		t.Errorf("state = %v, want failed", got)
	}
	if c.Thumbnail() != nil {
		t.Error("failed extraction must leave the placeholder in place")
	}
}

func TestFilmstripTaskOffsets(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true}
	task := newTask(TaskFilmstrip, c, ex, &fakeResolver{}, zerolog.Nop())
	task.Run(context.Background())

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed", got)
	}
	calls := ex.extractCalls()
	if len(calls) != FilmstripFrames {
		t.Fatalf("got %d extractions, want %d", len(calls), FilmstripFrames)
	}
	want := []float64{10, 20, 30, 40, 50}
	for i, call := range calls {
		if call.offset != want[i] {
			t.Errorf("frame %d offset = %v, want %v", i+1, call.offset, want[i])
		}
		if call.offset <= 0 || call.offset >= 60 {
			t.Errorf("frame %d offset %v outside (0, duration)", i+1, call.offset)
		}
		if i > 0 && call.offset <= calls[i-1].offset {
			t.Errorf("offsets not strictly increasing at frame %d", i+1)
		}
	}
	if c.FrameCount() != FilmstripFrames {
		t.Errorf("frame count = %d, want %d", c.FrameCount(), FilmstripFrames)
	}

	var appended []int
	for _, ev := range drainEvents(c) {
		if ev.Kind == EventFrameAppended {
			appended = append(appended, ev.FrameCount)
		}
	}
	for i, n := range appended {
		if n != i+1 {
			t.Errorf("frame-appended lengths = %v, want 1..%d", appended, FilmstripFrames)
			break
		}
	}
}

func TestFilmstripTaskSkipsBadFrame(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true, failOut: map[string]bool{"frame:/v/a.mp4:3": true}}
	task := newTask(TaskFilmstrip, c, ex, &fakeResolver{}, zerolog.Nop())
	task.Run(context.Background())

	if got := task.State(); got != TaskCompleted {
		t.Fatalf("state = %v, want completed despite one bad frame", got)
	}
	if c.FrameCount() != FilmstripFrames-1 {
		t.Errorf("frame count = %d, want %d", c.FrameCount(), FilmstripFrames-1)
	}
}

func TestFilmstripFrozenAfterCompletion(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	task := newTask(TaskFilmstrip, c, &fakeExtractor{dur: 60, durOK: true}, &fakeResolver{}, zerolog.Nop())
	task.Run(context.Background())

	if _, ok := c.appendFrame(image.NewRGBA(image.Rect(0, 0, 1, 1))); ok {
		t.Error("append after terminal state must be refused")
	}
	if c.FrameCount() != FilmstripFrames {
		t.Errorf("frame count changed after freeze: %d", c.FrameCount())
	}
}

func TestTaskCanceledBeforeRun(t *testing.T) {
	for _, kind := range []TaskKind{TaskThumbnail, TaskFilmstrip} {
		t.Run(string(kind), func(t *testing.T) {
			c := newCard(testEntry("/v/a.mp4"))
			ex := &fakeExtractor{dur: 60, durOK: true}
			task := newTask(kind, c, ex, &fakeResolver{}, zerolog.Nop())

			c.Cancel()
			task.Run(context.Background())

			if got := task.State(); got != TaskCanceled {
				t.Errorf("state = %v, want canceled", got)
			}
			if ex.durCalls != 0 || len(ex.extractCalls()) != 0 {
				t.Error("canceled task must make no external calls")
			}
			if events := drainEvents(c); len(events) != 0 {
				t.Errorf("canceled task published %d events, want 0", len(events))
			}
			select {
			case <-task.Done():
			default:
				t.Error("Done channel not closed after Run")
			}
		})
	}
}

func TestTaskCancelFlagStopsPublishes(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true}
	task := newTask(TaskFilmstrip, c, ex, &fakeResolver{}, zerolog.Nop())

	// Cancel just the task (not the card) after the second extraction.
	ex.onExtract = func(call extractCall) {
		if call.out == "frame:/v/a.mp4:2" {
			task.Cancel()
		}
	}
	task.Run(context.Background())

	if got := task.State(); got != TaskCanceled {
		t.Fatalf("state = %v, want canceled", got)
	}
	// Frame 1 landed before the flag; frame 2's append checkpoint saw it.
	if c.FrameCount() != 1 {
		t.Errorf("frame count = %d, want the 1 frame published before cancellation", c.FrameCount())
	}
	if len(ex.extractCalls()) != 2 {
		t.Errorf("extractions = %d, want 2 (no calls after the checkpoint)", len(ex.extractCalls()))
	}
	if c.canceled.Load() {
		t.Error("task-level cancel must not set the card-level flag")
	}
}

func TestFilmstripCancelRetainsPartialStrip(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true}
	task := newTask(TaskFilmstrip, c, ex, &fakeResolver{}, zerolog.Nop())

	ex.onExtract = func(call extractCall) {
		if call.out == "frame:/v/a.mp4:4" {
			c.Cancel()
		}
	}
	task.Run(context.Background())

	if got := task.State(); got != TaskCanceled {
		t.Fatalf("state = %v, want canceled", got)
	}
	if c.FrameCount() != 3 {
		t.Errorf("frame count = %d, want the 3 frames published before cancellation", c.FrameCount())
	}
	// Partial strip is frozen exactly as-is.
	if _, ok := c.appendFrame(image.NewRGBA(image.Rect(0, 0, 1, 1))); ok {
		t.Error("partial strip must be frozen after cancellation")
	}
}

func TestThumbnailRerunReplacesArtifact(t *testing.T) {
	c := newCard(testEntry("/v/a.mp4"))
	ex := &fakeExtractor{dur: 60, durOK: true}
	res := &fakeResolver{}

	first := newTask(TaskThumbnail, c, ex, res, zerolog.Nop())
	first.Run(context.Background())
	if c.Thumbnail() == nil || c.Thumbnail().Origin != artifact.OriginGenerated {
		t.Fatal("expected a generated thumbnail first")
	}

	res.mu.Lock()
	res.overrides = map[string]string{"/v/a.mp4": "/covers/a.png"}
	res.mu.Unlock()

	second := newTask(TaskThumbnail, c, ex, res, zerolog.Nop())
	second.Run(context.Background())

	thumb := c.Thumbnail()
	if thumb == nil || thumb.Origin != artifact.OriginOverride {
		t.Fatalf("thumbnail = %+v, want the override replacement", thumb)
	}
}

func TestTaskStateString(t *testing.T) {
	tests := []struct {
		state TaskState
		want  string
		term  bool
	}{
		{TaskPending, "pending", false},
		{TaskRunning, "running", false},
		{TaskCompleted, "completed", true},
		{TaskCanceled, "canceled", true},
		{TaskFailed, "failed", true},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.state, got, tt.want)
		}
		if got := tt.state.Terminal(); got != tt.term {
			t.Errorf("Terminal(%v) = %v, want %v", tt.state, got, tt.term)
		}
	}
}
