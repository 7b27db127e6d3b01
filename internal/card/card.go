package card

import (
	"image"
	"sync"
	"sync/atomic"
	"time"

	"video-browser/internal/artifact"
	"video-browser/internal/catalog"
	"video-browser/internal/hover"
)

// eventBuffer comfortably holds every event one card can emit in a full
// pipeline run (one thumbnail, five frames, two duration probes).
const eventBuffer = 16

// Card is the per-video mutable record: pin state, thumbnail, filmstrip,
// cancellation flag, and in-flight task handles. A card owns its artifacts
// exclusively; the presentation layer observes them through the event
// channel and read-only accessors, never by mutation.
//
// Cards belong to exactly one generation. A reload cancels and fully drains
// the old generation's tasks before its cards are discarded.
type Card struct {
	// Entry never changes after construction.
	Entry catalog.Entry

	// canceled is the cancellation flag shared with this card's tasks;
	// tasks observe it cooperatively at their checkpoints.
	canceled atomic.Bool

	mu          sync.RWMutex
	pinned      bool
	thumbnail   *artifact.Artifact
	frames      []image.Image
	frozen      bool
	duration    float64
	hasDuration bool
	thumbTask   *Task
	stripTask   *Task
	display     hover.Display
	animator    *hover.Animator

	events   chan Event
	evClosed sync.Once
}

func newCard(entry catalog.Entry) *Card {
	return &Card{
		Entry:  entry,
		events: make(chan Event, eventBuffer),
	}
}

// Events returns the card's event channel. It is closed once the card's
// generation has fully drained.
func (c *Card) Events() <-chan Event {
	return c.events
}

// publish emits an event without ever blocking the pipeline; if the
// subscriber has fallen further behind than the buffer allows, the event is
// dropped.
func (c *Card) publish(ev Event) {
	ev.Identity = c.Entry.Identity
	select {
	case c.events <- ev:
	default:
	}
}

// Pinned reports the card's pinned flag.
func (c *Card) Pinned() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pinned
}

func (c *Card) setPinned(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = v
}

// Thumbnail returns the current thumbnail artifact, or nil while the card
// still shows its placeholder.
func (c *Card) Thumbnail() *artifact.Artifact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thumbnail
}

func (c *Card) setThumbnail(a *artifact.Artifact) {
	c.mu.Lock()
	c.thumbnail = a
	c.mu.Unlock()
	c.publish(Event{Kind: EventThumbnailReady, Thumbnail: a})
}

// Duration returns the probed duration in seconds, if known yet.
func (c *Card) Duration() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.duration, c.hasDuration
}

func (c *Card) setDuration(d float64) {
	c.mu.Lock()
	c.duration = d
	c.hasDuration = true
	c.mu.Unlock()
	c.publish(Event{Kind: EventDurationKnown, Duration: d})
}

// FrameCount returns the current filmstrip length. Part of the
// hover.Filmstrip contract; read fresh on every animator tick.
func (c *Card) FrameCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Frame returns filmstrip frame i.
func (c *Card) Frame(i int) image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames[i]
}

// appendFrame appends a filmstrip frame and reports the new length.
// Appends after the filmstrip has been frozen are refused: frames are never
// removed or reordered except by a full rebuild.
func (c *Card) appendFrame(img image.Image) (int, bool) {
	c.mu.Lock()
	if c.frozen {
		c.mu.Unlock()
		return len(c.frames), false
	}
	c.frames = append(c.frames, img)
	n := len(c.frames)
	c.mu.Unlock()
	c.publish(Event{Kind: EventFrameAppended, Frame: img, FrameCount: n})
	return n, true
}

// freezeFilmstrip marks the filmstrip complete; whatever frames exist stay
// exactly as they are. Called once the filmstrip task reaches a terminal
// state, completed or canceled alike.
func (c *Card) freezeFilmstrip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Cancel sets the card's cancellation flag and stops any hover animation.
// In-flight tasks stop at their next checkpoint; Cancel does not wait for
// them (the generation's drain does).
func (c *Card) Cancel() {
	c.canceled.Store(true)

	c.mu.RLock()
	anim := c.animator
	c.mu.RUnlock()
	if anim != nil {
		anim.HoverLeave()
	}
}

func (c *Card) closeEvents() {
	c.evClosed.Do(func() { close(c.events) })
}

// attachDisplay wires the presentation's frame sink for this card.
func (c *Card) attachDisplay(d hover.Display) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.display = d
}

// ensureAnimator lazily creates the card's hover animator. Returns nil
// until a display has been attached.
func (c *Card) ensureAnimator(interval time.Duration) *hover.Animator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.animator == nil && c.display != nil {
		c.animator = hover.NewAnimator(c, c.display, interval)
	}
	return c.animator
}

// setThumbTask installs the in-flight thumbnail task handle, returning the
// previous one. At most one thumbnail task may be in flight per card; the
// caller must cancel and await the previous task before the new one runs.
func (c *Card) setThumbTask(t *Task) *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.thumbTask
	c.thumbTask = t
	return prev
}

func (c *Card) setStripTask(t *Task) *Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.stripTask
	c.stripTask = t
	return prev
}
