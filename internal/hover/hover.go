package hover

import (
	"image"
	"sync"
	"time"
)

// DefaultInterval is the filmstrip cycle tick.
const DefaultInterval = 300 * time.Millisecond

// Filmstrip exposes the frames available to the animator. Implementations
// must be safe for concurrent use; the animator reads the length fresh on
// every tick because frames may still be arriving.
type Filmstrip interface {
	FrameCount() int
	Frame(i int) image.Image
}

// Display receives the frames to present. ShowFrame is called from the
// animator's tick goroutine; ShowThumbnail restores the static thumbnail
// and is called synchronously from HoverLeave.
type Display interface {
	ShowFrame(img image.Image)
	ShowThumbnail()
}

// Animator cycles one card's filmstrip frames while the card is hovered.
// Each card owns its own Animator and timer; animators are independent of
// each other.
type Animator struct {
	strip    Filmstrip
	display  Display
	interval time.Duration

	mu        sync.Mutex
	animating bool
	index     int
	done      chan struct{}
}

// NewAnimator creates an idle Animator. A non-positive interval gets
// DefaultInterval.
func NewAnimator(strip Filmstrip, display Display, interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{strip: strip, display: display, interval: interval}
}

// Animating reports whether the animator is currently cycling frames.
func (a *Animator) Animating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animating
}

// HoverEnter starts cycling from frame zero. A no-op while the filmstrip is
// still empty, or when already animating.
func (a *Animator) HoverEnter() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.animating || a.strip.FrameCount() == 0 {
		return
	}
	a.animating = true
	a.index = 0
	a.done = make(chan struct{})
	go a.run(a.done)
}

// HoverLeave stops cycling immediately and restores the static thumbnail.
// After HoverLeave returns, no further frames are shown.
func (a *Animator) HoverLeave() {
	a.mu.Lock()
	if !a.animating {
		a.mu.Unlock()
		return
	}
	a.animating = false
	close(a.done)
	a.mu.Unlock()

	a.display.ShowThumbnail()
}

func (a *Animator) run(done chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if !a.tick(done) {
				return
			}
		}
	}
}

// tick shows the next frame under the lock, so no frame can be published
// after HoverLeave has flipped animating off. Returns false once the
// animator should fall back to idle.
func (a *Animator) tick(done chan struct{}) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.animating || a.done != done {
		return false
	}

	n := a.strip.FrameCount()
	if n == 0 {
		// Filmstrip was reset out from under us; back to idle.
		a.animating = false
		return false
	}

	idx := a.index % n
	a.display.ShowFrame(a.strip.Frame(idx))
	a.index = (idx + 1) % n
	return true
}
