package hover

import (
	"image"
	"sync"
	"testing"
	"time"
)

type memStrip struct {
	mu     sync.Mutex
	frames []image.Image
}

func (s *memStrip) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *memStrip) Frame(i int) image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[i]
}

func (s *memStrip) append(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, img)
}

type recDisplay struct {
	mu         sync.Mutex
	shown      []image.Image
	thumbnails int
}

func (d *recDisplay) ShowFrame(img image.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, img)
}

func (d *recDisplay) ShowThumbnail() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.thumbnails++
}

func (d *recDisplay) frameCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.shown)
}

func (d *recDisplay) thumbnailCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.thumbnails
}

func frames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = image.NewRGBA(image.Rect(0, 0, i+1, 1))
	}
	return out
}

func TestHoverEnterEmptyStripIsNoop(t *testing.T) {
	strip := &memStrip{}
	display := &recDisplay{}
	a := NewAnimator(strip, display, time.Millisecond)

	a.HoverEnter()
	if a.Animating() {
		t.Fatal("animator should stay idle on an empty filmstrip")
	}
	time.Sleep(10 * time.Millisecond)
	if display.frameCount() != 0 {
		t.Errorf("no frames should be shown, got %d", display.frameCount())
	}
}

func TestHoverCyclesInOrder(t *testing.T) {
	fs := frames(3)
	strip := &memStrip{frames: fs}
	display := &recDisplay{}
	a := NewAnimator(strip, display, time.Millisecond)

	a.HoverEnter()
	if !a.Animating() {
		t.Fatal("expected animating after HoverEnter")
	}
	for display.frameCount() < 7 {
		time.Sleep(time.Millisecond)
	}
	a.HoverLeave()

	display.mu.Lock()
	shown := append([]image.Image(nil), display.shown...)
	display.mu.Unlock()
	for i, img := range shown {
		if img != fs[i%3] {
			t.Fatalf("frame %d out of cycle order", i)
		}
	}
}

func TestHoverLeaveStopsAndRestores(t *testing.T) {
	strip := &memStrip{frames: frames(2)}
	display := &recDisplay{}
	a := NewAnimator(strip, display, time.Millisecond)

	a.HoverEnter()
	for display.frameCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	a.HoverLeave()

	if a.Animating() {
		t.Error("expected idle after HoverLeave")
	}
	if display.thumbnailCount() != 1 {
		t.Errorf("thumbnail restored %d times, want 1", display.thumbnailCount())
	}

	// No frame may arrive after HoverLeave returns.
	n := display.frameCount()
	time.Sleep(20 * time.Millisecond)
	if display.frameCount() != n {
		t.Error("frames shown after HoverLeave")
	}
}

func TestHoverLeaveWhenIdleIsNoop(t *testing.T) {
	display := &recDisplay{}
	a := NewAnimator(&memStrip{frames: frames(1)}, display, time.Millisecond)

	a.HoverLeave()
	if display.thumbnailCount() != 0 {
		t.Error("idle HoverLeave should not touch the display")
	}
}

func TestHoverEnterWhileAnimatingIsNoop(t *testing.T) {
	strip := &memStrip{frames: frames(2)}
	display := &recDisplay{}
	a := NewAnimator(strip, display, time.Millisecond)

	a.HoverEnter()
	a.HoverEnter() // second enter must not restart or double-tick
	for display.frameCount() < 4 {
		time.Sleep(time.Millisecond)
	}
	a.HoverLeave()

	display.mu.Lock()
	shown := append([]image.Image(nil), display.shown...)
	display.mu.Unlock()
	for i := 1; i < len(shown); i++ {
		if shown[i] == shown[i-1] && strip.FrameCount() > 1 {
			t.Fatal("same frame shown twice in a row; cycle restarted?")
		}
	}
}

func TestHoverPicksUpLateFrames(t *testing.T) {
	strip := &memStrip{frames: frames(1)}
	display := &recDisplay{}
	a := NewAnimator(strip, display, time.Millisecond)

	a.HoverEnter()
	for display.frameCount() < 2 {
		time.Sleep(time.Millisecond)
	}
	late := image.NewRGBA(image.Rect(0, 0, 9, 9))
	strip.append(late)

	deadline := time.After(time.Second)
	for {
		display.mu.Lock()
		found := false
		for _, img := range display.shown {
			if img == late {
				found = true
			}
		}
		display.mu.Unlock()
		if found {
			break
		}
		select {
		case <-deadline:
			t.Fatal("late frame never entered the cycle")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	a.HoverLeave()
}

func TestReenterRestartsFromFirstFrame(t *testing.T) {
	fs := frames(3)
	strip := &memStrip{frames: fs}
	display := &recDisplay{}
	a := NewAnimator(strip, display, time.Millisecond)

	a.HoverEnter()
	for display.frameCount() < 2 {
		time.Sleep(time.Millisecond)
	}
	a.HoverLeave()

	before := display.frameCount()
	a.HoverEnter()
	for display.frameCount() == before {
		time.Sleep(time.Millisecond)
	}
	a.HoverLeave()

	display.mu.Lock()
	first := display.shown[before]
	display.mu.Unlock()
	if first != fs[0] {
		t.Error("re-entry should cycle from the first frame")
	}
}
