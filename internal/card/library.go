package card

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"video-browser/internal/catalog"
	"video-browser/internal/grid"
	"video-browser/internal/hover"
	"video-browser/internal/metrics"
	"video-browser/internal/workers"
)

// PinStore persists the pinned-identity set. Implemented by the state
// store; only user-interaction handlers mutate it.
type PinStore interface {
	Pin(identity string) error
	Unpin(identity string) error
	Pinned(identity string) bool
}

// OverrideStore persists per-identity thumbnail override paths.
type OverrideStore interface {
	Override(identity string) (path string, ok bool)
	SetOverride(identity, imagePath string) error
	RemoveOverride(identity string) error
}

// Config configures a Library.
type Config struct {
	// Workers caps the pipeline pool; 0 means workers.ForPipeline(8).
	Workers int
	// HoverInterval is the filmstrip cycle tick; 0 means hover.DefaultInterval.
	HoverInterval time.Duration
	// ShuffleOnReload randomizes initial card order once per reload.
	ShuffleOnReload bool
}

// Library is the control surface of the browsing core. It owns the card
// arena keyed by video identity and the task generation currently in
// flight; the presentation layer drives it through commands and observes
// per-card events, never touching pipeline state directly.
type Library struct {
	cfg       Config
	extractor FrameExtractor
	resolver  ArtifactResolver
	pins      PinStore
	overrides OverrideStore
	scanner   *catalog.Scanner
	log       zerolog.Logger

	// reloadMu serializes reloads: a reload arriving while the previous
	// generation is still draining waits its turn, it is never rejected.
	reloadMu sync.Mutex

	mu     sync.Mutex
	filter string
	gen    *generation
}

// New creates a Library. extractor and resolver are typically
// *probe.Prober and *artifact.Cache.
func New(cfg Config, extractor FrameExtractor, resolver ArtifactResolver, pins PinStore, overrides OverrideStore, log zerolog.Logger) *Library {
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForPipeline(8)
	}
	if cfg.HoverInterval <= 0 {
		cfg.HoverInterval = hover.DefaultInterval
	}
	return &Library{
		cfg:       cfg,
		extractor: extractor,
		resolver:  resolver,
		pins:      pins,
		overrides: overrides,
		scanner:   catalog.NewScanner(log, catalog.WithShuffle(cfg.ShuffleOnReload)),
		log:       log,
	}
}

// Reload retires the current generation — cancel, await every in-flight
// task and external process, close event channels — and then scans root
// into a fresh one. The drain happens before the scan so the new
// generation can never collide with the old one over shared temp files.
func (l *Library) Reload(ctx context.Context, root string) error {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	l.mu.Lock()
	old := l.gen
	l.gen = nil
	l.mu.Unlock()
	if old != nil {
		old.drain()
	}

	start := time.Now()
	entries, err := l.scanner.Scan(ctx, root)
	if err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}
	metrics.ScansTotal.Inc()
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	metrics.ScanVideosFound.Set(float64(len(entries)))

	cards := make([]*Card, 0, len(entries))
	for _, e := range entries {
		c := newCard(e)
		c.setPinned(l.pins.Pinned(e.Identity))
		cards = append(cards, c)
	}

	g := newGeneration(cards, l.cfg.Workers, l.log)
	for _, c := range cards {
		thumb := newTask(TaskThumbnail, c, l.extractor, l.resolver, l.log)
		c.setThumbTask(thumb)
		g.submit(thumb)

		strip := newTask(TaskFilmstrip, c, l.extractor, l.resolver, l.log)
		c.setStripTask(strip)
		g.submit(strip)
	}

	l.mu.Lock()
	l.gen = g
	l.mu.Unlock()

	l.log.Info().Str("root", root).Int("cards", len(cards)).Msg("reload complete")
	return nil
}

// Close drains the current generation. The library accepts no further
// useful work afterwards; call it once at shutdown so no external process
// outlives the program.
func (l *Library) Close() {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()

	l.mu.Lock()
	g := l.gen
	l.gen = nil
	l.mu.Unlock()
	if g != nil {
		g.drain()
	}
}

// Cards returns the current generation's cards in their scan order.
func (l *Library) Cards() []*Card {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == nil {
		return nil
	}
	out := make([]*Card, len(l.gen.cards))
	copy(out, l.gen.cards)
	return out
}

// Card returns the card for identity, if present in the current generation.
func (l *Library) Card(identity string) *Card {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == nil {
		return nil
	}
	return l.gen.card(identity)
}

// SetFilter stores the search text applied by Layout.
func (l *Library) SetFilter(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = text
}

// Filter returns the current search text.
func (l *Library) Filter() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Layout runs the grid presenter over the current cards with the current
// filter. Repeated calls are deterministic; order only ever changes through
// a reload or a pin toggle.
func (l *Library) Layout(columns int) ([]grid.Placement, int) {
	l.mu.Lock()
	filter := l.filter
	var cards []*Card
	if l.gen != nil {
		cards = l.gen.cards
	}
	items := make([]grid.Item, len(cards))
	for i, c := range cards {
		items[i] = grid.Item{
			Identity: c.Entry.Identity,
			Title:    c.Entry.Title,
			Channel:  c.Entry.Channel,
			Pinned:   c.Pinned(),
		}
	}
	l.mu.Unlock()

	return grid.Layout(items, filter, columns)
}

// TogglePinned flips identity's pinned flag, persists it, and returns the
// new value.
func (l *Library) TogglePinned(identity string) (bool, error) {
	c := l.Card(identity)
	if c == nil {
		return false, fmt.Errorf("unknown identity %q", identity)
	}

	pinned := !c.Pinned()
	var err error
	if pinned {
		err = l.pins.Pin(identity)
	} else {
		err = l.pins.Unpin(identity)
	}
	if err != nil {
		return c.Pinned(), fmt.Errorf("persist pin state: %w", err)
	}
	c.setPinned(pinned)
	return pinned, nil
}

// SetOverride stores imagePath as identity's thumbnail override and re-runs
// the card's thumbnail task; the resulting artifact atomically replaces the
// current one.
func (l *Library) SetOverride(identity, imagePath string) error {
	if err := l.overrides.SetOverride(identity, imagePath); err != nil {
		return fmt.Errorf("persist override: %w", err)
	}
	l.rerunThumbnail(identity)
	return nil
}

// RemoveOverride deletes identity's stored override and re-runs the
// thumbnail task so the card falls back to generated derivation.
func (l *Library) RemoveOverride(identity string) error {
	if err := l.overrides.RemoveOverride(identity); err != nil {
		return fmt.Errorf("remove override: %w", err)
	}
	l.rerunThumbnail(identity)
	return nil
}

// rerunThumbnail schedules a fresh thumbnail task for identity. The
// previous task, if still in flight, is canceled and awaited first so at
// most one thumbnail task per card ever runs.
func (l *Library) rerunThumbnail(identity string) {
	l.mu.Lock()
	g := l.gen
	l.mu.Unlock()
	if g == nil {
		return
	}
	c := g.card(identity)
	if c == nil {
		return
	}

	t := newTask(TaskThumbnail, c, l.extractor, l.resolver, l.log)
	prev := c.setThumbTask(t)

	go func() {
		if prev != nil {
			prev.Cancel()
			<-prev.Done()
		}
		g.submit(t)
	}()
}

// AttachDisplay wires the presentation's frame sink for identity's card,
// enabling hover animation.
func (l *Library) AttachDisplay(identity string, d hover.Display) {
	if c := l.Card(identity); c != nil {
		c.attachDisplay(d)
	}
}

// HoverEnter starts cycling identity's filmstrip. A no-op while the
// filmstrip is empty or no display is attached.
func (l *Library) HoverEnter(identity string) {
	c := l.Card(identity)
	if c == nil {
		return
	}
	if anim := c.ensureAnimator(l.cfg.HoverInterval); anim != nil {
		anim.HoverEnter()
	}
}

// HoverLeave stops cycling identity's filmstrip immediately and restores
// its static thumbnail.
func (l *Library) HoverLeave(identity string) {
	c := l.Card(identity)
	if c == nil {
		return
	}
	if anim := c.ensureAnimator(l.cfg.HoverInterval); anim != nil {
		anim.HoverLeave()
	}
}
