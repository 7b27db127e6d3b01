// Package watch triggers catalog reloads when the video tree changes on
// disk. Events are debounced so a burst of file operations (a download
// finishing, a directory move) causes a single reload.
package watch

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period required before firing a reload.
const DefaultDebounce = 2 * time.Second

// Watcher observes a root directory and invokes a callback after changes
// settle.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func()
	log      zerolog.Logger

	fsw *fsnotify.Watcher
}

// New creates a Watcher over root. onChange runs on the watcher goroutine;
// callers hand off to their own control flow. A non-positive debounce gets
// DefaultDebounce.
func New(root string, debounce time.Duration, onChange func(), log zerolog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		root:     root,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		fsw:      fsw,
	}, nil
}

// Run processes events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		if err := w.fsw.Close(); err != nil {
			w.log.Warn().Err(err).Msg("closing watcher")
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.log.Debug().Str("op", event.Op.String()).Str("name", event.Name).Msg("filesystem change")
				if timer == nil {
					timer = time.NewTimer(w.debounce)
					fire = timer.C
				} else {
					if !timer.Stop() {
						<-timer.C
					}
					timer.Reset(w.debounce)
				}
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")

		case <-fire:
			timer = nil
			fire = nil
			w.log.Info().Str("root", w.root).Msg("change settled, triggering reload")
			w.onChange()
		}
	}
}
