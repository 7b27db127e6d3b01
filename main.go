package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"video-browser/internal/artifact"
	"video-browser/internal/card"
	"video-browser/internal/grid"
	"video-browser/internal/logging"
	"video-browser/internal/probe"
	"video-browser/internal/startup"
	"video-browser/internal/store"
	"video-browser/internal/watch"
)

func main() {
	log := logging.New(os.Stderr)

	cfg, err := startup.LoadConfig(log)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	st, err := store.Open(context.Background(), cfg.StatePath, logging.For(log, "store"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open state store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("closing state store")
		}
	}()

	// VIDEO_DIR wins; otherwise reuse the last opened root.
	videoDir := cfg.VideoDir
	if videoDir == "" {
		videoDir, _ = st.GetSetting(store.SettingVideoDir)
	}
	if videoDir == "" {
		log.Fatal().Msg("no video directory: set VIDEO_DIR")
	}
	overrideDir := cfg.OverrideDir
	if overrideDir == "" {
		overrideDir, _ = st.GetSetting(store.SettingOverrideDir)
	}

	// Artifacts live for the process only.
	tempDir, err := os.MkdirTemp("", "video-browser-")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create artifact dir")
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Warn().Str("dir", tempDir).Err(err).Msg("failed to remove artifact dir")
		}
	}()

	prober := probe.New(nil, logging.For(log, "probe"))
	cache := artifact.NewCache(tempDir, overrideDir, st, logging.For(log, "artifact"))

	lib := card.New(card.Config{
		HoverInterval:   cfg.HoverInterval,
		ShuffleOnReload: cfg.ShuffleOnReload,
	}, prober, cache, st, st, logging.For(log, "card"))

	if cfg.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{
				Addr:        ":" + cfg.MetricsPort,
				Handler:     mux,
				ReadTimeout: 15 * time.Second,
				IdleTimeout: 60 * time.Second,
			}
			log.Info().Str("port", cfg.MetricsPort).Msg("metrics server started")
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reload := func() {
		if err := lib.Reload(ctx, videoDir); err != nil {
			log.Error().Str("root", videoDir).Err(err).Msg("reload failed")
			return
		}
		_ = st.SetSetting(store.SettingVideoDir, videoDir)
		go consumeEvents(lib, log)
		logLayout(lib, cfg.Columns, log)
	}
	reload()

	if cfg.WatchEnabled {
		w, err := watch.New(videoDir, cfg.WatchDebounce, reload, logging.For(log, "watch"))
		if err != nil {
			log.Warn().Err(err).Msg("watcher unavailable, continuing without")
		} else {
			go w.Run(ctx)
		}
	}

	<-ctx.Done()
	log.Info().Msg("shutting down, draining pipeline")
	lib.Close()
	log.Info().Msg("pipeline drained")
}

// consumeEvents drains every card's event channel of the current
// generation, standing in for a UI shell. Subscriptions end when the
// generation is drained and the channels close.
func consumeEvents(lib *card.Library, log zerolog.Logger) {
	var wg sync.WaitGroup
	for _, c := range lib.Cards() {
		wg.Add(1)
		go func(c *card.Card) {
			defer wg.Done()
			for ev := range c.Events() {
				switch ev.Kind {
				case card.EventThumbnailReady:
					log.Info().
						Str("title", c.Entry.Title).
						Str("origin", string(ev.Thumbnail.Origin)).
						Msg("thumbnail ready")
				case card.EventFrameAppended:
					log.Debug().
						Str("title", c.Entry.Title).
						Int("frames", ev.FrameCount).
						Msg("frame appended")
				case card.EventDurationKnown:
					log.Debug().
						Str("title", c.Entry.Title).
						Str("duration", grid.FormatDuration(ev.Duration)).
						Msg("duration known")
				}
			}
		}(c)
	}
	wg.Wait()
}

func logLayout(lib *card.Library, columns int, log zerolog.Logger) {
	placements, width := lib.Layout(columns)
	log.Info().
		Int("cards", len(placements)).
		Int("columns", columns).
		Int("width", width).
		Msg("grid laid out")
}
