// Package startup loads and validates the application configuration from
// environment variables.
package startup

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	GoVersion = runtime.Version()
)

// Config holds all application configuration.
type Config struct {
	// VideoDir is the root of the video tree to scan. Falls back to the
	// persisted last root when empty.
	VideoDir string
	// OverrideDir optionally holds <title>.{png,jpg,jpeg} override images.
	OverrideDir string
	// StateDir holds the state database. Defaults to the user config dir.
	StateDir string

	Columns         int
	HoverInterval   time.Duration
	ShuffleOnReload bool

	WatchEnabled  bool
	WatchDebounce time.Duration

	MetricsEnabled bool
	MetricsPort    string

	// Derived
	StatePath string
}

// LoadConfig reads configuration from the environment, applies defaults,
// and logs the effective values.
func LoadConfig(log zerolog.Logger) (*Config, error) {
	cfg := &Config{
		VideoDir:        os.Getenv("VIDEO_DIR"),
		OverrideDir:     os.Getenv("OVERRIDE_DIR"),
		StateDir:        os.Getenv("STATE_DIR"),
		Columns:         getEnvInt("COLUMNS", 4),
		HoverInterval:   getEnvDuration(log, "HOVER_INTERVAL", 300*time.Millisecond),
		ShuffleOnReload: getEnvBool("SHUFFLE_ON_RELOAD", true),
		WatchEnabled:    getEnvBool("WATCH_ENABLED", false),
		WatchDebounce:   getEnvDuration(log, "WATCH_DEBOUNCE", 2*time.Second),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", false),
		MetricsPort:     getEnv("METRICS_PORT", "9090"),
	}

	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("no STATE_DIR and no user config dir: %w", err)
		}
		cfg.StateDir = base + string(os.PathSeparator) + "video-browser"
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir %s: %w", cfg.StateDir, err)
	}
	cfg.StatePath = cfg.StateDir + string(os.PathSeparator) + "state.db"

	if cfg.Columns < 1 {
		log.Warn().Int("columns", cfg.Columns).Msg("invalid COLUMNS, using 4")
		cfg.Columns = 4
	}

	log.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("go", GoVersion).
		Str("video_dir", cfg.VideoDir).
		Str("override_dir", cfg.OverrideDir).
		Str("state_dir", cfg.StateDir).
		Int("columns", cfg.Columns).
		Dur("hover_interval", cfg.HoverInterval).
		Bool("shuffle_on_reload", cfg.ShuffleOnReload).
		Bool("watch_enabled", cfg.WatchEnabled).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(log zerolog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return parsed
}
