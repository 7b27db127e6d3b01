package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/rs/zerolog"

	"video-browser/internal/metrics"
)

const defaultTimeout = 5 * time.Second

// Store persists the user's browsing state: the pinned-identity set,
// per-identity thumbnail override paths, and simple settings such as the
// last opened root. All keys are video identities (canonical absolute
// paths), so state survives reloads of the same tree.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log zerolog.Logger
}

// Open opens (or creates) the state database at dbPath. The parent
// directory must already exist and be writable.
func Open(ctx context.Context, dbPath string, log zerolog.Logger) (*Store, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect state db: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize state db schema: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("state store opened")
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pins (
		identity TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS overrides (
		identity TEXT PRIMARY KEY,
		image_path TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) observe(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueriesTotal.WithLabelValues(operation, status).Inc()
}

// --- PinStore ---

// Pin adds identity to the pinned set. Idempotent.
func (s *Store) Pin(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO pins (identity, created_at) VALUES (?, ?)
		ON CONFLICT(identity) DO NOTHING
	`, identity, time.Now().Unix())
	s.observe("pin", err)
	return err
}

// Unpin removes identity from the pinned set. Idempotent.
func (s *Store) Unpin(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM pins WHERE identity = ?", identity)
	s.observe("unpin", err)
	return err
}

// Pinned reports whether identity is pinned.
func (s *Store) Pinned(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM pins WHERE identity = ?", identity).Scan(&count)
	s.observe("pinned", err)
	return err == nil && count > 0
}

// --- OverrideStore ---

// SetOverride stores the override image path for identity.
func (s *Store) SetOverride(identity, imagePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO overrides (identity, image_path, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET image_path = excluded.image_path, updated_at = excluded.updated_at
	`, identity, imagePath, time.Now().Unix())
	s.observe("set_override", err)
	return err
}

// RemoveOverride deletes the stored override for identity. Idempotent.
func (s *Store) RemoveOverride(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM overrides WHERE identity = ?", identity)
	s.observe("remove_override", err)
	return err
}

// Override returns the stored override image path for identity, if any.
func (s *Store) Override(identity string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var path string
	err := s.db.QueryRow("SELECT image_path FROM overrides WHERE identity = ?", identity).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		s.observe("override", nil)
		return "", false
	}
	s.observe("override", err)
	if err != nil {
		s.log.Warn().Str("identity", identity).Err(err).Msg("override lookup failed")
		return "", false
	}
	return path, true
}

// --- Settings ---

// Setting keys persisted across runs.
const (
	SettingVideoDir    = "video_dir"
	SettingOverrideDir = "override_dir"
)

// GetSetting returns the value for key, or "" when unset.
func (s *Store) GetSetting(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.observe("get_setting", nil)
		return "", nil
	}
	s.observe("get_setting", err)
	return value, err
}

// SetSetting stores a settings key-value pair.
func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	s.observe("set_setting", err)
	return err
}
