package catalog

import (
	"context"
	"io/fs"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// VideoExtensions maps the recognized video file extensions. Matching is
// case-insensitive against a lowercased extension.
var VideoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
}

// Entry describes one discovered video. Immutable once created.
type Entry struct {
	// Identity is the canonicalized absolute path; the sole key for pin
	// state and thumbnail overrides, stable across reloads.
	Identity string
	// Title is the file base name without extension.
	Title string
	// Channel is the name of the immediate parent directory.
	Channel string
	// SourcePath is the path as discovered during the walk.
	SourcePath string
}

// Identity canonicalizes path into a stable identity string. Symlinks are
// resolved when possible so the same file reached along different paths maps
// to one identity.
func Identity(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

// Scanner enumerates video files under a root directory.
type Scanner struct {
	shuffle    bool
	skipHidden bool
	log        zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithShuffle randomizes the order of scan results once per scan. Layout
// code downstream must stay deterministic; this is the only place initial
// order is randomized.
func WithShuffle(on bool) Option {
	return func(s *Scanner) { s.shuffle = on }
}

// WithSkipHidden skips dot-files and dot-directories during the walk.
func WithSkipHidden(on bool) Option {
	return func(s *Scanner) { s.skipHidden = on }
}

// NewScanner creates a Scanner. Hidden entries are skipped by default.
func NewScanner(log zerolog.Logger, opts ...Option) *Scanner {
	s := &Scanner{skipHidden: true, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root recursively and returns an Entry per recognized video
// file. Unreadable entries are logged and skipped; the scan keeps going.
// A canceled ctx stops the walk early and returns ctx.Err().
func (s *Scanner) Scan(ctx context.Context, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			s.log.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
			return nil
		}

		if s.skipHidden && strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !VideoExtensions[ext] {
			return nil
		}

		entries = append(entries, Entry{
			Identity:   Identity(path),
			Title:      strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			Channel:    filepath.Base(filepath.Dir(path)),
			SourcePath: path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.shuffle {
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	}

	s.log.Info().Str("root", root).Int("videos", len(entries)).Msg("scan complete")
	return entries, nil
}
