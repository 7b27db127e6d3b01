package artifact

import (
	"crypto/md5" //nolint:gosec // MD5 derives temp file names, not security material
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp" // WebP override support
)

const (
	// ThumbWidth and ThumbHeight define the bounding box artifacts are
	// scaled into, preserving aspect ratio.
	ThumbWidth  = 320
	ThumbHeight = 180
)

// Origin records where a thumbnail artifact came from.
type Origin string

const (
	// OriginOverride marks an artifact decoded from a user-supplied image.
	OriginOverride Origin = "override"
	// OriginGenerated marks an artifact extracted from the video itself.
	OriginGenerated Origin = "generated"
)

// Artifact is a decoded, scaled thumbnail image plus its origin.
type Artifact struct {
	Image  image.Image
	Origin Origin
}

// OverrideLookup resolves a stored per-identity override image path.
// Implemented by the persistence collaborator.
type OverrideLookup interface {
	Override(identity string) (path string, ok bool)
}

// Cache resolves override images for video identities and designates
// deterministic ephemeral output paths for generated artifacts. The temp
// directory is shared across all cards; names are derived from
// (identity, purpose, index) so distinct videos never collide while retries
// for the same video safely overwrite.
type Cache struct {
	tempDir     string
	overrideDir string
	overrides   OverrideLookup
	log         zerolog.Logger
}

// overrideExts lists the recognized override file extensions, in resolution
// order.
var overrideExts = []string{"png", "jpg", "jpeg"}

// NewCache creates a Cache writing generated artifacts under tempDir.
// overrideDir may be empty (no directory-based overrides); overrides may be
// nil (no stored overrides).
func NewCache(tempDir, overrideDir string, overrides OverrideLookup, log zerolog.Logger) *Cache {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		log.Warn().Str("dir", tempDir).Err(err).Msg("failed to create artifact dir")
	}
	return &Cache{
		tempDir:     tempDir,
		overrideDir: overrideDir,
		overrides:   overrides,
		log:         log,
	}
}

// ResolveOverride returns the override image path for identity, if one
// exists and is readable. Resolution order: stored per-identity path, then
// <title>.<ext> under the override directory.
func (c *Cache) ResolveOverride(identity, title string) (string, bool) {
	if c.overrides != nil {
		if path, ok := c.overrides.Override(identity); ok && readable(path) {
			return path, true
		}
	}
	if c.overrideDir == "" {
		return "", false
	}
	for _, ext := range overrideExts {
		path := filepath.Join(c.overrideDir, title+"."+ext)
		if readable(path) {
			return path, true
		}
	}
	return "", false
}

func readable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// ThumbPath returns the ephemeral output path for identity's generated
// thumbnail.
func (c *Cache) ThumbPath(identity string) string {
	return filepath.Join(c.tempDir, fmt.Sprintf("%x_thumb.png", md5.Sum([]byte(identity)))) //nolint:gosec
}

// FramePath returns the ephemeral output path for filmstrip frame index of
// identity. index is 1-based to match the sampling offsets.
func (c *Cache) FramePath(identity string, index int) string {
	return filepath.Join(c.tempDir, fmt.Sprintf("%x_frame_%d.png", md5.Sum([]byte(identity)), index)) //nolint:gosec
}

// DecodeScaled decodes the image at path and scales it into the thumbnail
// bounding box, preserving aspect ratio.
func (c *Cache) DecodeScaled(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		// imaging.Open covers the common formats; fall through to the
		// registered stdlib decoders for the rest (webp overrides).
		img, err = decodeFile(path)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return imaging.Fit(img, ThumbWidth, ThumbHeight, imaging.Lanczos), nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}
