package card

import (
	"image"

	"video-browser/internal/artifact"
)

// EventKind discriminates the per-card pipeline events.
type EventKind string

const (
	// EventThumbnailReady fires when the card's thumbnail artifact has been
	// atomically replaced.
	EventThumbnailReady EventKind = "thumbnail-ready"
	// EventFrameAppended fires for each filmstrip frame as it is appended;
	// FrameCount carries the new filmstrip length.
	EventFrameAppended EventKind = "frame-appended"
	// EventDurationKnown fires when a task has probed the video duration.
	// It may fire more than once per card (both tasks probe independently);
	// consumers should treat it as idempotent.
	EventDurationKnown EventKind = "duration-known"
)

// Event is one publication from a card's pipeline to the presentation
// layer. Only the fields relevant to Kind are set.
type Event struct {
	Identity   string
	Kind       EventKind
	Thumbnail  *artifact.Artifact
	Frame      image.Image
	FrameCount int
	Duration   float64
}
