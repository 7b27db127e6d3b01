// Package card implements the asynchronous artifact pipeline at the heart
// of the video browser: per-video card state, the cancelable thumbnail and
// filmstrip tasks that populate it, the bounded worker pool they run under,
// and the Library control surface tying scans, pins, overrides, and hover
// animation together.
//
// Cards live in an arena keyed by video identity; nothing holds mutual
// object pointers across the presentation boundary. Tasks publish onto each
// card's typed event channel and observe cancellation cooperatively at
// checkpoints bracketing every external call and every publish. A reload
// cancels the previous generation and waits for every task — and every
// external process a task had spawned — to terminate before the shared
// temp-file namespace is reused.
package card
