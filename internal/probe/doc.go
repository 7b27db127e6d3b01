// Package probe invokes the external ffprobe and ffmpeg commands with a
// bounded wait. Failures surface as boolean results, never as panics or
// indefinite blocking; duration fallback policy lives with the caller.
package probe
