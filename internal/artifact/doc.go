// Package artifact resolves override images and designates ephemeral output
// paths for generated thumbnails and filmstrip frames.
package artifact
