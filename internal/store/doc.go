// Package store persists pins, thumbnail overrides, and settings in a
// SQLite database keyed by video identity.
package store
