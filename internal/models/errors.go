package models

import "errors"

// Sentinel errors shared across repositories and handlers.
var (
	// ErrNotFound is returned when a recording or blob does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on duplicate inserts.
	ErrConflict = errors.New("already exists")
	// ErrUnsupportedMedia is returned when an upload is not audio or video.
	ErrUnsupportedMedia = errors.New("file must be an audio or video file")
)
