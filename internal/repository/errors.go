package repository

import "errors"

// Errors returned by the optimizer for a single descriptor.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	ErrWriteFailure      = errors.New("failed to write rendition")
)

// ErrRenderFailure is returned when any gallery document cannot be written.
var ErrRenderFailure = errors.New("failed to render gallery")

var (
	ErrRunInProgress = errors.New("another run is already writing to this output path")
	ErrRunNotFound   = errors.New("run not found")
)
