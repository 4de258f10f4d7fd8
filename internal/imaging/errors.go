package imaging

import "errors"

var (
	// ErrEmptyImage is returned when an image has no pixels.
	ErrEmptyImage = errors.New("image has no pixels")

	// ErrInvalidRegion is returned when a region is empty or outside the image bounds.
	ErrInvalidRegion = errors.New("invalid region")
)
