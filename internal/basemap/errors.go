package basemap

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidBBox is returned for bounding boxes with min >= max or
	// coordinates outside the valid longitude/latitude range.
	ErrInvalidBBox = eris.New("basemap: invalid bounding box")

	// ErrFetch is returned when a tile cannot be retrieved or decoded.
	ErrFetch = eris.New("basemap: tile fetch failed")

	// ErrUnknownProvider is returned for provider names with no definition.
	ErrUnknownProvider = eris.New("basemap: unknown provider")

	// ErrTooManyTiles is returned when a request would exceed the tile cap.
	ErrTooManyTiles = eris.New("basemap: too many tiles")
)

// FetchError carries the transport, rate limiter or decode failure behind a
// failed tile. It matches ErrFetch and unwraps to the original cause, so
// callers can test for context.Canceled or context.DeadlineExceeded.
type FetchError struct {
	Tile string
	Err  error
}

func (e *FetchError) Error() string { return "basemap: tile " + e.Tile + ": " + e.Err.Error() }

// Unwrap returns the cause.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetch.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

func fetchError(z, x, y int, err error) error {
	return &FetchError{Tile: fmt.Sprintf("%d/%d/%d", z, x, y), Err: err}
}
