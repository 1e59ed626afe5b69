package reproject

import "github.com/rotisserie/eris"

var (
	// ErrUnknownCRS is returned for empty descriptors and EPSG codes missing
	// from the built-in table.
	ErrUnknownCRS = eris.New("reproject: unknown coordinate reference system")

	// ErrInterpolateCategorical is returned when bilinear resampling is
	// requested for a categorical grid.
	ErrInterpolateCategorical = eris.New("reproject: categorical grids cannot be interpolated")

	// ErrTransform is returned when no part of a grid can be transformed
	// into the target CRS.
	ErrTransform = eris.New("reproject: coordinate transformation failed")
)
