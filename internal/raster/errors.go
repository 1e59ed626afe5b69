package raster

import "github.com/rotisserie/eris"

var (
	// ErrMismatchedGrid is returned when bands or inputs disagree on
	// dimensions, geotransform or CRS.
	ErrMismatchedGrid = eris.New("raster: mismatched grid")

	// ErrBandCount is returned when the number of band names does not match
	// the number of input files.
	ErrBandCount = eris.New("raster: band count mismatch")

	// ErrNoInputs is returned when a stack pattern matches no files.
	ErrNoInputs = eris.New("raster: no input files")

	// ErrInvalidExtent is returned for extents with min >= max or NaN bounds.
	ErrInvalidExtent = eris.New("raster: invalid extent")

	// ErrEmptyIntersection is returned when an operation would produce a grid
	// with no cells, or a feature table with no rows.
	ErrEmptyIntersection = eris.New("raster: extent does not intersect grid")

	// ErrUnsupportedFormat is returned for file extensions with no codec.
	ErrUnsupportedFormat = eris.New("raster: unsupported raster format")

	// ErrMissingGeoreference is returned when a file carries neither GeoTIFF
	// tags nor a world file.
	ErrMissingGeoreference = eris.New("raster: missing georeference")
)
