package pipeline

import "github.com/rotisserie/eris"

var (
	// ErrNoCRS is returned when the stacked bands carry no CRS and none is
	// configured.
	ErrNoCRS = eris.New("pipeline: stack has no CRS; set input.crs")
	// ErrUnsupportedOverlay is returned for overlay files that are neither
	// shapefiles nor GeoJSON.
	ErrUnsupportedOverlay = eris.New("pipeline: unsupported overlay format")
)
