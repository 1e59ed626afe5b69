// Package render turns classified grids into map images.
//
// Compose draws a basemap, semi-transparent raster layers and vector
// outlines into one Web Mercator frame, then adds a legend, a scale bar
// measured on the configured ellipsoid, a north arrow, an optional
// graticule and the basemap attribution. QuickLook previews a grid in its
// own cell space and SignatureChart plots class centroids per band.
//
// Raster layers must be geographic (lon/lat) or Web Mercator grids; the
// pipeline reprojects the classification before composing.
package render

import "github.com/rotisserie/eris"

var (
	ErrInvalidColor = eris.New("render: invalid color")
	ErrNoLayers     = eris.New("render: nothing to draw")
	ErrLayerCRS     = eris.New("render: layer CRS must be geographic or web mercator")
	ErrInvalidSize  = eris.New("render: invalid image size")
)
