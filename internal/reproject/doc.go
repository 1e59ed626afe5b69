// Package reproject resolves coordinate reference system descriptors and
// resamples grids from one CRS onto a regular grid in another.
//
// CRS descriptors stay opaque strings everywhere else in the module. This
// package is the only one that interprets them, through
// github.com/ctessum/geom/proj. Accepted forms:
//
//	EPSG:4326                          a code from the built-in table
//	+proj=utm +zone=33 +datum=WGS84    a PROJ parameter string
//	PROJCS["...", ...]                 WKT, as found in .prj sidecars
//
// # Resampling
//
// Categorical grids (class codes) are resampled with nearest-neighbour
// selection only; asking for bilinear interpolation of a categorical grid is
// an error. Continuous grids default to bilinear interpolation.
package reproject
