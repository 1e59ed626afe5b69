// Package raster provides the georeferenced grid model used by the land-cover
// pipeline, together with file codecs, the multi-band stack loader, the
// extent subsetter and the pixel-feature table consumed by the classifier.
//
// # Grid Model
//
// A Grid is a regular north-up lattice of cells. Every band in a grid shares
// the same dimensions, geotransform and coordinate reference system. Cell
// values are stored row-major as float64:
//
//	index = row*cols + col
//
// Row 0 is the northern-most row. The GeoTransform origin is the top-left
// corner of cell (0,0); x grows with the column index and y shrinks with the
// row index.
//
// # Immutability
//
// Grids are never modified after construction. Subset, Scatter and the
// reprojector all build new grids. Slices returned by accessors such as
// Band.Data alias the grid's storage and must be treated as read-only.
//
// # Coordinate Reference Systems
//
// The CRS descriptor is an opaque string (an "EPSG:<code>" reference, a PROJ
// parameter string or WKT from a .prj file). This package only carries and
// compares it; interpretation belongs to the reproject package.
//
// # Formats
//
// Read detects the format from the file extension:
//   - .asc, .txt: Esri ASCII grid
//   - .tif, .tiff: TIFF pixels with GeoTIFF tags or a world file sidecar
//
// A sibling .prj file, when present, overrides any CRS found in the file.
//
// # Error Handling
//
// Input-shape problems are reported with sentinel errors that callers can
// test with eris.Is: ErrMismatchedGrid, ErrBandCount, ErrInvalidExtent and
// ErrEmptyIntersection. They are fatal; nothing in this package tries to
// resample or realign inputs that disagree.
package raster
