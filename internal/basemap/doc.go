// Package basemap fetches background imagery for a geographic bounding box
// from XYZ ("slippy map") tile services.
//
// Tiles are requested sequentially through a rate limiter, stitched into one
// image and cropped to the bounding box. The result is georeferenced in Web
// Mercator metres (EPSG:3857), the native projection of every supported
// provider.
//
// Fetch failures (network errors, non-200 responses, undecodable tiles,
// cancellation) match ErrFetch and keep their cause in the chain, so
// context.Canceled and context.DeadlineExceeded are still detectable.
// Nothing is retried and no placeholder imagery is substituted.
//
// An optional TileCache keeps fetched tiles between runs; MBTiles stores
// them in an SQLite file using the MBTiles 1.3 schema.
package basemap
