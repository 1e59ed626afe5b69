// Package server implements the MCP (Model Context Protocol) server for the
// land-cover tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line:
//   - Input: JSON-RPC requests on stdin
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr through the global zap logger so they never mix with
// protocol traffic.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Grid Information:
//   - raster_info: Open a raster file or describe a held grid
//   - raster_load_stack: Stack single-band files into one grid
//
// Grid Operations:
//   - raster_subset: Crop to an extent
//   - raster_classify: K-means land-cover classification
//   - raster_reproject: Resample into another CRS
//
// Output:
//   - raster_quicklook: Render a band as PNG
//   - raster_export: Write a band as GeoTIFF or ASCII grid
//   - raster_release: Drop a held grid
//
// Measurement:
//   - geo_distance: Geodesic distance and bearings
//
// Pipeline:
//   - landcover_run: Full run from band files to rendered map
//
// # Grid Cache
//
// Grids loaded or derived during a session are held in a raster.GridCache
// and referenced by the generated grid_id returned from each call. Files
// read through raster_info are also cached by path. Grids stay in memory
// until raster_release or process exit.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32601 (unknown method or tool),
//     -32602 (malformed params) or -32700 (unparseable request)
//   - message: Human-readable error description
//   - data: The error chain as text
package server
