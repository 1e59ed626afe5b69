package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var gridIDProp = map[string]any{
	"type":        "string",
	"description": "Id of a grid held by the server, as returned by an earlier call",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Grid Information
		{
			Name:        "raster_info",
			Description: "Open a raster file (GeoTIFF or Esri ASCII grid), or look up a held grid, and return its size, bands, CRS, georeferencing and per-band statistics.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Absolute path to the raster file",
					},
					"grid_id": gridIDProp,
				},
			},
		},
		{
			Name:        "raster_load_stack",
			Description: "Stack co-registered single-band files from a directory into one multi-band grid. Files are matched by a glob and sorted by name.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"dir": map[string]any{
						"type":        "string",
						"description": "Directory containing the band files",
					},
					"pattern": map[string]any{
						"type":        "string",
						"description": "Glob relative to dir. Default *.tif",
						"default":     "*.tif",
					},
					"bands": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Band names in output order. Defaults to the file names",
					},
					"order": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer"},
						"description": "Indexes into the sorted matches selecting and ordering the bands",
					},
					"crs": map[string]any{
						"type":        "string",
						"description": "CRS to assume for files without one, e.g. EPSG:32633",
					},
				},
				"required": []string{"dir"},
			},
		},

		// Grid Operations
		{
			Name:        "raster_subset",
			Description: "Crop a held grid to the cells whose centers fall inside an extent given in the grid's CRS.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"grid_id": gridIDProp,
					"min_x":   map[string]any{"type": "number", "description": "Western edge"},
					"min_y":   map[string]any{"type": "number", "description": "Southern edge"},
					"max_x":   map[string]any{"type": "number", "description": "Eastern edge"},
					"max_y":   map[string]any{"type": "number", "description": "Northern edge"},
				},
				"required": []string{"grid_id", "min_x", "min_y", "max_x", "max_y"},
			},
		},
		{
			Name:        "raster_classify",
			Description: "Cluster the pixels of a held multi-band grid with k-means and return a new single-band class grid, the cluster centroids and the share of each class.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"grid_id": gridIDProp,
					"k": map[string]any{
						"type":        "integer",
						"description": "Number of classes. Default 5",
						"default":     5,
					},
					"seed": map[string]any{
						"type":        "integer",
						"description": "Random seed; equal seeds give equal results. Default 1",
						"default":     1,
					},
					"max_iterations": map[string]any{
						"type":        "integer",
						"description": "Iteration cap. Default 100",
						"default":     100,
					},
					"init": map[string]any{
						"type":        "string",
						"enum":        []string{"kmeans++", "forgy"},
						"description": "Centroid seeding. Default kmeans++",
					},
				},
				"required": []string{"grid_id"},
			},
		},
		{
			Name:        "raster_reproject",
			Description: "Resample a held grid into another CRS. Class grids always use nearest neighbour.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"grid_id": gridIDProp,
					"target_crs": map[string]any{
						"type":        "string",
						"description": "Target CRS, e.g. EPSG:4326 or EPSG:3857",
					},
					"resampling": map[string]any{
						"type":        "string",
						"enum":        []string{"auto", "nearest", "bilinear"},
						"description": "Resampling method. Default auto",
					},
					"cell_size": map[string]any{
						"type":        "number",
						"description": "Target cell size in target CRS units. Default keeps the row and column counts",
					},
				},
				"required": []string{"grid_id", "target_crs"},
			},
		},

		// Output
		{
			Name:        "raster_quicklook",
			Description: "Render one band of a held grid as a base64-encoded PNG, one pixel per cell. Class grids get a categorical palette, other grids a color ramp.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"grid_id": gridIDProp,
					"band": map[string]any{
						"type":        "integer",
						"description": "Band index (0-based). Default 0",
						"default":     0,
					},
					"scale": map[string]any{
						"type":        "integer",
						"description": "Integer upscale factor. Default 1",
						"default":     1,
					},
				},
				"required": []string{"grid_id"},
			},
		},
		{
			Name:        "raster_export",
			Description: "Write one band of a held grid to disk. The extension selects the format: .tif for GeoTIFF, .asc for Esri ASCII grid.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"grid_id": gridIDProp,
					"path": map[string]any{
						"type":        "string",
						"description": "Absolute output path ending in .tif or .asc",
					},
					"band": map[string]any{
						"type":        "integer",
						"description": "Band index (0-based). Default 0",
						"default":     0,
					},
				},
				"required": []string{"grid_id", "path"},
			},
		},
		{
			Name:        "raster_release",
			Description: "Drop a held grid from server memory.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"grid_id": gridIDProp,
				},
				"required": []string{"grid_id"},
			},
		},

		// Measurement
		{
			Name:        "geo_distance",
			Description: "Measure the geodesic distance and bearings between two lon/lat points on the WGS84 or GRS80 ellipsoid.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"lon1": map[string]any{"type": "number", "description": "Start longitude in degrees"},
					"lat1": map[string]any{"type": "number", "description": "Start latitude in degrees"},
					"lon2": map[string]any{"type": "number", "description": "End longitude in degrees"},
					"lat2": map[string]any{"type": "number", "description": "End latitude in degrees"},
					"ellipsoid": map[string]any{
						"type":        "string",
						"enum":        []string{"WGS84", "GRS80"},
						"description": "Reference ellipsoid. Default WGS84",
					},
				},
				"required": []string{"lon1", "lat1", "lon2", "lat2"},
			},
		},

		// Pipeline
		{
			Name:        "landcover_run",
			Description: "Run the full land-cover pipeline: stack bands, classify, reproject, fetch a basemap and write the class rasters, map PNG, footprint and manifest. Unset arguments use the server configuration.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"input_dir": map[string]any{
						"type":        "string",
						"description": "Directory containing the band files",
					},
					"pattern": map[string]any{
						"type":        "string",
						"description": "Glob relative to input_dir",
					},
					"crs": map[string]any{
						"type":        "string",
						"description": "CRS to assume for files without one",
					},
					"k": map[string]any{
						"type":        "integer",
						"description": "Number of classes",
					},
					"seed": map[string]any{
						"type":        "integer",
						"description": "Random seed",
					},
					"target_crs": map[string]any{
						"type":        "string",
						"description": "CRS of the exported class grid",
					},
					"output_dir": map[string]any{
						"type":        "string",
						"description": "Directory for the outputs",
					},
					"basemap": map[string]any{
						"type":        "boolean",
						"description": "Fetch a basemap behind the map",
					},
					"provider": map[string]any{
						"type":        "string",
						"enum":        []string{"osm", "satellite", "topo"},
						"description": "Basemap tile provider",
					},
				},
				"required": []string{"input_dir"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"tools": GetToolDefinitions(),
		},
	}
}
