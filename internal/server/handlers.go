package server

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ironsheep/landcover-mcp/internal/classify"
	"github.com/ironsheep/landcover-mcp/internal/geodesy"
	"github.com/ironsheep/landcover-mcp/internal/pipeline"
	"github.com/ironsheep/landcover-mcp/internal/raster"
	"github.com/ironsheep/landcover-mcp/internal/render"
	"github.com/ironsheep/landcover-mcp/internal/reproject"
)

var (
	// ErrUnknownTool is returned for tool names missing from GetToolDefinitions.
	ErrUnknownTool = eris.New("server: unknown tool")
	// ErrMissingArgument is returned when a required argument is absent.
	ErrMissingArgument = eris.New("server: missing argument")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "raster_info", "raster_classify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		if eris.Is(err, ErrUnknownTool) {
			return s.errorResponse(req.ID, codeMethodNotFound, "Unknown tool", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", eris.Wrap(err, "server: encode result").Error())
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	// Grid Information
	case "raster_info":
		return s.handleRasterInfo(args)
	case "raster_load_stack":
		return s.handleRasterLoadStack(ctx, args)

	// Grid Operations
	case "raster_subset":
		return s.handleRasterSubset(args)
	case "raster_classify":
		return s.handleRasterClassify(args)
	case "raster_reproject":
		return s.handleRasterReproject(args)

	// Output
	case "raster_quicklook":
		return s.handleRasterQuickLook(args)
	case "raster_export":
		return s.handleRasterExport(args)
	case "raster_release":
		return s.handleRasterRelease(args)

	// Measurement
	case "geo_distance":
		return s.handleGeoDistance(args)

	// Pipeline
	case "landcover_run":
		return s.handleLandcoverRun(ctx, args)

	default:
		return nil, eris.Wrapf(ErrUnknownTool, "server: %s", name)
	}
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return eris.Wrap(err, "server: decode arguments")
	}
	return nil
}

// grid resolves a grid id from the cache.
func (s *Server) grid(id string) (*raster.Grid, error) {
	if id == "" {
		return nil, eris.Wrap(ErrMissingArgument, "server: grid_id")
	}
	return s.cache.Get(id)
}

// === Grid Information Handlers ===

// GridInfo describes a held grid.
type GridInfo struct {
	GridID    string              `json:"grid_id"`
	Rows      int                 `json:"rows"`
	Cols      int                 `json:"cols"`
	CRS       string              `json:"crs"`
	Kind      string              `json:"kind"`
	Transform raster.GeoTransform `json:"transform"`
	Extent    raster.Extent       `json:"extent"`
	NoData    *float64            `json:"nodata,omitempty"`
	Bands     []raster.BandStats  `json:"bands"`
}

func gridInfo(id string, g *raster.Grid) (*GridInfo, error) {
	stats, err := g.AllStats()
	if err != nil {
		return nil, err
	}
	// Bands without valid cells report NaN statistics, which JSON cannot
	// carry.
	for i := range stats {
		if stats[i].Valid == 0 {
			stats[i].Min, stats[i].Max, stats[i].Mean = 0, 0, 0
		}
	}
	info := &GridInfo{
		GridID:    id,
		Rows:      g.Rows(),
		Cols:      g.Cols(),
		CRS:       g.CRS(),
		Kind:      g.Kind().String(),
		Transform: g.Transform(),
		Extent:    g.Extent(),
		Bands:     stats,
	}
	if nd, ok := g.NoData(); ok && !math.IsNaN(nd) {
		info.NoData = &nd
	}
	return info, nil
}

type rasterInfoArgs struct {
	Path   string `json:"path"`
	GridID string `json:"grid_id"`
}

func (s *Server) handleRasterInfo(args json.RawMessage) (any, error) {
	var a rasterInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.GridID != "" {
		g, err := s.grid(a.GridID)
		if err != nil {
			return nil, err
		}
		return gridInfo(a.GridID, g)
	}
	if a.Path == "" {
		return nil, eris.Wrap(ErrMissingArgument, "server: path or grid_id")
	}
	id, g, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return gridInfo(id, g)
}

type rasterLoadStackArgs struct {
	Dir     string   `json:"dir"`
	Pattern string   `json:"pattern"`
	Bands   []string `json:"bands"`
	Order   []int    `json:"order"`
	CRS     string   `json:"crs"`
}

func (s *Server) handleRasterLoadStack(ctx context.Context, args json.RawMessage) (any, error) {
	var a rasterLoadStackArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Dir == "" {
		return nil, eris.Wrap(ErrMissingArgument, "server: dir")
	}
	if a.Pattern == "" {
		a.Pattern = s.cfg.Input.Pattern
	}
	g, err := raster.LoadStack(ctx, raster.LoadOptions{
		Dir:         a.Dir,
		Pattern:     a.Pattern,
		Bands:       a.Bands,
		Order:       a.Order,
		CRS:         a.CRS,
		Parallelism: s.cfg.Input.Parallelism,
	})
	if err != nil {
		return nil, err
	}
	return gridInfo(s.cache.Put(g), g)
}

// === Grid Operation Handlers ===

type rasterSubsetArgs struct {
	GridID string  `json:"grid_id"`
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
}

func (s *Server) handleRasterSubset(args json.RawMessage) (any, error) {
	var a rasterSubsetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.grid(a.GridID)
	if err != nil {
		return nil, err
	}
	sub, err := raster.Subset(g, raster.Extent{MinX: a.MinX, MinY: a.MinY, MaxX: a.MaxX, MaxY: a.MaxY})
	if err != nil {
		return nil, err
	}
	return gridInfo(s.cache.Put(sub), sub)
}

type rasterClassifyArgs struct {
	GridID        string `json:"grid_id"`
	K             int    `json:"k"`
	Seed          *int64 `json:"seed"`
	MaxIterations int    `json:"max_iterations"`
	Init          string `json:"init"`
}

// ClassifyResult is returned by raster_classify.
type ClassifyResult struct {
	GridID     string                `json:"grid_id"`
	K          int                   `json:"k"`
	Iterations int                   `json:"iterations"`
	Converged  bool                  `json:"converged"`
	Inertia    float64               `json:"inertia"`
	BandNames  []string              `json:"band_names"`
	Centroids  [][]float64           `json:"centroids"`
	Sizes      []int                 `json:"sizes"`
	Shares     []classify.ClassShare `json:"shares"`
}

func (s *Server) handleRasterClassify(args json.RawMessage) (any, error) {
	var a rasterClassifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.grid(a.GridID)
	if err != nil {
		return nil, err
	}

	defaults := s.cfg.Classify
	if a.K == 0 {
		a.K = defaults.K
	}
	if a.Seed == nil {
		a.Seed = &defaults.Seed
	}
	if a.MaxIterations == 0 {
		a.MaxIterations = defaults.MaxIterations
	}
	if a.Init == "" {
		a.Init = defaults.Init
	}
	seeding, err := classify.ParseInit(a.Init)
	if err != nil {
		return nil, err
	}

	res, err := classify.Classify(g, classify.Options{
		K:             a.K,
		Seed:          *a.Seed,
		MaxIterations: a.MaxIterations,
		Init:          seeding,
	})
	if err != nil {
		return nil, err
	}
	m := res.Model
	return &ClassifyResult{
		GridID:     s.cache.Put(res.Labels),
		K:          m.K(),
		Iterations: m.Iterations,
		Converged:  m.Converged,
		Inertia:    m.Inertia,
		BandNames:  res.BandNames,
		Centroids:  m.Centroids,
		Sizes:      m.Sizes,
		Shares:     classify.ClassShares(res.Labels),
	}, nil
}

type rasterReprojectArgs struct {
	GridID     string  `json:"grid_id"`
	TargetCRS  string  `json:"target_crs"`
	Resampling string  `json:"resampling"`
	CellSize   float64 `json:"cell_size"`
}

func (s *Server) handleRasterReproject(args json.RawMessage) (any, error) {
	var a rasterReprojectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.grid(a.GridID)
	if err != nil {
		return nil, err
	}
	if a.TargetCRS == "" {
		return nil, eris.Wrap(ErrMissingArgument, "server: target_crs")
	}
	r, err := reproject.ParseResampling(a.Resampling)
	if err != nil {
		return nil, err
	}
	out, err := reproject.Reproject(g, a.TargetCRS, reproject.Options{
		Resampling: r,
		CellWidth:  a.CellSize,
		CellHeight: a.CellSize,
	})
	if err != nil {
		return nil, err
	}
	return gridInfo(s.cache.Put(out), out)
}

// === Output Handlers ===

type rasterQuickLookArgs struct {
	GridID string `json:"grid_id"`
	Band   int    `json:"band"`
	Scale  int    `json:"scale"`
}

// QuickLookResult carries a rendered band.
type QuickLookResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleRasterQuickLook(args json.RawMessage) (any, error) {
	var a rasterQuickLookArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.grid(a.GridID)
	if err != nil {
		return nil, err
	}
	if a.Band < 0 || a.Band >= g.NumBands() {
		return nil, eris.Errorf("server: band %d out of range [0,%d)", a.Band, g.NumBands())
	}
	if a.Scale <= 0 {
		a.Scale = 1
	}
	pal, err := s.palette(g, a.Band)
	if err != nil {
		return nil, err
	}
	img, err := render.QuickLook(g, a.Band, pal, a.Scale)
	if err != nil {
		return nil, err
	}
	data, err := render.EncodePNGBase64(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &QuickLookResult{Width: b.Dx(), Height: b.Dy(), ImageBase64: data, MimeType: "image/png"}, nil
}

// palette picks colors for a band. Class grids use the configured class
// names and colors.
func (s *Server) palette(g *raster.Grid, band int) (render.Palette, error) {
	if g.Kind() != raster.Categorical {
		return render.PaletteFor(g, band)
	}
	classes := render.Classes(g, band)
	k := 0
	if len(classes) > 0 {
		k = classes[len(classes)-1] + 1
	}
	return pipeline.ClassPalette(k, s.cfg.Classify)
}

type rasterExportArgs struct {
	GridID string `json:"grid_id"`
	Path   string `json:"path"`
	Band   int    `json:"band"`
}

// ExportResult names a written file.
type ExportResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
}

func (s *Server) handleRasterExport(args json.RawMessage) (any, error) {
	var a rasterExportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	g, err := s.grid(a.GridID)
	if err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, eris.Wrap(ErrMissingArgument, "server: path")
	}
	format, err := raster.DetectFormat(a.Path)
	if err != nil {
		return nil, err
	}
	if err := raster.Write(a.Path, g, a.Band); err != nil {
		return nil, err
	}
	return &ExportResult{Path: a.Path, Format: format.String()}, nil
}

type rasterReleaseArgs struct {
	GridID string `json:"grid_id"`
}

func (s *Server) handleRasterRelease(args json.RawMessage) (any, error) {
	var a rasterReleaseArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if _, err := s.grid(a.GridID); err != nil {
		return nil, err
	}
	s.cache.Evict(a.GridID)
	return map[string]any{"released": a.GridID, "held": s.cache.Len()}, nil
}

// === Measurement Handlers ===

type geoDistanceArgs struct {
	Lon1      float64 `json:"lon1"`
	Lat1      float64 `json:"lat1"`
	Lon2      float64 `json:"lon2"`
	Lat2      float64 `json:"lat2"`
	Ellipsoid string  `json:"ellipsoid"`
}

func (s *Server) handleGeoDistance(args json.RawMessage) (any, error) {
	var a geoDistanceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	for _, lat := range []float64{a.Lat1, a.Lat2} {
		if lat < -90 || lat > 90 {
			return nil, eris.Errorf("server: latitude %g out of range", lat)
		}
	}
	e := geodesy.ByName(strings.ToUpper(a.Ellipsoid))
	return geodesy.Measure(e, geodesy.Point{Lon: a.Lon1, Lat: a.Lat1}, geodesy.Point{Lon: a.Lon2, Lat: a.Lat2}), nil
}

// === Pipeline Handlers ===

type landcoverRunArgs struct {
	InputDir  string `json:"input_dir"`
	Pattern   string `json:"pattern"`
	CRS       string `json:"crs"`
	K         int    `json:"k"`
	Seed      *int64 `json:"seed"`
	TargetCRS string `json:"target_crs"`
	OutputDir string `json:"output_dir"`
	Basemap   *bool  `json:"basemap"`
	Provider  string `json:"provider"`
}

func (s *Server) handleLandcoverRun(ctx context.Context, args json.RawMessage) (any, error) {
	var a landcoverRunArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	cfg := *s.cfg
	if a.InputDir != "" {
		cfg.Input.Dir = a.InputDir
	}
	if a.Pattern != "" {
		cfg.Input.Pattern = a.Pattern
	}
	if a.CRS != "" {
		cfg.Input.CRS = a.CRS
	}
	if a.K > 0 {
		cfg.Classify.K = a.K
	}
	if a.Seed != nil {
		cfg.Classify.Seed = *a.Seed
	}
	if a.TargetCRS != "" {
		cfg.Reproject.TargetCRS = a.TargetCRS
	}
	if a.OutputDir != "" {
		cfg.Output.Dir = a.OutputDir
	}
	if a.Basemap != nil {
		cfg.Basemap.Enabled = *a.Basemap
	}
	if a.Provider != "" {
		cfg.Basemap.Provider = a.Provider
	}
	return pipeline.Run(ctx, &cfg)
}
