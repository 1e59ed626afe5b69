package pipeline

import (
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/landcover-mcp/internal/config"
	"github.com/ironsheep/landcover-mcp/internal/vector"
)

var footprintColor = color.NRGBA{R: 255, G: 255, B: 255, A: 230}

// footprint returns the outline of the exported class grid, built once.
func (r *runner) footprint() (*vector.Collection, error) {
	if r.outline != nil {
		return r.outline, nil
	}
	fc, err := vector.Footprint(r.classes.Extent(), r.classes.CRS(), map[string]string{
		"run_id":  r.report.RunID,
		"classes": strconv.Itoa(r.result.Model.K()),
		"crs":     r.classes.CRS(),
	})
	if err != nil {
		return nil, err
	}
	r.outline = fc
	return fc, nil
}

func (r *runner) writeFootprint() error {
	fc, err := r.footprint()
	if err != nil {
		return err
	}
	files := &r.report.Files
	files.FootprintSHP = r.path("_footprint.shp")
	if err := vector.WriteShapefile(files.FootprintSHP, fc); err != nil {
		return err
	}
	files.FootprintGeoJSON = r.path("_footprint.geojson")
	return vector.WriteGeoJSON(files.FootprintGeoJSON, fc)
}

// ReadOverlay reads a vector overlay, choosing the reader from the file
// extension.
func ReadOverlay(path string) (*vector.Collection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return vector.ReadShapefile(path)
	case ".geojson", ".json":
		return vector.ReadGeoJSON(path)
	default:
		return nil, eris.Wrapf(ErrUnsupportedOverlay, "pipeline: %s", path)
	}
}

// Manifest is the YAML record written next to the outputs of a run.
type Manifest struct {
	RunID     string         `yaml:"run_id"`
	CreatedAt time.Time      `yaml:"created_at"`
	Config    *config.Config `yaml:"config"`
	Result    Report         `yaml:"result"`
}

func writeManifest(path string, cfg *config.Config, report *Report) error {
	m := Manifest{
		RunID:     report.RunID,
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
		Result:    *report,
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return eris.Wrap(err, "pipeline: encode manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write %s", path)
	}
	return nil
}

// ReadManifest decodes a manifest written by Run.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "pipeline: decode %s", path)
	}
	return &m, nil
}
