package raster

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies a raster file codec.
type Format int

const (
	FormatUnknown Format = iota
	FormatASCII
	FormatTIFF
)

var formatNames = []string{"unknown", "ascii-grid", "tiff"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "unknown"
}

var formatExtensions = map[string]Format{
	".asc":  FormatASCII,
	".txt":  FormatASCII,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
}

// DetectFormat determines the codec from the file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := formatExtensions[ext]; ok {
		return f, nil
	}
	return FormatUnknown, eris.Wrapf(ErrUnsupportedFormat, "raster: extension %q", ext)
}

// IsSupported reports whether path has a readable raster extension.
func IsSupported(path string) bool {
	_, err := DetectFormat(path)
	return err == nil
}

// Read decodes a single-band raster file of any supported format.
//
// A sibling .prj file takes precedence over a CRS embedded in the file.
func Read(path string) (*Grid, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var g *Grid
	switch format {
	case FormatASCII:
		g, err = ReadASCII(path)
	case FormatTIFF:
		g, err = ReadTIFF(path)
	}
	if err != nil {
		return nil, err
	}

	crs, err := ReadPRJ(path)
	if err != nil {
		return nil, err
	}
	if crs != "" {
		g = g.WithCRS(crs)
	}
	return g, nil
}

// Write encodes band b of g, choosing the codec from the extension.
func Write(path string, g *Grid, b int) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	switch format {
	case FormatASCII:
		return WriteASCII(path, g, b)
	default:
		return WriteTIFF(path, g, b)
	}
}

// bandNameFromPath derives a default band name from a file name.
func bandNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sidecarPath(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// ReadPRJ returns the trimmed contents of the .prj sidecar of any file, or
// "" when there is none.
func ReadPRJ(path string) (string, error) {
	b, err := os.ReadFile(sidecarPath(path, ".prj"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", eris.Wrapf(err, "raster: read .prj for %s", path)
	}
	return strings.TrimSpace(string(b)), nil
}

// WritePRJ writes the CRS descriptor next to path. Empty descriptors are
// skipped.
func WritePRJ(path, crs string) error {
	if crs == "" {
		return nil
	}
	if err := os.WriteFile(sidecarPath(path, ".prj"), []byte(crs+"\n"), 0o644); err != nil {
		return eris.Wrapf(err, "raster: write .prj for %s", path)
	}
	return nil
}
