package reproject

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
)

// Common descriptors.
const (
	WGS84       = "EPSG:4326"
	WebMercator = "EPSG:3857"
)

const (
	projLongLatWGS84 = "+proj=longlat +datum=WGS84 +no_defs"
	projLongLatNAD83 = "+proj=longlat +ellps=GRS80 +towgs84=0,0,0 +no_defs"
	projWebMercator  = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
)

var epsgTable = map[int]string{
	4326:   projLongLatWGS84,
	4269:   projLongLatNAD83,
	3857:   projWebMercator,
	900913: projWebMercator,
}

// EPSGCode extracts the numeric code from an "EPSG:<n>" descriptor.
func EPSGCode(crs string) (int, bool) {
	s := strings.TrimSpace(crs)
	if len(s) < 6 || !strings.EqualFold(s[:5], "EPSG:") {
		return 0, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(s[5:]))
	if err != nil || code <= 0 {
		return 0, false
	}
	return code, true
}

// ProjString returns the PROJ parameter string (or WKT) for crs.
func ProjString(crs string) (string, error) {
	s := strings.TrimSpace(crs)
	if s == "" {
		return "", eris.Wrap(ErrUnknownCRS, "reproject: empty CRS descriptor")
	}
	code, ok := EPSGCode(s)
	if !ok {
		if strings.HasPrefix(strings.ToUpper(s), "EPSG:") {
			return "", eris.Wrapf(ErrUnknownCRS, "reproject: malformed %q", s)
		}
		return s, nil
	}
	if def, ok := epsgTable[code]; ok {
		return def, nil
	}
	switch {
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), nil
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), nil
	case code >= 26901 && code <= 26923:
		return fmt.Sprintf("+proj=utm +zone=%d +ellps=GRS80 +towgs84=0,0,0 +units=m +no_defs", code-26900), nil
	}
	return "", eris.Wrapf(ErrUnknownCRS, "reproject: EPSG:%d is not in the built-in table", code)
}

// Resolve parses crs into a spatial reference.
func Resolve(crs string) (*proj.SR, error) {
	def, err := ProjString(crs)
	if err != nil {
		return nil, err
	}
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, eris.Wrapf(err, "reproject: parse %q", crs)
	}
	return sr, nil
}

// IsGeographic reports whether crs is a longitude/latitude system.
func IsGeographic(crs string) bool {
	sr, err := Resolve(crs)
	if err != nil {
		return false
	}
	return sr.Name == "longlat"
}

// Transformer maps a point from one CRS to another.
type Transformer func(x, y float64) (float64, float64, error)

// NewTransformer builds a point transformer from one descriptor to another.
// Identical descriptors yield the identity.
func NewTransformer(from, to string) (Transformer, error) {
	src, err := Resolve(from)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(from) == strings.TrimSpace(to) {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }, nil
	}
	dst, err := Resolve(to)
	if err != nil {
		return nil, err
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, eris.Wrapf(err, "reproject: transform %s -> %s", from, to)
	}
	return Transformer(t), nil
}
