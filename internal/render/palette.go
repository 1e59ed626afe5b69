package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"

	"github.com/ironsheep/landcover-mcp/internal/raster"
)

// Palette maps cell values to colors. No-data values map to transparent.
type Palette interface {
	Color(v float64) color.NRGBA
	Legend() []LegendEntry
}

// LegendEntry is one swatch of a legend.
type LegendEntry struct {
	Label string      `json:"label"`
	Color color.NRGBA `json:"-"`
	Hex   string      `json:"color"`
}

var transparent = color.NRGBA{}

// CategoryPalette assigns one color per class code.
type CategoryPalette struct {
	classes []int
	colors  map[int]color.NRGBA
	names   map[int]string
}

// NewCategoryPalette spreads colors for classes evenly around the HCL hue
// circle, alternating lightness so neighbouring codes stay distinct.
func NewCategoryPalette(classes []int) *CategoryPalette {
	sorted := append([]int(nil), classes...)
	sort.Ints(sorted)
	p := &CategoryPalette{
		classes: sorted,
		colors:  make(map[int]color.NRGBA, len(sorted)),
		names:   map[int]string{},
	}
	n := float64(len(sorted))
	for i, class := range sorted {
		h := 30 + 360*float64(i)/n
		l := 0.55 + 0.15*float64(i%2)
		p.colors[class] = toNRGBA(colorful.Hcl(math.Mod(h, 360), 0.55, l))
	}
	return p
}

// SetColor overrides the color of one class with a hex code.
func (p *CategoryPalette) SetColor(class int, hex string) error {
	c, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	if _, ok := p.colors[class]; !ok {
		p.classes = append(p.classes, class)
		sort.Ints(p.classes)
	}
	p.colors[class] = c
	return nil
}

// SetName labels a class in the legend.
func (p *CategoryPalette) SetName(class int, name string) { p.names[class] = name }

// Classes returns the class codes in ascending order.
func (p *CategoryPalette) Classes() []int { return append([]int(nil), p.classes...) }

// Color returns the class color, or transparent for NaN and unknown codes.
func (p *CategoryPalette) Color(v float64) color.NRGBA {
	if math.IsNaN(v) {
		return transparent
	}
	c, ok := p.colors[int(math.Round(v))]
	if !ok {
		return transparent
	}
	return c
}

func (p *CategoryPalette) label(class int) string {
	if name, ok := p.names[class]; ok && name != "" {
		return fmt.Sprintf("%d %s", class, name)
	}
	return fmt.Sprintf("class %d", class)
}

// Legend lists every class in code order.
func (p *CategoryPalette) Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(p.classes))
	for _, class := range p.classes {
		c := p.colors[class]
		out = append(out, LegendEntry{Label: p.label(class), Color: c, Hex: HexColor(c)})
	}
	return out
}

// DefaultRamp is a perceptually ordered dark-blue to yellow ramp.
var DefaultRamp = []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}

// Ramp maps a continuous value range onto color stops blended in HCL.
type Ramp struct {
	min, max float64
	stops    []colorful.Color
}

// NewRamp builds a ramp over [lo, hi]. With no stops DefaultRamp is used.
func NewRamp(lo, hi float64, stops ...string) (*Ramp, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || hi < lo {
		return nil, eris.Errorf("render: invalid ramp range [%g, %g]", lo, hi)
	}
	if len(stops) == 0 {
		stops = DefaultRamp
	}
	if len(stops) < 2 {
		return nil, eris.Wrap(ErrInvalidColor, "render: a ramp needs at least two stops")
	}
	r := &Ramp{min: lo, max: hi, stops: make([]colorful.Color, len(stops))}
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			return nil, eris.Wrapf(ErrInvalidColor, "render: ramp stop %q", s)
		}
		r.stops[i] = c
	}
	return r, nil
}

// Color returns the blended color for v; values outside the range clamp to
// the end stops.
func (r *Ramp) Color(v float64) color.NRGBA {
	if math.IsNaN(v) {
		return transparent
	}
	t := 0.0
	if r.max > r.min {
		t = (v - r.min) / (r.max - r.min)
	}
	t = math.Max(0, math.Min(1, t))
	seg := t * float64(len(r.stops)-1)
	i := int(math.Floor(seg))
	if i >= len(r.stops)-1 {
		return toNRGBA(r.stops[len(r.stops)-1])
	}
	return toNRGBA(r.stops[i].BlendHcl(r.stops[i+1], seg-float64(i)))
}

// Legend samples five values across the range.
func (r *Ramp) Legend() []LegendEntry {
	const n = 5
	out := make([]LegendEntry, n)
	for i := range out {
		v := r.min + (r.max-r.min)*float64(i)/(n-1)
		c := r.Color(v)
		out[i] = LegendEntry{Label: fmt.Sprintf("%.4g", v), Color: c, Hex: HexColor(c)}
	}
	return out
}

// PaletteFor picks a palette for one band of g: a category palette over the
// codes present when g is categorical, a DefaultRamp over the band range
// otherwise.
func PaletteFor(g *raster.Grid, band int) (Palette, error) {
	if band < 0 || band >= g.NumBands() {
		return nil, eris.Wrapf(raster.ErrBandCount, "render: band %d of %d", band, g.NumBands())
	}
	if g.Kind() == raster.Categorical {
		return NewCategoryPalette(Classes(g, band)), nil
	}
	st, err := g.Stats(band)
	if err != nil {
		return nil, err
	}
	if st.Valid == 0 {
		return NewRamp(0, 1)
	}
	return NewRamp(st.Min, st.Max)
}

// Classes returns the distinct valid codes of one band in ascending order.
func Classes(g *raster.Grid, band int) []int {
	seen := map[int]bool{}
	for _, v := range g.Band(band).Data {
		if g.IsNoData(v) {
			continue
		}
		seen[int(math.Round(v))] = true
	}
	out := make([]int, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
