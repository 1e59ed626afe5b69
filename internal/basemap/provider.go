package basemap

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Provider describes an XYZ tile service.
type Provider struct {
	Name string `json:"name"`
	// URLTemplate contains {z}, {x} and {y}, and optionally {s} for a
	// subdomain.
	URLTemplate string   `json:"url_template"`
	Subdomains  []string `json:"subdomains,omitempty"`
	MaxZoom     int      `json:"max_zoom"`
	Attribution string   `json:"attribution"`
}

var providers = map[string]Provider{
	"osm": {
		Name:        "osm",
		URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		MaxZoom:     19,
		Attribution: "© OpenStreetMap contributors",
	},
	"satellite": {
		Name:        "satellite",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		MaxZoom:     19,
		Attribution: "Tiles © Esri, Maxar, Earthstar Geographics",
	},
	"topo": {
		Name:        "topo",
		URLTemplate: "https://{s}.tile.opentopomap.org/{z}/{x}/{y}.png",
		Subdomains:  []string{"a", "b", "c"},
		MaxZoom:     17,
		Attribution: "© OpenStreetMap contributors, SRTM | © OpenTopoMap (CC-BY-SA)",
	},
}

// LookupProvider returns a built-in provider by name.
func LookupProvider(name string) (Provider, error) {
	p, ok := providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Provider{}, eris.Wrapf(ErrUnknownProvider, "basemap: %q (known: %s)", name, strings.Join(ProviderNames(), ", "))
	}
	return p, nil
}

// ProviderNames lists the built-in providers in sorted order.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for n := range providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TileURL expands the template for tile (z, x, y).
func (p Provider) TileURL(z, x, y int) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
		"{s}", p.subdomain(x, y),
	)
	return r.Replace(p.URLTemplate)
}

func (p Provider) subdomain(x, y int) string {
	if len(p.Subdomains) == 0 {
		return ""
	}
	return p.Subdomains[(x+y)%len(p.Subdomains)]
}
