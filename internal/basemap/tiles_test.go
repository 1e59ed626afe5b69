package basemap

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMercatorRoundTrip(t *testing.T) {
	points := [][2]float64{{0, 0}, {15.2, 45.1}, {-122.4, 37.8}, {179.9, -60}}
	for _, p := range points {
		x, y := LonLatToMercator(p[0], p[1])
		lon, lat := MercatorToLonLat(x, y)
		assert.InDelta(t, p[0], lon, 1e-9)
		assert.InDelta(t, p[1], lat, 1e-9)
	}

	x, y := LonLatToMercator(180, 90)
	assert.InDelta(t, 20037508.34, x, 0.01)
	assert.InDelta(t, 20037508.34, y, 1, "latitude clamps to the mercator square")
}

func TestLonLatToTile(t *testing.T) {
	tx, ty := LonLatToTile(0, 0, 1)
	assert.Equal(t, 1.0, tx)
	assert.InDelta(t, 1.0, ty, 1e-12)

	tx, ty = LonLatToTile(-180, MaxLatitude, 3)
	assert.Equal(t, 0.0, tx)
	assert.InDelta(t, 0, ty, 1e-6)
}

func TestTileBounds(t *testing.T) {
	world := TileBounds(0, 0, 0)
	assert.InDelta(t, -20037508.34, world.MinX, 0.01)
	assert.InDelta(t, 20037508.34, world.MaxY, 0.01)

	ne := TileBounds(1, 1, 0)
	assert.InDelta(t, 0, ne.MinX, 1e-6)
	assert.InDelta(t, 0, ne.MinY, 1e-6)
	assert.InDelta(t, world.MaxX, ne.MaxX, 1e-6)
}

func TestTiles(t *testing.T) {
	r := Tiles(BBox{MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1}, 8)
	assert.Equal(t, TileRange{Zoom: 8, MinX: 127, MaxX: 128, MinY: 127, MaxY: 128}, r)
	assert.Equal(t, 4, r.Count())

	// An edge on a tile boundary does not pull in the next tile.
	r = Tiles(BBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1}, 8)
	assert.Equal(t, 1, r.Count())
}

func TestBBoxValidate(t *testing.T) {
	require.NoError(t, BBox{MinLon: 10, MinLat: 45, MaxLon: 11, MaxLat: 46}.Validate())

	for _, b := range []BBox{
		{MinLon: 11, MinLat: 45, MaxLon: 10, MaxLat: 46},
		{MinLon: 10, MinLat: 45, MaxLon: 11, MaxLat: 45},
		{MinLon: -190, MinLat: 0, MaxLon: 0, MaxLat: 1},
		{MinLon: math.NaN(), MinLat: 0, MaxLon: 0, MaxLat: 1},
	} {
		err := b.Validate()
		require.Error(t, err, "%+v", b)
		assert.True(t, eris.Is(err, ErrInvalidBBox))
	}
}

func TestChooseZoom(t *testing.T) {
	b := BBox{MinLon: 10, MinLat: 45, MaxLon: 11, MaxLat: 46}

	assert.Equal(t, 11, ChooseZoom(b, 1024, 19, 200))
	assert.Equal(t, 5, ChooseZoom(b, 1024, 5, 200), "capped by provider max zoom")

	z := ChooseZoom(b, 1024, 19, 4)
	assert.Less(t, z, 11)
	assert.LessOrEqual(t, Tiles(b, z).Count(), 4)
}

func TestProviders(t *testing.T) {
	p, err := LookupProvider("OSM")
	require.NoError(t, err)
	assert.Equal(t, "https://tile.openstreetmap.org/3/4/2.png", p.TileURL(3, 4, 2))

	sat, err := LookupProvider("satellite")
	require.NoError(t, err)
	assert.Contains(t, sat.TileURL(3, 4, 2), "/tile/3/2/4")

	topo, err := LookupProvider("topo")
	require.NoError(t, err)
	assert.Equal(t, "https://a.tile.opentopomap.org/3/4/2.png", topo.TileURL(3, 4, 2))

	_, err = LookupProvider("bing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownProvider))

	assert.Equal(t, []string{"osm", "satellite", "topo"}, ProviderNames())
}
