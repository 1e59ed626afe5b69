package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// writeBand writes a single-band ASCII grid filled with value and returns its
// path.
func writeBand(t *testing.T, dir, name string, rows, cols int, value float64, gt GeoTransform) string {
	t.Helper()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = value + float64(i)
	}
	g, err := NewGrid(rows, cols, gt, "", []Band{{Name: name, Data: data}})
	require.NoError(t, err)
	path := filepath.Join(dir, name+".asc")
	require.NoError(t, WriteASCII(path, g, 0))
	return path
}

var unitTransform = GeoTransform{OriginX: 0, OriginY: 4, CellWidth: 1, CellHeight: 1}

func TestLoadStack(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"scene_B4", "scene_B2", "scene_B3"} {
		writeBand(t, dir, name, 4, 5, float64(100*(i+1)), unitTransform)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	g, err := LoadStack(context.Background(), LoadOptions{
		Dir:     dir,
		Pattern: "scene_*",
		CRS:     "EPSG:32633",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"scene_B2", "scene_B3", "scene_B4"}, g.BandNames(), "bands follow lexicographic file order")
	assert.Equal(t, 4, g.Rows())
	assert.Equal(t, 5, g.Cols())
	assert.Equal(t, "EPSG:32633", g.CRS())
	assert.Equal(t, 200.0, g.At(0, 0, 0))
	assert.Equal(t, 101.0, g.At(2, 0, 1))
}

func TestLoadStackOrderAndNames(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"b1", "b2", "b3"} {
		writeBand(t, dir, name, 2, 2, float64(i), unitTransform)
	}

	g, err := LoadStack(context.Background(), LoadOptions{
		Dir:         dir,
		Pattern:     "*.asc",
		Order:       []int{2, 0},
		Bands:       []string{"nir", "blue"},
		Parallelism: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"nir", "blue"}, g.BandNames())
	assert.Equal(t, 2.0, g.At(0, 0, 0))
	assert.Equal(t, 0.0, g.At(1, 0, 0))
}

func TestLoadStackErrors(t *testing.T) {
	t.Run("no inputs", func(t *testing.T) {
		_, err := LoadStack(context.Background(), LoadOptions{Dir: t.TempDir(), Pattern: "*.tif"})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNoInputs), "got %v", err)
	})

	t.Run("band name count", func(t *testing.T) {
		dir := t.TempDir()
		writeBand(t, dir, "a", 2, 2, 0, unitTransform)
		writeBand(t, dir, "b", 2, 2, 0, unitTransform)
		_, err := LoadStack(context.Background(), LoadOptions{Dir: dir, Pattern: "*.asc", Bands: []string{"only"}})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrBandCount), "got %v", err)
	})

	t.Run("order out of range", func(t *testing.T) {
		dir := t.TempDir()
		writeBand(t, dir, "a", 2, 2, 0, unitTransform)
		_, err := LoadStack(context.Background(), LoadOptions{Dir: dir, Pattern: "*.asc", Order: []int{1}})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrBandCount), "got %v", err)
	})

	t.Run("mismatched dimensions", func(t *testing.T) {
		dir := t.TempDir()
		writeBand(t, dir, "a", 2, 2, 0, unitTransform)
		writeBand(t, dir, "b", 3, 2, 0, unitTransform)
		_, err := LoadStack(context.Background(), LoadOptions{Dir: dir, Pattern: "*.asc"})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMismatchedGrid), "got %v", err)
	})

	t.Run("mismatched transform", func(t *testing.T) {
		dir := t.TempDir()
		writeBand(t, dir, "a", 2, 2, 0, unitTransform)
		shifted := unitTransform
		shifted.OriginX += 1
		writeBand(t, dir, "b", 2, 2, 0, shifted)
		_, err := LoadStack(context.Background(), LoadOptions{Dir: dir, Pattern: "*.asc"})
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMismatchedGrid), "got %v", err)
	})

	t.Run("cancelled", func(t *testing.T) {
		dir := t.TempDir()
		writeBand(t, dir, "a", 2, 2, 0, unitTransform)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := LoadStack(ctx, LoadOptions{Dir: dir, Pattern: "*.asc"})
		assert.Error(t, err)
	})
}

// writeColorTIFF writes a 2x2 RGB TIFF with a world file.
func writeColorTIFF(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.SetNRGBA(i%2, i/2, color.NRGBA{R: uint8(10 + i), G: uint8(20 + i), B: uint8(30 + i), A: 255})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, img, nil))
	require.NoError(t, f.Close())
	require.NoError(t, writeWorldFile(path, unitTransform))
}

func TestReadColorTIFFBands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgb.tif")
	writeColorTIFF(t, path)

	g, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rgb_r", "rgb_g", "rgb_b"}, g.BandNames())
	assert.Equal(t, 10.0, g.At(0, 0, 0))
	assert.Equal(t, 21.0, g.At(1, 0, 1))
	assert.Equal(t, 33.0, g.At(2, 1, 1))
}

func TestLoadStackRejectsMultiBandFile(t *testing.T) {
	dir := t.TempDir()
	writeBand(t, dir, "a", 2, 2, 0, unitTransform)
	writeColorTIFF(t, filepath.Join(dir, "b.tif"))

	_, err := LoadStack(context.Background(), LoadOptions{Dir: dir, Pattern: "*"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrBandCount), "got %v", err)
}

func TestLoadStackNormalisesNoData(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGrid(1, 2, unitTransform, "", []Band{{Name: "a", Data: []float64{math.NaN(), 3}}}, WithNoData(math.NaN()))
	require.NoError(t, err)
	require.NoError(t, WriteASCII(filepath.Join(dir, "a.asc"), g, 0))
	writeBand(t, dir, "b", 1, 2, 7, unitTransform)

	stack, err := LoadStack(context.Background(), LoadOptions{Dir: dir, Pattern: "*.asc"})
	require.NoError(t, err)
	assert.True(t, stack.IsNoData(stack.At(0, 0, 0)))
	assert.Equal(t, 3.0, stack.At(0, 0, 1))
	assert.Equal(t, 7.0, stack.At(1, 0, 0))
}

func TestGridCache(t *testing.T) {
	cache := NewGridCache()
	g := newTestGrid(t, 2, 2, 1)

	id := cache.Put(g)
	got, err := cache.Get(id)
	require.NoError(t, err)
	assert.Same(t, g, got)
	assert.Equal(t, 1, cache.Len())

	cache.Evict(id)
	_, err = cache.Get(id)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownGrid))

	cache.Evict("never-stored")
	assert.Equal(t, 0, cache.Len())
}

func TestGridCacheLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeBand(t, dir, "band", 2, 3, 1, unitTransform)
	cache := NewGridCache()

	id1, g1, err := cache.Load(path)
	require.NoError(t, err)
	id2, g2, err := cache.Load(path)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Same(t, g1, g2)

	_, _, err = cache.Load(filepath.Join(dir, "missing.asc"))
	assert.Error(t, err)

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
	id3, _, err := cache.Load(path)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestGridCacheConcurrent(t *testing.T) {
	cache := NewGridCache()
	g := newTestGrid(t, 1, 1, 1)

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = cache.Put(g)
			_, _ = cache.Get(ids[i])
			_ = cache.IDs()
		}()
	}
	wg.Wait()
	assert.Equal(t, len(ids), cache.Len())
	assert.Len(t, cache.IDs(), len(ids), fmt.Sprintf("ids must be unique: %v", ids))
}
