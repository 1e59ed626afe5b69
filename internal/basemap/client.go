package basemap

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // tile decoders
	_ "image/png"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Image is a stitched basemap cropped to the requested box.
type Image struct {
	Img image.Image
	// Bounds is the extent of Img in Web Mercator metres.
	Bounds      MercatorBounds
	Zoom        int
	Attribution string
	Tiles       int
}

// Options configures a Client.
type Options struct {
	Provider  Provider
	UserAgent string
	// Timeout bounds each tile request. Defaults to 30s.
	Timeout time.Duration
	// RateLimit is the maximum number of tile requests per second.
	// Defaults to 2.
	RateLimit float64
	// MaxTiles caps the tiles fetched for one image. Defaults to 64.
	MaxTiles int
	// Cache, when set, is consulted before and filled after each request.
	Cache TileCache
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Client fetches and stitches tiles from one provider.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient creates a client with defaults applied.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.MaxTiles <= 0 {
		opts.MaxTiles = 64
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "landcover-mcp/1.0"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		opts:    opts,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		log:     zap.L().With(zap.String("component", "basemap"), zap.String("provider", opts.Provider.Name)),
	}
}

// Provider returns the client's tile provider.
func (c *Client) Provider() Provider { return c.opts.Provider }

// Fetch retrieves the tiles covering b at zoom z, stitches them and crops
// the mosaic to b.
func (c *Client) Fetch(ctx context.Context, b BBox, z int) (*Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if z < 0 || z > c.opts.Provider.MaxZoom {
		return nil, eris.Errorf("basemap: zoom %d outside 0-%d for %s", z, c.opts.Provider.MaxZoom, c.opts.Provider.Name)
	}
	b = b.Clamped()
	tr := Tiles(b, z)
	if tr.Count() > c.opts.MaxTiles {
		return nil, eris.Wrapf(ErrTooManyTiles, "basemap: %d tiles at zoom %d (cap %d)", tr.Count(), z, c.opts.MaxTiles)
	}

	start := time.Now()
	cols, rows := tr.MaxX-tr.MinX+1, tr.MaxY-tr.MinY+1
	mosaic := imaging.New(cols*TileSize, rows*TileSize, color.NRGBA{})
	for ty := tr.MinY; ty <= tr.MaxY; ty++ {
		for tx := tr.MinX; tx <= tr.MaxX; tx++ {
			tile, err := c.tile(ctx, z, tx, ty)
			if err != nil {
				return nil, err
			}
			if tile.Bounds().Dx() != TileSize || tile.Bounds().Dy() != TileSize {
				tile = imaging.Resize(tile, TileSize, TileSize, imaging.Linear)
			}
			at := image.Pt((tx-tr.MinX)*TileSize, (ty-tr.MinY)*TileSize)
			mosaic = imaging.Paste(mosaic, tile, at)
		}
	}

	// Crop the mosaic to the requested box, in global pixel coordinates.
	x0, y0 := LonLatToTile(b.MinLon, b.MaxLat, z)
	x1, y1 := LonLatToTile(b.MaxLon, b.MinLat, z)
	px0 := int(math.Floor((x0 - float64(tr.MinX)) * TileSize))
	py0 := int(math.Floor((y0 - float64(tr.MinY)) * TileSize))
	px1 := int(math.Ceil((x1 - float64(tr.MinX)) * TileSize))
	py1 := int(math.Ceil((y1 - float64(tr.MinY)) * TileSize))
	px1, py1 = max(px1, px0+1), max(py1, py0+1)
	cropped := imaging.Crop(mosaic, image.Rect(px0, py0, px1, py1))

	// Bounds of the cropped pixels, which may extend slightly past b.
	full := TileBounds(z, tr.MinX, tr.MinY)
	span := full.Width() / TileSize
	bounds := MercatorBounds{
		MinX: full.MinX + float64(px0)*span,
		MaxX: full.MinX + float64(px0+cropped.Bounds().Dx())*span,
		MaxY: full.MaxY - float64(py0)*span,
		MinY: full.MaxY - float64(py0+cropped.Bounds().Dy())*span,
	}

	c.log.Info("fetched basemap",
		zap.Int("zoom", z),
		zap.Int("tiles", tr.Count()),
		zap.Int("width", cropped.Bounds().Dx()),
		zap.Int("height", cropped.Bounds().Dy()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Image{
		Img:         cropped,
		Bounds:      bounds,
		Zoom:        z,
		Attribution: c.opts.Provider.Attribution,
		Tiles:       tr.Count(),
	}, nil
}

// tile returns one decoded tile, from the cache when possible.
func (c *Client) tile(ctx context.Context, z, x, y int) (image.Image, error) {
	if c.opts.Cache != nil {
		data, ok, err := c.opts.Cache.Get(ctx, z, x, y)
		if err != nil {
			c.log.Warn("tile cache read failed", zap.Error(err))
		} else if ok {
			if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
				return img, nil
			}
		}
	}

	data, err := c.download(ctx, z, x, y)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(fetchError(z, x, y, err), "basemap: decode tile")
	}
	if c.opts.Cache != nil {
		if err := c.opts.Cache.Put(ctx, z, x, y, data); err != nil {
			c.log.Warn("tile cache write failed", zap.Error(err))
		}
	}
	return img, nil
}

func (c *Client) download(ctx context.Context, z, x, y int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(fetchError(z, x, y, err), "basemap: rate limiter")
	}
	url := c.opts.Provider.TileURL(z, x, y)
	reqCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "basemap: build request %s", url)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(fetchError(z, x, y, err), "basemap: GET %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, eris.Wrapf(ErrFetch, "basemap: GET %s: %s", url, statusText(resp.StatusCode, snippet))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, eris.Wrapf(fetchError(z, x, y, err), "basemap: read %s", url)
	}
	c.log.Debug("downloaded tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}

func statusText(code int, body []byte) string {
	if len(body) == 0 {
		return fmt.Sprintf("HTTP %d", code)
	}
	return fmt.Sprintf("HTTP %d: %s", code, bytes.TrimSpace(body))
}
