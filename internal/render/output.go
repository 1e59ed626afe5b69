package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
)

// SavePNG writes img as PNG regardless of the path extension.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create %s", path)
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		return eris.Wrapf(err, "render: encode %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "render: close %s", path)
	}
	return nil
}

// EncodePNGBase64 returns img as base64 PNG data for MCP image content.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", eris.Wrap(err, "render: encode png")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
