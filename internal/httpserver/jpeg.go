package httpserver

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/kmlvision/tileblend/internal/pyramid"
)

// encodeBlendedJPEG JPEG-encodes a 3-channel, 8-bit blended tile with
// stdlib image/jpeg, exactly as internal/pyramid/diskreader.go does for
// its own Jpeg-compressed tile path.
func encodeBlendedJPEG(tile *pyramid.RawTile, quality int) ([]byte, error) {
	if tile.Channels != 3 || tile.BitsPerChannel != 8 {
		return nil, fmt.Errorf("httpserver: cannot JPEG-encode a %d-channel %d-bit tile", tile.Channels, tile.BitsPerChannel)
	}

	img := image.NewRGBA(image.Rect(0, 0, tile.Width, tile.Height))
	for i := 0; i < tile.Width*tile.Height; i++ {
		o := i * 3
		img.Set(i%tile.Width, i/tile.Width, color.RGBA{R: tile.Data[o], G: tile.Data[o+1], B: tile.Data[o+2], A: 0xff})
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("httpserver: jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
