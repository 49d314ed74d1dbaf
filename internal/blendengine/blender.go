package blendengine

import (
	"github.com/kmlvision/tileblend/internal/blendsettings"
	"github.com/kmlvision/tileblend/internal/pyramid"
)

// Blend folds N preprocessed 1-channel tiles into one RGB tile,
// directly following original_source/src/TileBlender.cc's blendTiles
// pixel loop: accumulate tint*(gray/255) into the output and clip to
// [0,255] after every add, in BlendSettings order.
func Blend(tiles []*pyramid.RawTile, settings []blendsettings.Setting) (*pyramid.RawTile, error) {
	if len(tiles) == 0 {
		return nil, errBlendSpecEmpty()
	}

	width, height := tiles[0].Width, tiles[0].Height
	out := make([]byte, width*height*3)

	for k, t := range tiles {
		tt, err := parseTint(settings[k].TintHex)
		if err != nil {
			return nil, errBlendSpecInvalid("channel %d: %v", settings[k].ChannelIndex, err)
		}

		for i := 0; i < width*height; i++ {
			g := float64(t.Data[i]) / 255.0
			rAdd := float64(tt.r) * g
			gAdd := float64(tt.g) * g
			bAdd := float64(tt.b) * g

			o := i * 3
			out[o] = clipToU8(float64(out[o]) + rAdd)
			out[o+1] = clipToU8(float64(out[o+1]) + gAdd)
			out[o+2] = clipToU8(float64(out[o+2]) + bAdd)
		}
	}

	return &pyramid.RawTile{
		Width: width, Height: height, Channels: 3, BitsPerChannel: 8,
		Resolution: tiles[0].Resolution, HSequence: tiles[0].HSequence, VSequence: tiles[0].VSequence,
		Compression: pyramid.Uncompressed, Data: out,
	}, nil
}

func clipToU8(v float64) byte {
	r := int(v + 0.5)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return byte(r)
}
