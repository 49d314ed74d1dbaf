package blendengine

import (
	"context"

	"github.com/kmlvision/tileblend/internal/blendrequest"
	"github.com/kmlvision/tileblend/internal/blendsettings"
	"github.com/kmlvision/tileblend/internal/pyramid"
	"github.com/kmlvision/tileblend/internal/rawpixel"
)

// Region is a pixel rectangle in full-image space, used by the
// resampler path.
type Region struct {
	Left, Top, Width, Height int
}

// PreprocessOptions carries the per-request, per-channel-independent
// knobs the preprocessor needs, beyond what's already captured by the
// ChannelImage or BlendSetting.
type PreprocessOptions struct {
	Resolution int

	// Tile path: TileIndex is used when Region is nil.
	TileIndex int

	// Region path: when non-nil, a pixel rectangle is fetched instead of
	// a tile, and resampled to OutputWidth x OutputHeight.
	Region                    *Region
	OutputWidth, OutputHeight int
	Interpolation             string // "nearest" | "bilinear", default bilinear

	Quality  blendrequest.Quality
	Rotation int // 0, 90, 180, 270
	Flip     blendrequest.Flip

	AutoContrast bool
}

// Preprocess runs one channel through fetch, resample, rotate/flip,
// contrast and quality conversion, returning a 1-channel, 8-bit,
// uncompressed tile.
func Preprocess(ctx context.Context, reader pyramid.Reader, ci *pyramid.ChannelImage, setting blendsettings.Setting, opts PreprocessOptions) (*pyramid.RawTile, error) {
	needsHistogram := opts.Quality == blendrequest.QualityBinary || opts.AutoContrast
	if needsHistogram && len(ci.Histogram) == 0 {
		if err := prefetchHistogram(ctx, reader, ci); err != nil {
			return nil, err
		}
	}

	var raw *pyramid.RawTile
	var err error
	if opts.Region != nil {
		raw, err = reader.Region(ctx, ci.Path, opts.Resolution, opts.Region.Left, opts.Region.Top, opts.Region.Width, opts.Region.Height)
	} else {
		raw, err = reader.Tile(ctx, ci.Path, opts.Resolution, opts.TileIndex, pyramid.Uncompressed)
	}
	if err != nil {
		return nil, err
	}
	if raw.Compression != pyramid.Uncompressed {
		return nil, errUnexpectedCompression(ci.Path)
	}

	px := rawpixel.ToFloat(raw.Data, raw.BitsPerChannel)

	min, max := setting.Min, setting.Max
	if opts.AutoContrast {
		lo, hi := histogramBounds(ci.Histogram)
		shift := 0
		if raw.BitsPerChannel > 8 {
			shift = raw.BitsPerChannel - 8
		}
		min, max = uint64(lo)<<shift, uint64(hi)<<shift
	}
	rawpixel.Normalize(px, float64(min), float64(max))

	pix := rawpixel.Contrast(px, 1.0)
	width, height := raw.Width, raw.Height

	if opts.Region != nil && (width != opts.OutputWidth || height != opts.OutputHeight) && opts.OutputWidth > 0 && opts.OutputHeight > 0 {
		if opts.Interpolation == "nearest" {
			pix = rawpixel.InterpolateNearest(pix, width, height, opts.OutputWidth, opts.OutputHeight)
		} else {
			pix = rawpixel.InterpolateBilinear(pix, width, height, opts.OutputWidth, opts.OutputHeight)
		}
		width, height = opts.OutputWidth, opts.OutputHeight
	}

	if opts.Quality == blendrequest.QualityBinary {
		threshold := rawpixel.Threshold(ci.Histogram)
		rawpixel.Binarize(pix, threshold)
	}

	switch opts.Flip {
	case blendrequest.FlipHorizontal:
		rawpixel.FlipHorizontal(pix, width, height)
	case blendrequest.FlipVertical:
		rawpixel.FlipVertical(pix, width, height)
	}

	switch opts.Rotation {
	case 90:
		pix, width, height = rawpixel.Rotate90(pix, width, height)
	case 180:
		rawpixel.Rotate180(pix, width, height)
	case 270:
		pix, width, height = rawpixel.Rotate270(pix, width, height)
	}

	return &pyramid.RawTile{
		Width: width, Height: height, Channels: 1, BitsPerChannel: 8,
		Resolution: raw.Resolution, HSequence: raw.HSequence, VSequence: raw.VSequence,
		Compression: pyramid.Uncompressed, Data: pix,
	}, nil
}

func prefetchHistogram(ctx context.Context, reader pyramid.Reader, ci *pyramid.ChannelImage) error {
	thumb, err := reader.Tile(ctx, ci.Path, 0, 0, pyramid.Uncompressed)
	if err != nil {
		return err
	}
	px := thumb.Data
	if thumb.BitsPerChannel > 8 {
		shift := thumb.BitsPerChannel - 8
		px = make([]byte, len(thumb.Data)/2)
		for i := range px {
			v := uint16(thumb.Data[2*i])<<8 | uint16(thumb.Data[2*i+1])
			px[i] = byte(v >> shift)
		}
	}
	ci.Histogram = rawpixel.Histogram(px)
	return nil
}

// histogramBounds finds the lowest and highest non-empty bins, per the
// commented-out auto-stretch algorithm in
// original_source/src/TileBlender.cc.
func histogramBounds(histogram []uint32) (lo, hi int) {
	for lo = 0; lo < len(histogram) && histogram[lo] == 0; lo++ {
	}
	for hi = len(histogram) - 1; hi > lo && histogram[hi] == 0; hi-- {
	}
	return lo, hi
}
