// Package pyramid defines the pyramidal image reader as a Go interface,
// plus RawTile/ChannelImage, the shared data types the blending core
// and the preprocessor pass around. A concrete disk-backed
// implementation lives in diskreader.go so the pipeline is runnable and
// testable without a real production pyramid format.
package pyramid

import (
	"context"
	"time"
)

// Compression discriminates whether a RawTile's pixel buffer is a
// fully decoded raster or a still-encoded JPEG byte stream.
type Compression int

const (
	Uncompressed Compression = iota
	Jpeg
)

func (c Compression) String() string {
	if c == Jpeg {
		return "jpeg"
	}
	return "uncompressed"
}

// RawTile is a mutable single- or multi-channel pixel buffer passed
// through the preprocessor and, eventually, the blender.
type RawTile struct {
	Width, Height   int
	Channels        int // 1 for preprocessed input, 3 for blended output
	BitsPerChannel  int // 8 or 16
	Resolution      int
	HSequence       int
	VSequence       int
	Compression     Compression
	Data            []byte
}

// ByteLength reports the number of bytes RawTile.Data should hold for
// an Uncompressed tile of these dimensions.
func (t *RawTile) ByteLength() int {
	bytesPerSample := 1
	if t.BitsPerChannel > 8 {
		bytesPerSample = 2
	}
	return t.Width * t.Height * t.Channels * bytesPerSample
}

// ChannelImage is a read-only view onto one pyramidal single-channel
// image, as retrieved from the image cache.
type ChannelImage struct {
	Path string

	FullWidth, FullHeight int
	TileWidth, TileHeight int
	NumResolutions        int
	// ResolutionWidths/Heights are indexed from the smallest resolution
	// (index 0) to the full-size image (index NumResolutions-1): pyramid
	// array position, not external protocol resolution number.
	ResolutionWidths  []int
	ResolutionHeights []int

	BitsPerChannel int // 8 or 16
	Grayscale      bool

	Min, Max []float64 // per-channel value-range hints from the source format

	Histogram []uint32 // may be empty until computed

	ModTime time.Time
	ICC     []byte // may be empty
}

// WidthAt and HeightAt return the image dimensions at pyramid level r,
// where r==0 is the full-resolution image and increasing r halves the
// size -- the external-protocol resolution numbering, converted to the
// array position NumResolutions-r-1.
func (ci *ChannelImage) WidthAt(r int) int {
	return ci.ResolutionWidths[ci.NumResolutions-r-1]
}

func (ci *ChannelImage) HeightAt(r int) int {
	return ci.ResolutionHeights[ci.NumResolutions-r-1]
}

// Reader is the pyramidal image reader interface the blending engine
// depends on.
type Reader interface {
	// Open returns the ChannelImage metadata for path, either freshly
	// read or retrieved from a cache.
	Open(ctx context.Context, path string) (*ChannelImage, error)

	// Tile fetches one tile at (resolution, tileIndex) from path,
	// requesting the given compression. Implementations may return a
	// tile in a different compression than requested only when the
	// caller explicitly tolerates it (blendengine never does for
	// Uncompressed requests).
	Tile(ctx context.Context, path string, resolution, tileIndex int, want Compression) (*RawTile, error)

	// Region fetches an arbitrary pixel rectangle at resolution,
	// uncompressed, for the region resampling path.
	Region(ctx context.Context, path string, resolution, left, top, width, height int) (*RawTile, error)
}
