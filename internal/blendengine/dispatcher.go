package blendengine

import (
	"context"
	"sync"
	"time"

	"github.com/kmlvision/tileblend/internal/blendrequest"
	"github.com/kmlvision/tileblend/internal/blendsettings"
	"github.com/kmlvision/tileblend/internal/pyramid"
)

// Engine ties the loader, preprocessor and blender together behind the
// fast-tile-path / region-path decision.
type Engine struct {
	Reader        pyramid.Reader
	Loader        *Loader
	AutoContrast  bool
	Interpolation string
}

// NewEngine constructs an Engine over reader.
func NewEngine(reader pyramid.Reader, autoContrast bool, interpolation string) *Engine {
	return &Engine{Reader: reader, Loader: NewLoader(reader), AutoContrast: autoContrast, Interpolation: interpolation}
}

// Result is the outcome of a successful Dispatch.
type Result struct {
	Blended  *pyramid.RawTile
	Channels []*pyramid.ChannelImage
	ModTime  time.Time
}

// NumTilesX computes ceil(width/tileWidth), the number of tile columns.
func NumTilesX(width, tileWidth int) int {
	if tileWidth <= 0 {
		return 0
	}
	return (width + tileWidth - 1) / tileWidth
}

// TotalTiles computes the number of tiles covering a width x height
// image tiled with square tiles of side tileWidth.
func TotalTiles(width, height, tileWidth int) int {
	return NumTilesX(width, tileWidth) * NumTilesX(height, tileWidth)
}

// TileIndex computes the row-major tile index for tile (tx, ty) given
// ntlx tile columns, following
// original_source/src/ZoomifyBlend.cc's "tile = y * ntlx + x".
func TileIndex(tx, ty, ntlx int) int {
	return ty*ntlx + tx
}

// RemapRotation180 remaps a tile index for a 180-degree rotated
// request, following TileBlender::blendTiles's pre-blend remap.
func RemapRotation180(tileIndex, totalTiles int) int {
	return totalTiles - tileIndex - 1
}

// Dispatch parses the blend spec, loads channels, selects the fast
// tile path or rejects with UnsupportedRegion, preprocesses every
// channel (one goroutine each, with a barrier before blending) and
// blends the result.
func (e *Engine) Dispatch(ctx context.Context, req *blendrequest.BlendRequest) (*Result, error) {
	settings, err := blendsettings.Parse(req.BlendJSON)
	if err != nil {
		return nil, errBlendSpecInvalid("%v", err)
	}
	if len(settings) == 0 {
		return nil, errBlendSpecEmpty()
	}

	channels, err := e.Loader.LoadChannels(ctx, req, settings)
	if err != nil {
		return nil, err
	}
	primary := channels[0]
	resolution := req.Resolution

	var tileIndex int
	switch req.Protocol {
	case blendrequest.Zoomify:
		ntlx := NumTilesX(primary.WidthAt(resolution), primary.TileWidth)
		tileIndex = TileIndex(req.TileX, req.TileY, ntlx)
	case blendrequest.IIIF:
		ok, idx := fastPathTileIndex(primary, req, resolution)
		if !ok {
			return nil, errUnsupportedRegion()
		}
		tileIndex = idx
	}

	if req.Rotation == 180 {
		total := TotalTiles(primary.WidthAt(resolution), primary.HeightAt(resolution), primary.TileWidth)
		tileIndex = RemapRotation180(tileIndex, total)
	}

	if resolution < 0 || tileIndex < 0 {
		return nil, newError("InvalidRegion", "2 1", "invalid resolution/tile number: %d,%d", resolution, tileIndex)
	}

	preprocessed := make([]*pyramid.RawTile, len(channels))
	var wg sync.WaitGroup
	errCh := make(chan error, len(channels))

	for i := range channels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := PreprocessOptions{
				Resolution:   resolution,
				TileIndex:    tileIndex,
				Quality:      req.Quality,
				Rotation:     req.Rotation,
				Flip:         req.Flip,
				AutoContrast: e.AutoContrast,
			}
			t, err := Preprocess(ctx, e.Reader, channels[i], settings[i], opts)
			if err != nil {
				errCh <- err
				return
			}
			preprocessed[i] = t
		}(i)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	blended, err := Blend(preprocessed, settings)
	if err != nil {
		return nil, err
	}

	modTime := primary.ModTime
	for _, c := range channels {
		if c.ModTime.After(modTime) {
			modTime = c.ModTime
		}
	}

	debug("dispatched resolution=%d tile=%d channels=%d -> %dx%d", resolution, tileIndex, len(channels), blended.Width, blended.Height)
	return &Result{Blended: blended, Channels: channels, ModTime: modTime}, nil
}

// fastPathTileIndex implements the fast-path test for the IIIF
// protocol, mirroring original_source/src/IIIFBlend.cc's alignment
// check. Any request that fails this test is a region request, which
// the blending engine always rejects with UnsupportedRegion -- the
// acknowledged IIIFBlend.cc limitation ("CVT region request not
// supported for tile blending").
func fastPathTileIndex(ci *pyramid.ChannelImage, req *blendrequest.BlendRequest, resolution int) (bool, int) {
	width := ci.WidthAt(resolution)
	height := ci.HeightAt(resolution)
	tw, th := ci.TileWidth, ci.TileHeight

	if resolution == 0 && !req.RegionSet &&
		(req.RequestedWidth == 0 || req.RequestedWidth == width) &&
		(req.RequestedHeight == 0 || req.RequestedHeight == height) {
		return true, 0
	}

	if !req.RegionSet {
		return false, 0
	}

	if req.RequestedWidth != tw || req.RequestedHeight != th {
		return false, 0
	}
	if req.Left%tw != 0 || req.Top%th != 0 {
		return false, 0
	}
	if req.Width%tw != 0 || req.Height%th != 0 {
		return false, 0
	}
	if req.Width >= width || req.Height >= height {
		return false, 0
	}

	ntlx := NumTilesX(width, tw)
	i := req.Left / tw
	j := req.Top / th
	return true, TileIndex(i, j, ntlx)
}
