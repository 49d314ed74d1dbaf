package cache

import (
	"context"

	"github.com/kmlvision/tileblend/internal/pyramid"
)

// CachedReader decorates a pyramid.Reader with a TileCache and an
// ImageCache, so blendengine.Loader and blendengine.Preprocess can
// depend on pyramid.Reader alone while transparently hitting the
// caches first.
type CachedReader struct {
	tiles  *TileCache
	images *ImageCache
	inner  pyramid.Reader
}

// NewCachedReader wires tiles and images in front of inner. Region
// requests bypass both caches: region rectangles are not tile-aligned
// and follow a resampling path, not the fast-tile cacheable path.
func NewCachedReader(inner pyramid.Reader, tiles *TileCache, images *ImageCache) *CachedReader {
	return &CachedReader{tiles: tiles, images: images, inner: inner}
}

func (r *CachedReader) Open(ctx context.Context, path string) (*pyramid.ChannelImage, error) {
	return r.images.Open(ctx, path)
}

func (r *CachedReader) Tile(ctx context.Context, path string, resolution, tileIndex int, want pyramid.Compression) (*pyramid.RawTile, error) {
	return r.tiles.Tile(ctx, path, resolution, tileIndex, want)
}

func (r *CachedReader) Region(ctx context.Context, path string, resolution, left, top, width, height int) (*pyramid.RawTile, error) {
	return r.inner.Region(ctx, path, resolution, left, top, width, height)
}

var _ pyramid.Reader = (*CachedReader)(nil)
