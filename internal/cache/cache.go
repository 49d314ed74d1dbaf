// Package cache provides two process-wide caches: a tile cache keyed by
// (path, resolution, tile, compression) and an image cache keyed by
// channel path, holding metadata and histograms.
// Both are backed by groupcache.Group so concurrent readers are safe by
// construction; a singleflight.Group coordinates the disk-open path
// groupcache itself does not cover.
package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/golang/groupcache"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/kmlvision/tileblend/internal/pyramid"

	d "github.com/tj/go-debug"
)

var debug = d.Debug("tileblend:cache")

// tileEnvelope is the gob-encoded wrapper placed in the tile cache's
// groupcache.Sink, carrying a zstd-compressed RawTile payload plus the
// struct fields needed to reconstruct it without the pixel buffer.
type tileEnvelope struct {
	Width, Height, Channels, BitsPerChannel int
	Resolution, HSequence, VSequence        int
	Compression                             int
	CompressedData                          []byte
}

// TileCache fronts a groupcache.Group of decoded RawTiles.
type TileCache struct {
	group   *groupcache.Group
	reader  pyramid.Reader
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewTileCache constructs a TileCache of the given byte capacity,
// fetching misses from reader.
func NewTileCache(name string, capacityBytes int64, reader pyramid.Reader) (*TileCache, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: new zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: new zstd decoder: %w", err)
	}

	tc := &TileCache{reader: reader, encoder: enc, decoder: dec}
	tc.group = groupcache.NewGroup(name, capacityBytes, groupcache.GetterFunc(tc.fetch))
	return tc, nil
}

// tileKey formats the cache key for (path, resolution, tileIndex, want).
func tileKey(path string, resolution, tileIndex int, want pyramid.Compression) string {
	return fmt.Sprintf("%s#%d#%d#%d", path, resolution, tileIndex, int(want))
}

func (tc *TileCache) fetch(ctx groupcache.Context, key string, dest groupcache.Sink) error {
	path, resolution, tileIndex, want, err := parseTileKey(key)
	if err != nil {
		return err
	}

	t, err := tc.reader.Tile(context.Background(), path, resolution, tileIndex, want)
	if err != nil {
		return err
	}

	compressed := tc.encoder.EncodeAll(t.Data, nil)
	env := tileEnvelope{
		Width: t.Width, Height: t.Height, Channels: t.Channels, BitsPerChannel: t.BitsPerChannel,
		Resolution: t.Resolution, HSequence: t.HSequence, VSequence: t.VSequence,
		Compression: int(t.Compression), CompressedData: compressed,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("cache: encode tile envelope: %w", err)
	}

	debug("caching tile %s (%d raw bytes -> %d compressed)", key, len(t.Data), len(compressed))
	return dest.SetBytes(buf.Bytes())
}

func parseTileKey(key string) (path string, resolution, tileIndex int, want pyramid.Compression, err error) {
	var r, ti, w int
	n, scanErr := fmt.Sscanf(reverseExtractSuffix(key), "%d#%d#%d", &r, &ti, &w)
	if scanErr != nil || n != 3 {
		return "", 0, 0, 0, fmt.Errorf("cache: malformed tile key %q", key)
	}
	path = key[:len(key)-len(reverseExtractSuffix(key))-1]
	return path, r, ti, pyramid.Compression(w), nil
}

// reverseExtractSuffix returns the "#resolution#tile#compression" tail
// of a tile key, tolerating "#" characters in path by scanning from the
// key's end for exactly three fields.
func reverseExtractSuffix(key string) string {
	fields := 0
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '#' {
			fields++
			if fields == 3 {
				return key[i+1:]
			}
		}
	}
	return key
}

// Tile returns the RawTile for (path, resolution, tileIndex, want),
// fetching through the cache.
func (tc *TileCache) Tile(ctx context.Context, path string, resolution, tileIndex int, want pyramid.Compression) (*pyramid.RawTile, error) {
	var raw []byte
	if err := tc.group.Get(ctx, tileKey(path, resolution, tileIndex, want), groupcache.AllocatingByteSliceSink(&raw)); err != nil {
		return nil, err
	}

	var env tileEnvelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, fmt.Errorf("cache: decode tile envelope: %w", err)
	}

	data, err := tc.decoder.DecodeAll(env.CompressedData, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: decompress tile: %w", err)
	}

	return &pyramid.RawTile{
		Width: env.Width, Height: env.Height, Channels: env.Channels, BitsPerChannel: env.BitsPerChannel,
		Resolution: env.Resolution, HSequence: env.HSequence, VSequence: env.VSequence,
		Compression: pyramid.Compression(env.Compression), Data: data,
	}, nil
}

// ImageCache fronts a groupcache.Group of ChannelImage metadata,
// de-duplicating concurrent opens of the same path with a
// singleflight.Group (groupcache alone doesn't coalesce the underlying
// reader.Open call across its own peers in a single process).
type ImageCache struct {
	group  *groupcache.Group
	reader pyramid.Reader
	sf     singleflight.Group
}

type imageEnvelope struct {
	FullWidth, FullHeight               int
	TileWidth, TileHeight               int
	NumResolutions                      int
	ResolutionWidths, ResolutionHeights []int
	BitsPerChannel                      int
	Grayscale                           bool
	Min, Max                            []float64
	Histogram                           []uint32
	ModTimeUnixNano                     int64
	ICC                                 []byte
}

// NewImageCache constructs an ImageCache of the given byte capacity,
// fetching misses from reader.
func NewImageCache(name string, capacityBytes int64, reader pyramid.Reader) *ImageCache {
	ic := &ImageCache{reader: reader}
	ic.group = groupcache.NewGroup(name, capacityBytes, groupcache.GetterFunc(ic.fetch))
	return ic
}

func (ic *ImageCache) fetch(ctx groupcache.Context, key string, dest groupcache.Sink) error {
	v, err, _ := ic.sf.Do(key, func() (interface{}, error) {
		return ic.reader.Open(context.Background(), key)
	})
	if err != nil {
		return err
	}
	ci := v.(*pyramid.ChannelImage)

	env := imageEnvelope{
		FullWidth: ci.FullWidth, FullHeight: ci.FullHeight,
		TileWidth: ci.TileWidth, TileHeight: ci.TileHeight, NumResolutions: ci.NumResolutions,
		ResolutionWidths: ci.ResolutionWidths, ResolutionHeights: ci.ResolutionHeights,
		BitsPerChannel: ci.BitsPerChannel, Grayscale: ci.Grayscale,
		Min: ci.Min, Max: ci.Max, Histogram: ci.Histogram,
		ModTimeUnixNano: ci.ModTime.UnixNano(), ICC: ci.ICC,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("cache: encode image envelope: %w", err)
	}

	debug("caching channel image %s", key)
	return dest.SetBytes(buf.Bytes())
}

// Open returns the ChannelImage for path, fetching through the cache.
func (ic *ImageCache) Open(ctx context.Context, path string) (*pyramid.ChannelImage, error) {
	var raw []byte
	if err := ic.group.Get(ctx, path, groupcache.AllocatingByteSliceSink(&raw)); err != nil {
		return nil, err
	}

	var env imageEnvelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, fmt.Errorf("cache: decode image envelope: %w", err)
	}

	return &pyramid.ChannelImage{
		Path:              path,
		FullWidth:         env.FullWidth,
		FullHeight:        env.FullHeight,
		TileWidth:         env.TileWidth,
		TileHeight:        env.TileHeight,
		NumResolutions:    env.NumResolutions,
		ResolutionWidths:  env.ResolutionWidths,
		ResolutionHeights: env.ResolutionHeights,
		BitsPerChannel:    env.BitsPerChannel,
		Grayscale:         env.Grayscale,
		Min:               env.Min,
		Max:               env.Max,
		Histogram:         env.Histogram,
		ICC:               env.ICC,
		ModTime:           time.Unix(0, env.ModTimeUnixNano),
	}, nil
}

var _ io.Closer = (*TileCache)(nil)

// Close releases the zstd encoder/decoder resources.
func (tc *TileCache) Close() error {
	tc.encoder.Close()
	tc.decoder.Close()
	return nil
}
