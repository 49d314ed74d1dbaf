package pyramid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	d "github.com/tj/go-debug"
)

var debug = d.Debug("tileblend:pyramid")

// DiskReader is a concrete, minimal implementation of Reader backed by
// a directory tree. Each channel image lives under root/<path>/ with:
//
//	meta.json       -- ChannelImage fields other than Histogram/ModTime/ICC
//	icc.bin         -- optional ICC profile bytes
//	levels/<r>.png  -- one lossless raster per pyramid level, r==0 is
//	                   full resolution (the external-protocol convention)
//
// This is a concrete pyramidal image reader, referenced elsewhere only
// through the Reader interface -- see DESIGN.md for why a real
// production pyramid format is not in scope here.
type DiskReader struct {
	Root string

	mu         sync.Mutex
	metaCache  map[string]*ChannelImage
	levelCache map[string]*image.Gray16 // key: path + "/" + level
}

// NewDiskReader constructs a DiskReader rooted at root.
func NewDiskReader(root string) *DiskReader {
	return &DiskReader{
		Root:       root,
		metaCache:  make(map[string]*ChannelImage),
		levelCache: make(map[string]*image.Gray16),
	}
}

type diskMeta struct {
	FullWidth, FullHeight int       `json:"fullWidth,omitempty" toml:"fullWidth"`
	TileWidth, TileHeight int       `json:"tileWidth"`
	NumResolutions        int       `json:"numResolutions"`
	ResolutionWidths      []int     `json:"resolutionWidths"`
	ResolutionHeights     []int     `json:"resolutionHeights"`
	BitsPerChannel        int       `json:"bitsPerChannel"`
	Grayscale             bool      `json:"grayscale"`
	Min                   []float64 `json:"min,omitempty"`
	Max                   []float64 `json:"max,omitempty"`
}

func (r *DiskReader) Open(ctx context.Context, path string) (*ChannelImage, error) {
	r.mu.Lock()
	if ci, ok := r.metaCache[path]; ok {
		r.mu.Unlock()
		return ci, nil
	}
	r.mu.Unlock()

	full := filepath.Join(r.Root, path)
	metaBytes, err := os.ReadFile(filepath.Join(full, "meta.json"))
	if err != nil {
		return nil, fmt.Errorf("pyramid: open %s: %w", path, err)
	}

	var m diskMeta
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return nil, fmt.Errorf("pyramid: parse meta for %s: %w", path, err)
	}
	if m.BitsPerChannel != 8 && m.BitsPerChannel != 16 {
		return nil, fmt.Errorf("pyramid: %s: unsupported bits-per-channel %d", path, m.BitsPerChannel)
	}

	st, err := os.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("pyramid: stat %s: %w", path, err)
	}

	ci := &ChannelImage{
		Path:              path,
		FullWidth:         m.ResolutionWidths[len(m.ResolutionWidths)-1],
		FullHeight:        m.ResolutionHeights[len(m.ResolutionHeights)-1],
		TileWidth:         m.TileWidth,
		TileHeight:        m.TileHeight,
		NumResolutions:    m.NumResolutions,
		ResolutionWidths:  m.ResolutionWidths,
		ResolutionHeights: m.ResolutionHeights,
		BitsPerChannel:    m.BitsPerChannel,
		Grayscale:         m.Grayscale,
		Min:               m.Min,
		Max:               m.Max,
		ModTime:           st.ModTime(),
	}

	if icc, err := os.ReadFile(filepath.Join(full, "icc.bin")); err == nil {
		ci.ICC = icc
	}

	r.mu.Lock()
	r.metaCache[path] = ci
	r.mu.Unlock()

	debug("opened %s: %dx%d, %d levels, %d bpc", path, ci.FullWidth, ci.FullHeight, ci.NumResolutions, ci.BitsPerChannel)
	return ci, nil
}

func (r *DiskReader) level(path string, resolution int) (*image.Gray16, error) {
	key := fmt.Sprintf("%s#%d", path, resolution)

	r.mu.Lock()
	if lvl, ok := r.levelCache[key]; ok {
		r.mu.Unlock()
		return lvl, nil
	}
	r.mu.Unlock()

	f, err := os.Open(filepath.Join(r.Root, path, "levels", fmt.Sprintf("%d.png", resolution)))
	if err != nil {
		return nil, fmt.Errorf("pyramid: open level %d of %s: %w", resolution, path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("pyramid: decode level %d of %s: %w", resolution, path, err)
	}

	gray16 := toGray16(img)

	r.mu.Lock()
	r.levelCache[key] = gray16
	r.mu.Unlock()

	return gray16, nil
}

func toGray16(img image.Image) *image.Gray16 {
	if g, ok := img.(*image.Gray16); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray16(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

func (r *DiskReader) Tile(ctx context.Context, path string, resolution, tileIndex int, want Compression) (*RawTile, error) {
	ci, err := r.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	lvl, err := r.level(path, resolution)
	if err != nil {
		return nil, err
	}

	w := ci.WidthAt(resolution)
	ntlx := ceilDiv(w, ci.TileWidth)
	tx := tileIndex % ntlx
	ty := tileIndex / ntlx

	rect := image.Rect(
		tx*ci.TileWidth, ty*ci.TileHeight,
		min(tx*ci.TileWidth+ci.TileWidth, w), min(ty*ci.TileHeight+ci.TileHeight, ci.HeightAt(resolution)),
	)

	return r.rasterize(lvl, rect, ci.BitsPerChannel, resolution, tx, ty, want)
}

func (r *DiskReader) Region(ctx context.Context, path string, resolution, left, top, width, height int) (*RawTile, error) {
	ci, err := r.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	lvl, err := r.level(path, resolution)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(left, top, left+width, top+height)
	return r.rasterize(lvl, rect, ci.BitsPerChannel, resolution, 0, 0, Uncompressed)
}

func (r *DiskReader) rasterize(lvl *image.Gray16, rect image.Rectangle, bpc, resolution, hSeq, vSeq int, want Compression) (*RawTile, error) {
	w := rect.Dx()
	h := rect.Dy()

	if want == Jpeg {
		gray8 := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := lvl.Gray16At(rect.Min.X+x, rect.Min.Y+y)
				gray8.SetGray(x, y, colorGray16To8(c))
			}
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, gray8, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("pyramid: jpeg encode: %w", err)
		}
		return &RawTile{
			Width: w, Height: h, Channels: 1, BitsPerChannel: 8,
			Resolution: resolution, HSequence: hSeq, VSequence: vSeq,
			Compression: Jpeg, Data: buf.Bytes(),
		}, nil
	}

	if bpc == 8 {
		out := make([]byte, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := lvl.Gray16At(rect.Min.X+x, rect.Min.Y+y)
				out[y*w+x] = colorGray16To8(c).Y
			}
		}
		return &RawTile{
			Width: w, Height: h, Channels: 1, BitsPerChannel: 8,
			Resolution: resolution, HSequence: hSeq, VSequence: vSeq,
			Compression: Uncompressed, Data: out,
		}, nil
	}

	out := make([]byte, w*h*2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := lvl.Gray16At(rect.Min.X+x, rect.Min.Y+y)
			i := (y*w + x) * 2
			out[i] = byte(c.Y >> 8)
			out[i+1] = byte(c.Y)
		}
	}
	return &RawTile{
		Width: w, Height: h, Channels: 1, BitsPerChannel: 16,
		Resolution: resolution, HSequence: hSeq, VSequence: vSeq,
		Compression: Uncompressed, Data: out,
	}, nil
}

func colorGray16To8(c color.Gray16) color.Gray {
	return color.Gray{Y: uint8(c.Y >> 8)}
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
