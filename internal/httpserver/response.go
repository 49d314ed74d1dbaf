package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kmlvision/tileblend/internal/pyramid"
)

// iiifProfile and iiifImage mirror iiif/types.go's ImageProfile/Image,
// narrowed to the fields the blend info.json document actually needs.
type iiifProfile struct {
	Context   string   `json:"@context,omitempty"`
	Type      string   `json:"@type,omitempty"`
	Formats   []string `json:"formats"`
	Qualities []string `json:"qualities"`
	Supports  []string `json:"supports,omitempty"`
	MaxWidth  int      `json:"maxWidth,omitempty"`
	MaxHeight int      `json:"maxHeight,omitempty"`
}

type iiifSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type iiifTile struct {
	ScaleFactors []int `json:"scaleFactors"`
	Width        int   `json:"width"`
	Height       int   `json:"height"`
}

type iiifImage struct {
	Context  string        `json:"@context"`
	ID       string        `json:"@id"`
	Type     string        `json:"@type,omitempty"`
	Protocol string        `json:"protocol"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Profile  []interface{} `json:"profile"`
	Sizes    []iiifSize    `json:"sizes,omitempty"`
	Tiles    []iiifTile    `json:"tiles,omitempty"`
}

// writeIIIFInfo emits the IIIF info.json document for ci, addressed by
// id (the canonical @id URL).
func writeIIIFInfo(w http.ResponseWriter, r *http.Request, id string, ci *pyramid.ChannelImage, maxWidth, maxHeight int) {
	var sizes []iiifSize
	for i := 0; i < ci.NumResolutions; i++ {
		sizes = append(sizes, iiifSize{Width: ci.ResolutionWidths[i], Height: ci.ResolutionHeights[i]})
	}

	scaleFactors := make([]int, ci.NumResolutions)
	for i := range scaleFactors {
		scaleFactors[i] = 1 << i
	}

	doc := iiifImage{
		Context:  "http://iiif.io/api/image/2/context.json",
		ID:       id,
		Type:     "iiif:Image",
		Protocol: "http://iiif.io/api/image",
		Width:    ci.FullWidth,
		Height:   ci.FullHeight,
		Sizes:    sizes,
		Tiles: []iiifTile{{
			ScaleFactors: scaleFactors,
			Width:        ci.TileWidth,
			Height:       ci.TileHeight,
		}},
		Profile: []interface{}{
			"http://iiif.io/api/image/2/level2.json",
			&iiifProfile{
				Context:   "http://iiif.io/api/image/2/context.json",
				Type:      "iiif:ImageProfile",
				Formats:   []string{"jpg"},
				Qualities: []string{"native", "color", "gray", "bitonal"},
				Supports: []string{
					"regionByPct",
					"regionSquare",
					"sizeByForcedWh",
					"sizeByWh",
					"sizeAboveFull",
					"rotationBy90s",
					"mirroring",
				},
				MaxWidth:  maxWidth,
				MaxHeight: maxHeight,
			},
		},
	}

	buffer, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		writeError(w, HTTPError{StatusCode: http.StatusInternalServerError, Message: "cannot build info.json"})
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/ld+json")
	http.ServeContent(w, r, "info.json", ci.ModTime, bytes.NewReader(buffer))
}

// writeZoomifyProperties emits the one-line Zoomify ImageProperties.xml
// document for ci.
func writeZoomifyProperties(w http.ResponseWriter, r *http.Request, ci *pyramid.ChannelImage) {
	numTiles := tileCount(ci.FullWidth, ci.TileWidth) * tileCount(ci.FullHeight, ci.TileWidth)
	body := fmt.Sprintf(
		`<IMAGE_PROPERTIES WIDTH="%d" HEIGHT="%d" NUMTILES="%d" NUMIMAGES="1" VERSION="1.8" TILESIZE="%d" />`,
		ci.FullWidth, ci.FullHeight, numTiles, ci.TileWidth,
	)

	w.Header().Set("Content-Type", "application/xml")
	http.ServeContent(w, r, "ImageProperties.xml", ci.ModTime, bytes.NewReader([]byte(body)))
}

func tileCount(dim, tile int) int {
	if tile <= 0 {
		return 0
	}
	return (dim + tile - 1) / tile
}

// writeImage emits a blended JPEG tile with Server, X-Powered-By,
// Content-Type, Content-Length, Last-Modified and a cache-control
// header. Any CORS header is added upstream by WithCORS, not here.
func writeImage(w http.ResponseWriter, r *http.Request, jpegBytes []byte, modTime time.Time, cacheMaxAge int64) {
	header := w.Header()
	header.Set("Server", "tileblend/1.0")
	header.Set("X-Powered-By", "tileblend")
	header.Set("Content-Type", "image/jpeg")
	header.Set("Cache-Control", fmt.Sprintf("max-age=%d, public", cacheMaxAge))
	http.ServeContent(w, r, "tile.jpg", modTime, bytes.NewReader(jpegBytes))
}
