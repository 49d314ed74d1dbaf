package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmlvision/tileblend/internal/blendengine"
	"github.com/kmlvision/tileblend/internal/config"
	"github.com/kmlvision/tileblend/internal/pyramid"
)

// fakeReader mirrors blendengine_test.go's fakeReader so the HTTP layer
// can be exercised without a real pyramid on disk.
type fakeReader struct {
	images map[string]*pyramid.ChannelImage
	pix    map[string][]byte
}

func newFakeReader() *fakeReader {
	return &fakeReader{images: map[string]*pyramid.ChannelImage{}, pix: map[string][]byte{}}
}

func (f *fakeReader) addChannel(path string, width, height, tileWidth, tileHeight int, pix []byte) {
	f.images[path] = &pyramid.ChannelImage{
		Path:              path,
		FullWidth:         width,
		FullHeight:        height,
		TileWidth:         tileWidth,
		TileHeight:        tileHeight,
		NumResolutions:    1,
		ResolutionWidths:  []int{width},
		ResolutionHeights: []int{height},
		BitsPerChannel:    8,
		Grayscale:         true,
		ModTime:           time.Unix(1000, 0),
	}
	f.pix[path] = pix
}

func (f *fakeReader) Open(ctx context.Context, path string) (*pyramid.ChannelImage, error) {
	ci, ok := f.images[path]
	if !ok {
		return nil, &notFoundError{path: path}
	}
	return ci, nil
}

func (f *fakeReader) Tile(ctx context.Context, path string, resolution, tileIndex int, want pyramid.Compression) (*pyramid.RawTile, error) {
	ci := f.images[path]
	return &pyramid.RawTile{
		Width: ci.FullWidth, Height: ci.FullHeight, Channels: 1, BitsPerChannel: ci.BitsPerChannel,
		Resolution: resolution, Compression: pyramid.Uncompressed, Data: f.pix[path],
	}, nil
}

func (f *fakeReader) Region(ctx context.Context, path string, resolution, left, top, width, height int) (*pyramid.RawTile, error) {
	return f.Tile(ctx, path, resolution, 0, pyramid.Uncompressed)
}

type notFoundError struct{ path string }

func (e *notFoundError) Error() string { return "not found: " + e.path }

func testServer() (*fakeReader, http.Handler) {
	reader := newFakeReader()
	reader.addChannel("data/img_0.tif", 1, 1, 256, 256, []byte{200})

	eng := blendengine.NewEngine(reader, false, "bilinear")
	cfg := &config.Config{MaxWidth: 4096, MaxHeight: 4096, CORS: true, Cache: config.CacheConfig{HTTP: 60}}
	return reader, NewRouter(cfg, eng, reader)
}

func TestZoomifyImagePropertiesXML(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/zoomify/data/img.tif/ImageProperties.xml&{}", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `WIDTH="1"`) {
		t.Errorf("expected WIDTH attribute in body, got %q", rr.Body.String())
	}
}

func TestZoomifyTileServesJPEG(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/zoomify/data/img.tif/TileGroup0/0-0-0.jpg&"+
		`{"0":{"lut":"FFFFFF","min":0,"max":255}}`, nil)
	req.Header.Set("Origin", "https://example.org")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("expected CORS header to be set")
	}
}

func TestZoomifyMissingBlendSpecIs400(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/zoomify/data/img.tif/TileGroup0/0-0-0.jpg", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "2 0") {
		t.Errorf("expected IIPImage-style code 2 0 in body, got %q", rr.Body.String())
	}
}

func TestIIIFInfoJSON(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/iiif/data/img.tif/info.json&{}", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/ld+json" {
		t.Errorf("expected application/ld+json, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"@id"`) {
		t.Errorf("expected an @id field, got %q", rr.Body.String())
	}
}

func TestIIIFBareIdentifierRedirects(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/iiif/img.tif", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rr.Code)
	}
	loc := rr.Header().Get("Location")
	if !strings.HasSuffix(loc, "/info.json") {
		t.Errorf("expected redirect to info.json, got %q", loc)
	}
}

func TestIIIFTileServesJPEG(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/iiif/data/img.tif/full/full/0/native.jpg&"+
		`{"0":{"lut":"FFFFFF","min":0,"max":255}}`, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
}

func TestIIIFUnsupportedRegionIs501(t *testing.T) {
	_, handler := testServer()

	req := httptest.NewRequest(http.MethodGet, "/iiif/data/img.tif/10,10,20,20/full/0/native.jpg&"+
		`{"0":{"lut":"FFFFFF","min":0,"max":255}}`, nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d: %s", rr.Code, rr.Body.String())
	}
}
