package blendrequest

import "testing"

func TestParseZoomifyTile(t *testing.T) {
	arg := `/data/img/TileGroup0/0-3-2.jpg&{"0":{"lut":"FF0000","min":0,"max":255}}`
	req, err := ParseZoomify(arg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.BasePath != "/data/img" {
		t.Errorf("expected base path /data/img, got %q", req.BasePath)
	}
	if req.Resolution != 0 || req.TileX != 3 || req.TileY != 2 {
		t.Errorf("unexpected tile coords: res=%d x=%d y=%d", req.Resolution, req.TileX, req.TileY)
	}
	if req.Info {
		t.Errorf("expected non-info request")
	}
}

func TestParseZoomifyWithExtension(t *testing.T) {
	arg := `/data/img.tif/TileGroup0/1-0-0.jpg&{}`
	req, err := ParseZoomify(arg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.BasePath != "/data/img" || req.Ext != "tif" {
		t.Errorf("expected base=/data/img ext=tif, got base=%q ext=%q", req.BasePath, req.Ext)
	}
}

func TestParseZoomifyImageProperties(t *testing.T) {
	arg := `/data/img/ImageProperties.xml&{}`
	req, err := ParseZoomify(arg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.Info {
		t.Errorf("expected info request")
	}
	if req.BasePath != "/data/img" {
		t.Errorf("expected base path /data/img, got %q", req.BasePath)
	}
}

func TestParseZoomifyMissingAmpersand(t *testing.T) {
	_, err := ParseZoomify("/data/img/TileGroup0/0-0-0.jpg")
	if err == nil {
		t.Fatal("expected BlendSpecMissing error")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Code != "2 0" {
		t.Errorf("expected code 2 0, got %v", err)
	}
}

func TestParseIIIFFullRequest(t *testing.T) {
	arg := `/data/img.tif/full/full/0/native.jpg&{"0":{"lut":"FF0000","min":0,"max":255}}`
	req, redirect, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redirect != nil {
		t.Fatalf("unexpected redirect")
	}
	if req.BasePath != "/data/img" || req.Ext != "tif" {
		t.Errorf("unexpected base/ext: %q %q", req.BasePath, req.Ext)
	}
	if req.Rotation != 0 || req.Flip != FlipNone {
		t.Errorf("unexpected rotation/flip: %d %d", req.Rotation, req.Flip)
	}
	if req.Quality != QualityColor {
		t.Errorf("expected color quality")
	}
}

func TestParseIIIFInfo(t *testing.T) {
	arg := `/data/img.tif/info.json&{"0":{"lut":"FF0000","min":0,"max":255}}`
	req, redirect, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redirect != nil {
		t.Fatalf("unexpected redirect")
	}
	if !req.Info {
		t.Errorf("expected info request")
	}
}

func TestParseIIIFNoSlashRedirects(t *testing.T) {
	_, redirect, err := ParseIIIF("imgtif", "http://example.org/imgtif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redirect == nil || redirect.Location != "http://example.org/imgtif/info.json" {
		t.Fatalf("expected redirect to info.json, got %+v", redirect)
	}
}

func TestParseIIIFTooManyParameters(t *testing.T) {
	arg := `/data/img.tif/full/full/0/native.jpg/extra&{}`
	_, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err == nil {
		t.Fatal("expected TooManyParameters error")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Kind != "TooManyParameters" {
		t.Errorf("expected TooManyParameters, got %v", err)
	}
}

func TestParseIIIFTooFewParameters(t *testing.T) {
	arg := `/data/img.tif/full/full/0&{}`
	_, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err == nil {
		t.Fatal("expected TooFewParameters error")
	}
	berr, ok := err.(*Error)
	if !ok || berr.Kind != "TooFewParameters" {
		t.Errorf("expected TooFewParameters, got %v", err)
	}
}

func TestParseIIIFBangRotationFoldsToVerticalFlip(t *testing.T) {
	arg := `/data/img.tif/full/full/!180/native.jpg&{}`
	req, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Rotation != 0 || req.Flip != FlipVertical {
		t.Errorf("expected rotation=0 flip=vertical, got rotation=%d flip=%d", req.Rotation, req.Flip)
	}
}

func TestParseIIIFRotation360Canonicalizes(t *testing.T) {
	arg := `/data/img.tif/full/full/360/native.jpg&{}`
	req, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Rotation != 0 {
		t.Errorf("expected rotation 360 to canonicalize to 0, got %d", req.Rotation)
	}
}

func TestParseIIIFInvalidRotation(t *testing.T) {
	arg := `/data/img.tif/full/full/45/native.jpg&{}`
	_, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err == nil {
		t.Fatal("expected InvalidRotation error")
	}
}

func TestParseIIIFGreyQuality(t *testing.T) {
	arg := `/data/img.tif/full/full/0/gray.jpg&{}`
	req, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Quality != QualityGrey {
		t.Errorf("expected grey quality, got %d", req.Quality)
	}
}

func TestParseIIIFSizeWidthOnly(t *testing.T) {
	arg := `/data/img.tif/full/200,/0/native.jpg&{}`
	req, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RequestedWidth != 200 {
		t.Errorf("expected width 200, got %d", req.RequestedWidth)
	}
	if !req.MaintainAspect {
		t.Errorf("expected aspect maintained for width-only size")
	}
}

func TestParseIIIFSizeForcedWH(t *testing.T) {
	arg := `/data/img.tif/full/200,100/0/native.jpg&{}`
	req, _, err := ParseIIIF(arg, "http://example.org/data/img.tif")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.RequestedWidth != 200 || req.RequestedHeight != 100 {
		t.Errorf("unexpected size: %dx%d", req.RequestedWidth, req.RequestedHeight)
	}
	if req.MaintainAspect {
		t.Errorf("expected aspect not maintained for forced w,h size")
	}
}

func TestChannelFilename(t *testing.T) {
	req := &BlendRequest{BasePath: "/data/img", Ext: "tif"}
	if got := req.ChannelFilename(3); got != "/data/img_3.tif" {
		t.Errorf("unexpected filename: %q", got)
	}

	req2 := &BlendRequest{BasePath: "/data/img", Ext: ""}
	if got := req2.ChannelFilename(3); got != "/data/img_3" {
		t.Errorf("unexpected filename without ext: %q", got)
	}
}
