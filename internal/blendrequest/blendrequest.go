// Package blendrequest parses the two competing URL syntaxes — Zoomify
// and IIIF — into a shared BlendRequest, and splits the blend JSON
// fragment from the protocol-specific parameter string.
package blendrequest

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol discriminates which URL grammar produced a BlendRequest.
type Protocol int

const (
	Zoomify Protocol = iota
	IIIF
)

// Flip enumerates the mirroring states a request may carry.
type Flip int

const (
	FlipNone Flip = iota
	FlipHorizontal
	FlipVertical
)

// Quality is the requested output colorspace/quality.
type Quality int

const (
	QualityColor Quality = iota
	QualityGrey
	QualityBinary
)

// Error is a blendrequest-level failure, carrying the IIPImage-style
// two-digit error code where one applies.
type Error struct {
	Kind    string
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errf(kind, code, format string, args ...interface{}) error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Redirect is returned instead of a BlendRequest when the IIIF URL has
// no slashes at all and must 303-redirect to its info.json.
type Redirect struct {
	Location string
}

// BlendRequest is the parsed form of either protocol's URL.
type BlendRequest struct {
	Protocol Protocol

	BasePath string // filename stem before the channel-index suffix
	Ext      string // optional extension, e.g. "tif"; "" if none

	Info bool // true for ImageProperties.xml / info.json requests

	Resolution int
	TileX      int
	TileY      int

	RegionSet                    bool
	Left, Top, Width, Height     int // pixels, region path only

	RequestedWidth, RequestedHeight int
	MaintainAspect                  bool

	Rotation int // one of 0, 90, 180, 270 (360 canonicalized to 0)
	Flip     Flip

	Quality Quality
	Format  string // must be "jpg"

	BlendJSON []byte
}

// splitBlendJSON separates the protocol argument string from the JSON
// blend settings document carried after the first "&".
func splitBlendJSON(argument string) (string, []byte, error) {
	idx := strings.IndexByte(argument, '&')
	if idx < 0 {
		return "", nil, errf("BlendSpecMissing", "2 0", "no blend JSON separator in %q", argument)
	}
	return argument[:idx], []byte(argument[idx+1:]), nil
}

// ParseZoomify parses a Zoomify-shaped argument string, per
// original_source/src/ZoomifyBlend.cc's suffix/tokenizer logic.
func ParseZoomify(argument string) (*BlendRequest, error) {
	params, blendJSON, err := splitBlendJSON(argument)
	if err != nil {
		return nil, err
	}

	lastSlash := strings.LastIndexByte(params, '/')
	suffix := params
	if lastSlash >= 0 {
		suffix = params[lastSlash+1:]
	}

	req := &BlendRequest{Protocol: Zoomify, BlendJSON: blendJSON, Format: "jpg"}

	if suffix == "ImageProperties.xml" {
		req.Info = true
		prefix := params
		if lastSlash >= 0 {
			prefix = params[:lastSlash]
		}
		req.BasePath, req.Ext = splitExt(prefix)
		return req, nil
	}

	tgIdx := strings.Index(params, "TileGroup")
	if tgIdx <= 0 {
		return nil, errf("InvalidRegion", "2 1", "zoomify request missing TileGroup segment: %q", params)
	}
	prefix := strings.TrimSuffix(params[:tgIdx], "/")
	req.BasePath, req.Ext = splitExt(prefix)

	tile := strings.TrimSuffix(suffix, ".jpg")
	parts := strings.Split(tile, "-")
	if len(parts) != 3 {
		return nil, errf("InvalidRegion", "2 1", "malformed tile spec %q", suffix)
	}
	r, err1 := strconv.Atoi(parts[0])
	x, err2 := strconv.Atoi(parts[1])
	y, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, errf("InvalidRegion", "2 1", "non-numeric tile spec %q", suffix)
	}
	req.Resolution, req.TileX, req.TileY = r, x, y
	req.MaintainAspect = true

	return req, nil
}

func splitExt(prefix string) (base, ext string) {
	dot := strings.LastIndexByte(prefix, '.')
	slash := strings.LastIndexByte(prefix, '/')
	if dot > slash {
		return prefix[:dot], prefix[dot+1:]
	}
	return prefix, ""
}

// ParseIIIF parses an IIIF-shaped argument string, per
// original_source/src/IIIFBlend.cc. When the URL has no slash at all it
// returns a *Redirect instead of a *BlendRequest.
func ParseIIIF(argument, canonicalID string) (*BlendRequest, *Redirect, error) {
	lastSlash := strings.LastIndexByte(argument, '/')
	if lastSlash < 0 {
		return nil, &Redirect{Location: canonicalID + "/info.json"}, nil
	}

	params, blendJSON, err := splitBlendJSON(argument)
	if err != nil {
		return nil, nil, err
	}
	lastSlash = strings.LastIndexByte(params, '/')
	suffix := params[lastSlash+1:]

	req := &BlendRequest{Protocol: IIIF, BlendJSON: blendJSON, Format: "jpg", MaintainAspect: true}

	tifIdx := strings.Index(params, ".tif")
	if tifIdx < 0 {
		return nil, nil, errf("InvalidRegion", "2 1", "IIIF identifier %q does not end in .tif", params)
	}
	req.BasePath = params[:tifIdx]
	req.Ext = "tif"

	if strings.HasPrefix(suffix, "info") {
		req.Info = true
		return req, nil, nil
	}

	// The four IIIF tokens live between the identifier and the suffix;
	// re-tokenize from the portion after ".tif/".
	rest := strings.TrimPrefix(params[tifIdx+len(".tif"):], "/")
	tokens := strings.Split(rest, "/")

	if len(tokens) > 4 {
		return nil, nil, errf("TooManyParameters", "2 1", "too many IIIF parameters in %q", rest)
	}
	if len(tokens) < 4 {
		return nil, nil, errf("TooFewParameters", "2 1", "too few IIIF parameters in %q", rest)
	}

	if err := parseIIIFRegion(tokens[0], req); err != nil {
		return nil, nil, err
	}
	if err := parseIIIFSize(tokens[1], req); err != nil {
		return nil, nil, err
	}
	if err := parseIIIFRotation(tokens[2], req); err != nil {
		return nil, nil, err
	}
	if err := parseIIIFQuality(tokens[3], req); err != nil {
		return nil, nil, err
	}

	return req, nil, nil
}

func parseIIIFRegion(tok string, req *BlendRequest) error {
	s := strings.ToLower(tok)

	switch {
	case s == "full":
		return nil
	case s == "square":
		// Blending never implements region requests; square is rejected
		// the same way a pixel region would be, by the dispatcher's
		// UnsupportedRegion path, not here.
		req.RegionSet = true
		return nil
	default:
	}

	isPct := false
	if strings.HasPrefix(s, "pct:") {
		isPct = true
		s = s[4:]
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return errf("InvalidRegion", "2 1", "region %q does not have four components", tok)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return errf("InvalidRegion", "2 1", "region %q has non-numeric component %q", tok, p)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return errf("InvalidRegion", "2 1", "region %q has non-positive width/height", tok)
	}

	req.RegionSet = true
	if isPct {
		req.Left = int(vals[0])
		req.Top = int(vals[1])
		req.Width = int(vals[2])
		req.Height = int(vals[3])
	} else {
		req.Left = int(vals[0])
		req.Top = int(vals[1])
		req.Width = int(vals[2])
		req.Height = int(vals[3])
	}
	return nil
}

func parseIIIFSize(tok string, req *BlendRequest) error {
	s := strings.ToLower(tok)

	if s == "full" || s == "max" {
		return nil
	}

	if strings.HasPrefix(s, "pct:") {
		_, err := strconv.ParseFloat(s[4:], 64)
		if err != nil {
			return errf("InvalidSize", "2 1", "size %q has invalid scale", tok)
		}
		return nil
	}

	if strings.HasPrefix(s, "!") {
		s = s[1:]
	} else {
		req.MaintainAspect = false
	}

	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return errf("InvalidSize", "2 1", "size %q has no comma", tok)
	}

	switch {
	case comma == 0:
		h, err := strconv.Atoi(s[1:])
		if err != nil {
			return errf("InvalidSize", "2 1", "size %q has invalid height", tok)
		}
		req.RequestedHeight = h
		req.MaintainAspect = true
	case comma == len(s)-1:
		w, err := strconv.Atoi(s[:comma])
		if err != nil {
			return errf("InvalidSize", "2 1", "size %q has invalid width", tok)
		}
		req.RequestedWidth = w
		req.MaintainAspect = true
	default:
		w, err1 := strconv.Atoi(s[:comma])
		h, err2 := strconv.Atoi(s[comma+1:])
		if err1 != nil || err2 != nil {
			return errf("InvalidSize", "2 1", "size %q has invalid width/height", tok)
		}
		req.RequestedWidth, req.RequestedHeight = w, h
	}

	if req.RequestedWidth == 0 && req.RequestedHeight == 0 {
		return errf("InvalidSize", "2 1", "size %q resolves to zero", tok)
	}
	return nil
}

func parseIIIFRotation(tok string, req *BlendRequest) error {
	s := tok
	flip := FlipNone
	if strings.HasPrefix(s, "!") {
		flip = FlipHorizontal
		s = s[1:]
	}

	rotation, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errf("InvalidRotation", "2 1", "rotation %q is not numeric", tok)
	}

	r := int(rotation) % 360
	if r < 0 {
		r += 360
	}
	switch r {
	case 0, 90, 180, 270:
	default:
		return errf("InvalidRotation", "2 1", "rotation %q not in {0,90,180,270,360}", tok)
	}

	// rotation==360 canonicalizes to 0.
	if flip == FlipHorizontal && r == 180 {
		req.Flip = FlipVertical
		req.Rotation = 0
	} else {
		req.Flip = flip
		req.Rotation = r
	}
	return nil
}

func parseIIIFQuality(tok string, req *BlendRequest) error {
	s := strings.ToLower(tok)
	req.Format = "jpg"

	dot := strings.LastIndexByte(s, '.')
	if dot >= 0 {
		ext := s[dot+1:]
		if ext != "jpg" {
			return errf("InvalidRegion", "2 1", "only jpg output is supported, got %q", ext)
		}
		s = s[:dot]
	}

	switch s {
	case "native", "color", "default":
		req.Quality = QualityColor
	case "grey", "gray":
		req.Quality = QualityGrey
	case "bitonal":
		req.Quality = QualityBinary
	default:
		return errf("InvalidRegion", "2 1", "unsupported quality %q", tok)
	}
	return nil
}

// ChannelFilename derives the per-channel source path for channelIndex:
// BasePath with "_<index>" appended before the extension, if any.
func (r *BlendRequest) ChannelFilename(channelIndex int) string {
	if r.Ext == "" {
		return fmt.Sprintf("%s_%d", r.BasePath, channelIndex)
	}
	return fmt.Sprintf("%s_%d.%s", r.BasePath, channelIndex, r.Ext)
}
