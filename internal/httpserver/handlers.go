package httpserver

import (
	"net/http"
	"strings"

	"github.com/kmlvision/tileblend/internal/blendrequest"
	"github.com/kmlvision/tileblend/internal/blendsettings"
	"github.com/kmlvision/tileblend/internal/config"
)

// representativeChannel returns the channel index of the first entry in
// req's blend document, used to stand in for the whole blend when an
// info.json/ImageProperties.xml response needs one representative
// channel's dimensions. Blends never mix channel geometry, so any
// participating channel works; an empty or malformed document falls
// back to channel 0.
func representativeChannel(req *blendrequest.BlendRequest) int {
	settings, err := blendsettings.Parse(req.BlendJSON)
	if err != nil || len(settings) == 0 {
		return 0
	}
	return settings[0].ChannelIndex
}

// identifierID rebuilds the image identifier URL (sans any trailing
// "/info.json" the request path carried) from canonicalID's host/scheme
// and the parsed request's base path, for use as the info.json @id.
func identifierID(canonicalID string, req *blendrequest.BlendRequest) string {
	prefixEnd := strings.Index(canonicalID, "/iiif/")
	if prefixEnd < 0 {
		return canonicalID
	}
	base := canonicalID[:prefixEnd+len("/iiif/")]
	stem := strings.TrimPrefix(req.BasePath, "/")
	if req.Ext != "" {
		return base + stem + "." + req.Ext
	}
	return base + stem
}

// zoomifyHandler serves both ImageProperties.xml and tile requests under
// the Zoomify URL grammar.
func zoomifyHandler(w http.ResponseWriter, r *http.Request, argument string) {
	cfg, err := config.WithOverrides(configFrom(r), r.URL.Query())
	if err != nil {
		writeError(w, HTTPError{StatusCode: http.StatusBadRequest, Message: "invalid query override: " + err.Error()})
		return
	}
	eng := engineFrom(r)
	reader := readerFrom(r)

	req, err := blendrequest.ParseZoomify(argument)
	if err != nil {
		writeError(w, err)
		return
	}

	if req.Info {
		ci, err := reader.Open(r.Context(), req.ChannelFilename(representativeChannel(req)))
		if err != nil {
			writeError(w, err)
			return
		}
		writeZoomifyProperties(w, r, ci)
		return
	}

	result, err := eng.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	jpegBytes, err := encodeBlendedJPEG(result.Blended, 85)
	if err != nil {
		writeError(w, err)
		return
	}
	writeImage(w, r, jpegBytes, result.ModTime, cfg.Cache.HTTP)
}

// iiifHandler serves info.json and tile requests under the IIIF URL
// grammar, including the bare-identifier 303 redirect to its info.json
// document.
func iiifHandler(w http.ResponseWriter, r *http.Request, argument, canonicalID string) {
	cfg, err := config.WithOverrides(configFrom(r), r.URL.Query())
	if err != nil {
		writeError(w, HTTPError{StatusCode: http.StatusBadRequest, Message: "invalid query override: " + err.Error()})
		return
	}
	eng := engineFrom(r)
	reader := readerFrom(r)

	req, redirect, err := blendrequest.ParseIIIF(argument, canonicalID)
	if err != nil {
		writeError(w, err)
		return
	}
	if redirect != nil {
		http.Redirect(w, r, redirect.Location, http.StatusSeeOther)
		return
	}

	if req.Info {
		ci, err := reader.Open(r.Context(), req.ChannelFilename(representativeChannel(req)))
		if err != nil {
			writeError(w, err)
			return
		}
		writeIIIFInfo(w, r, identifierID(canonicalID, req), ci, cfg.MaxWidth, cfg.MaxHeight)
		return
	}

	result, err := eng.Dispatch(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	jpegBytes, err := encodeBlendedJPEG(result.Blended, 85)
	if err != nil {
		writeError(w, err)
		return
	}
	writeImage(w, r, jpegBytes, result.ModTime, cfg.Cache.HTTP)
}
