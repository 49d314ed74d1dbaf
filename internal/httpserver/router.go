package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kmlvision/tileblend/internal/blendengine"
	"github.com/kmlvision/tileblend/internal/config"
	"github.com/kmlvision/tileblend/internal/pyramid"
)

// NewRouter builds the top-level handler. /zoomify/ and /iiif/ are
// distinct prefixes so a blend request can never be mistaken for the
// other protocol, mirroring iiif/server.go's MakeRouter one-route-per-
// URL-shape structure.
func NewRouter(cfg *config.Config, eng *blendengine.Engine, reader pyramid.Reader) http.Handler {
	router := mux.NewRouter()

	// rest never gains a leading slash here: a bare identifier with zero
	// slashes anywhere (e.g. "img.tif") must reach blendrequest.ParseIIIF
	// exactly that way for its no-slash redirect test to fire.
	router.HandleFunc("/zoomify/{rest:.*}", func(w http.ResponseWriter, r *http.Request) {
		zoomifyHandler(w, r, mux.Vars(r)["rest"])
	})

	router.HandleFunc("/iiif/{rest:.*}", func(w http.ResponseWriter, r *http.Request) {
		iiifHandler(w, r, mux.Vars(r)["rest"], canonicalID(r))
	})

	// Serving single-channel images outside the blend domain is out of
	// scope here -- no root-mounted handler is registered for them.

	var handler http.Handler = router
	handler = WithServerState(handler, cfg, eng, reader)
	handler = WithCORS(handler, cfg.CORS)
	return handler
}

// canonicalID derives the @id URL IIIF info.json documents and bare-
// identifier redirects use, honoring reverse-proxy headers the way
// iiif/view.go's RedirectHandler does.
func canonicalID(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := r.Host
	if fh := r.Header.Get("X-Forwarded-Host"); fh != "" {
		host = fh
	}

	return scheme + "://" + host + r.URL.Path
}
