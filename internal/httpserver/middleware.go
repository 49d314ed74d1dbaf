package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	d "github.com/tj/go-debug"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kmlvision/tileblend/internal/blendengine"
	"github.com/kmlvision/tileblend/internal/config"
	"github.com/kmlvision/tileblend/internal/pyramid"
)

var debug = d.Debug("tileblend:httpserver")

// contextKey mirrors iiif/middleware.go's ContextKey.
type contextKey string

const (
	configKey contextKey = "config"
	engineKey contextKey = "engine"
	readerKey contextKey = "reader"
)

// WithServerState injects the shared, process-wide config, blending
// engine and pyramid reader into every request's context, per
// iiif/middleware.go's WithConfig/WithGroupCaches pattern.
func WithServerState(h http.Handler, cfg *config.Config, eng *blendengine.Engine, reader pyramid.Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = context.WithValue(ctx, configKey, cfg)
		ctx = context.WithValue(ctx, engineKey, eng)
		ctx = context.WithValue(ctx, readerKey, reader)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func configFrom(r *http.Request) *config.Config {
	c, _ := r.Context().Value(configKey).(*config.Config)
	return c
}

func engineFrom(r *http.Request) *blendengine.Engine {
	e, _ := r.Context().Value(engineKey).(*blendengine.Engine)
	return e
}

func readerFrom(r *http.Request) pyramid.Reader {
	p, _ := r.Context().Value(readerKey).(pyramid.Reader)
	return p
}

// WithCORS wraps h with an opt-in permissive CORS policy, grounded on
// the pack's own github.com/rs/cors dependency, replacing the
// teacher's hand-rolled Access-Control-Allow-* header writes
// (iiif/view.go's InfoHandler) with the pack's real middleware for the
// same concern.
func WithCORS(h http.Handler, enabled bool) http.Handler {
	if !enabled {
		return h
	}
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	})
	return c.Handler(h)
}

// NewAccessLogger builds a rotating access-log writer per the
// configured path, mirroring janelia-flyem-dvid's dvid/log_local.go
// lumberjack.Logger usage.
func NewAccessLogger(path string) *lumberjack.Logger {
	if path == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename: path,
		MaxSize:  100, // megabytes
		MaxAge:   28,  // days
	}
}

// WithAccessLog records method/path/status/duration per request to
// logger, or does nothing if logger is nil.
func WithAccessLog(h http.Handler, logger *lumberjack.Logger) http.Handler {
	if logger == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(sw, r)
		elapsed := time.Since(start)
		fmtAccessLogLine(logger, r.Method, r.URL.String(), sw.status, elapsed)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

func fmtAccessLogLine(logger *lumberjack.Logger, method, path string, status int, elapsed time.Duration) {
	line := method + " " + path + " " + http.StatusText(status) + " " + elapsed.String() + "\n"
	logger.Write([]byte(line))
}
