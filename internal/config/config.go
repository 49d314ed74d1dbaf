// Package config decodes the TOML server configuration and applies a
// narrow, allow-listed set of per-request overrides on top of it.
package config

import (
	"net/url"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

// CacheConfig holds the three groupcache pool sizes, given in the TOML
// file as human-readable strings ("512MiB") and resolved to bytes at
// load time.
type CacheConfig struct {
	HTTP       int64  `toml:"http"`
	Images     string `toml:"images"`
	Thumbnails string `toml:"thumbnails"`
	Tiles      string `toml:"tiles"`

	ImagesSize     int64 `toml:"-"`
	ThumbnailsSize int64 `toml:"-"`
	TilesSize      int64 `toml:"-"`
}

// Config is the server's top-level configuration, decoded from a TOML
// file named by the -config flag.
type Config struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Templates string `toml:"templates"`
	Images    string `toml:"images"`

	MaxWidth  int `toml:"maxWidth"`
	MaxHeight int `toml:"maxHeight"`
	MaxArea   int `toml:"maxArea"`

	Interpolation  string `toml:"interpolation"`
	AllowUpscaling bool   `toml:"allowUpscaling"`
	AutoContrast   bool   `toml:"autoContrast"`

	CORS bool `toml:"cors"`

	AccessLog string `toml:"accessLog"`

	Cache CacheConfig `toml:"cache"`
}

// overrideKeys is the allow-list of query-string parameters a request
// may use to override Config fields; anything else in the query string
// is ignored rather than rejected.
var overrideKeys = map[string]bool{
	"maxWidth":       true,
	"maxHeight":      true,
	"allowUpscaling": true,
}

// Load reads and decodes a TOML configuration file, resolving the
// human-readable cache sizes to bytes.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	if cfg.Interpolation == "" {
		cfg.Interpolation = "bilinear"
	}

	iS, err := bytefmt.ToBytes(cfg.Cache.Images)
	if err != nil {
		return nil, err
	}
	tS, err := bytefmt.ToBytes(cfg.Cache.Thumbnails)
	if err != nil {
		return nil, err
	}
	lS, err := bytefmt.ToBytes(cfg.Cache.Tiles)
	if err != nil {
		return nil, err
	}
	cfg.Cache.ImagesSize = int64(iS)
	cfg.Cache.ThumbnailsSize = int64(tS)
	cfg.Cache.TilesSize = int64(lS)

	return &cfg, nil
}

// WithOverrides returns a copy of cfg with any allow-listed fields
// present in query replaced, never mutating cfg itself: the process-wide
// Config is shared across concurrent requests and must stay read-only.
func WithOverrides(cfg *Config, query url.Values) (*Config, error) {
	overrides := map[string]interface{}{}
	if v := query.Get("maxWidth"); v != "" && overrideKeys["maxWidth"] {
		if n, err := strconv.Atoi(v); err == nil {
			overrides["MaxWidth"] = n
		}
	}
	if v := query.Get("maxHeight"); v != "" && overrideKeys["maxHeight"] {
		if n, err := strconv.Atoi(v); err == nil {
			overrides["MaxHeight"] = n
		}
	}
	if v := query.Get("allowUpscaling"); v != "" && overrideKeys["allowUpscaling"] {
		if b, err := strconv.ParseBool(v); err == nil {
			overrides["AllowUpscaling"] = b
		}
	}

	if len(overrides) == 0 {
		return cfg, nil
	}

	scoped := *cfg
	if err := mapstructure.Decode(overrides, &scoped); err != nil {
		return nil, err
	}
	return &scoped, nil
}
