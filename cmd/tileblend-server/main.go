// Command tileblend-server runs the multi-channel tile-blending image
// server, per cmd/iiif.go's flag/config/router wiring pattern.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/kmlvision/tileblend/internal/blendengine"
	"github.com/kmlvision/tileblend/internal/cache"
	"github.com/kmlvision/tileblend/internal/config"
	"github.com/kmlvision/tileblend/internal/httpserver"
	"github.com/kmlvision/tileblend/internal/pyramid"
)

func main() {
	configFile := flag.String("config", "config.toml", "Define the configuration file to use.")
	flag.Parse()
	if flag.NArg() > 0 {
		*configFile = flag.Arg(0)
	}

	log.Printf("reading configuration from %s", *configFile)
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}

	disk := pyramid.NewDiskReader(cfg.Images)

	tiles, err := cache.NewTileCache("tiles", cfg.Cache.TilesSize, disk)
	if err != nil {
		log.Fatalf("cannot build tile cache: %v", err)
	}
	defer tiles.Close()

	images := cache.NewImageCache("images", cfg.Cache.ImagesSize, disk)
	reader := cache.NewCachedReader(disk, tiles, images)

	engine := blendengine.NewEngine(reader, cfg.AutoContrast, cfg.Interpolation)

	accessLog := httpserver.NewAccessLogger(cfg.AccessLog)
	handler := httpserver.NewRouter(cfg, engine, reader)
	handler = httpserver.WithAccessLog(handler, accessLog)

	listen := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("server running on %s", listen)
	log.Fatal(http.ListenAndServe(listen, handler))
}
