package blendengine

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/kmlvision/tileblend/internal/blendrequest"
	"github.com/kmlvision/tileblend/internal/blendsettings"
	"github.com/kmlvision/tileblend/internal/pyramid"

	d "github.com/tj/go-debug"
)

var debug = d.Debug("tileblend:blendengine")

// Loader derives per-channel filenames from a BlendRequest and opens
// each one through the pyramidal image reader. Concurrent opens of the
// same path are coalesced with a singleflight.Group, for the
// at-most-one-concurrent-fetch-per-key guarantee groupcache itself
// doesn't cover here (opening fresh metadata rather than fetching a
// cached tile).
type Loader struct {
	Reader pyramid.Reader
	sf     singleflight.Group
}

// NewLoader constructs a Loader over reader.
func NewLoader(reader pyramid.Reader) *Loader {
	return &Loader{Reader: reader}
}

// LoadChannels opens one ChannelImage per BlendSetting, in order, and
// validates each is 1-channel, 8- or 16-bit grayscale.
func (l *Loader) LoadChannels(ctx context.Context, req *blendrequest.BlendRequest, settings []blendsettings.Setting) ([]*pyramid.ChannelImage, error) {
	channels := make([]*pyramid.ChannelImage, len(settings))

	for i, setting := range settings {
		path := req.ChannelFilename(setting.ChannelIndex)

		v, err, _ := l.sf.Do(path, func() (interface{}, error) {
			return l.Reader.Open(ctx, path)
		})
		if err != nil {
			return nil, fmt.Errorf("blendengine: open channel %q: %w", path, err)
		}

		ci := v.(*pyramid.ChannelImage)
		if !ci.Grayscale || (ci.BitsPerChannel != 8 && ci.BitsPerChannel != 16) {
			return nil, errUnsupportedFormat(path)
		}

		debug("loaded channel %d from %q (%dx%d, %d bpc)", setting.ChannelIndex, path, ci.FullWidth, ci.FullHeight, ci.BitsPerChannel)
		channels[i] = ci
	}

	return channels, nil
}
