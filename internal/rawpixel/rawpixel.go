// Package rawpixel implements the float and integer pixel transforms
// applied to a single-channel tile during preprocessing: normalization,
// hill-shading, color twist, gamma, inversion, color mapping, contrast,
// band flattening, greyscale conversion, binary thresholding, histogram
// equalization, flips, rotations and resampling. Every function takes
// and returns a pixel buffer in place where practical, matching the
// mutate-a-RawTile style of original_source/src/TileBlender.cc's
// processor calls.
package rawpixel

import "math"

// Buffer is a single-channel pixel plane. Values outside Float mode are
// always 8-bit; Float holds the working precision pipeline when present.
type Buffer struct {
	Width, Height int
	Pix           []uint8  // valid once the float pipeline has been collapsed
	Float         []float32 // valid during the [0,1] float pipeline, len == Width*Height
}

// NewBuffer allocates a zeroed 8-bit buffer of the given dimensions.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// ToFloat expands an integer source buffer of the given bit depth into
// the working float pipeline, without yet normalizing.
func ToFloat(src []byte, bitsPerChannel int) []float32 {
	out := make([]float32, 0)
	if bitsPerChannel <= 8 {
		out = make([]float32, len(src))
		for i, v := range src {
			out[i] = float32(v)
		}
		return out
	}
	out = make([]float32, len(src)/2)
	for i := range out {
		v := uint16(src[2*i])<<8 | uint16(src[2*i+1])
		out[i] = float32(v)
	}
	return out
}

// Normalize linearly maps each sample from [min, max] to [0, 1],
// clipping values outside the range. min==max is treated as a
// zero-width range and maps every sample to 0, matching a degenerate
// BlendSetting rather than panicking.
func Normalize(px []float32, min, max float64) {
	span := max - min
	if span == 0 {
		for i := range px {
			px[i] = 0
		}
		return
	}
	fmin := float32(min)
	fspan := float32(span)
	for i, v := range px {
		n := (v - fmin) / fspan
		if n < 0 {
			n = 0
		} else if n > 1 {
			n = 1
		}
		px[i] = n
	}
}

// Shade applies directional hill-shading given a light azimuth and
// elevation in degrees, treating the buffer's own values as a height
// field. This is a simplified Lambertian approximation over the
// 3x3 neighbourhood gradient, in the spirit of
// original_source/src/TileBlender.cc's "Applying hill-shading" step.
func Shade(px []float32, width, height int, azimuth, elevation float64) {
	az := azimuth * math.Pi / 180
	el := elevation * math.Pi / 180
	lx := float32(math.Cos(el) * math.Cos(az))
	ly := float32(math.Cos(el) * math.Sin(az))
	lz := float32(math.Sin(el))

	out := make([]float32, len(px))
	at := func(x, y int) float32 {
		if x < 0 {
			x = 0
		}
		if x >= width {
			x = width - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= height {
			y = height - 1
		}
		return px[y*width+x]
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dzdx := (at(x+1, y) - at(x-1, y)) / 2
			dzdy := (at(x, y+1) - at(x, y-1)) / 2
			nx, ny, nz := -dzdx, -dzdy, float32(1)
			norm := float32(math.Sqrt(float64(nx*nx + ny*ny + nz*nz)))
			if norm == 0 {
				norm = 1
			}
			shade := (nx*lx + ny*ly + nz*lz) / norm
			if shade < 0 {
				shade = 0
			}
			out[y*width+x] = shade
		}
	}
	copy(px, out)
}

// Twist applies a linear color-twist matrix. For single-channel tiles
// this degenerates to a 1x1 scale-and-offset: twist[0][0]*v + twist[0][1].
func Twist(px []float32, twist [][]float64) {
	if len(twist) == 0 || len(twist[0]) == 0 {
		return
	}
	scale := float32(twist[0][0])
	offset := float32(0)
	if len(twist[0]) > 1 {
		offset = float32(twist[0][1])
	}
	for i, v := range px {
		nv := v*scale + offset
		if nv < 0 {
			nv = 0
		} else if nv > 1 {
			nv = 1
		}
		px[i] = nv
	}
}

// Gamma applies value^(1/gamma) to every sample, matching
// original_source's processor->gamma call on normalized [0,1] data.
func Gamma(px []float32, gamma float64) {
	if gamma == 1.0 {
		return
	}
	inv := float32(1.0 / gamma)
	for i, v := range px {
		if v <= 0 {
			continue
		}
		px[i] = float32(math.Pow(float64(v), float64(inv)))
	}
}

// Invert flips every sample around the middle of [0, 1].
func Invert(px []float32) {
	for i, v := range px {
		px[i] = 1 - v
	}
}

// ColorMap is a sentinel for the documented-but-not-implemented false
// colour mapping step. Single-channel blend tiles don't need it before
// tinting, so it is a no-op kept for API completeness; a real lookup
// table step would replace this if ever required on the blend path.
func ColorMap(px []float32, _ string) {}

// Contrast scales [0,1] float samples by contrast and collapses to
// 8-bit, clipping to [0, 255]. A contrast of -1 ("auto") must already
// have been resolved to a concrete scale by the caller.
func Contrast(px []float32, contrast float64) []uint8 {
	out := make([]uint8, len(px))
	c := float32(contrast)
	for i, v := range px {
		scaled := v * c * 255
		if scaled < 0 {
			scaled = 0
		} else if scaled > 255 {
			scaled = 255
		}
		out[i] = uint8(scaled + 0.5)
	}
	return out
}

// Flatten reduces a multi-band interleaved buffer to bands channels (1
// for alpha-channel drop, 3 for multi-band-to-RGB drop of extra bands).
func Flatten(px []uint8, srcChannels, bands int) []uint8 {
	if srcChannels == bands {
		return px
	}
	n := len(px) / srcChannels
	out := make([]uint8, n*bands)
	for i := 0; i < n; i++ {
		for b := 0; b < bands; b++ {
			out[i*bands+b] = px[i*srcChannels+b]
		}
	}
	return out
}

// Greyscale converts an interleaved RGB buffer to single-channel using
// the standard luma weights.
func Greyscale(px []uint8) []uint8 {
	n := len(px) / 3
	out := make([]uint8, n)
	for i := 0; i < n; i++ {
		r := float64(px[i*3])
		g := float64(px[i*3+1])
		b := float64(px[i*3+2])
		out[i] = uint8(0.299*r + 0.587*g + 0.114*b + 0.5)
	}
	return out
}

// Threshold computes Otsu's method threshold from an 8-bit histogram,
// matching original_source's processor->threshold(histogram) step.
// When a run of consecutive thresholds ties for the largest
// between-class variance (an empty gap between two modes), the middle
// of that run is returned.
func Threshold(histogram []uint32) uint8 {
	var total uint64
	for _, c := range histogram {
		total += uint64(c)
	}
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, c := range histogram {
		sumAll += float64(i) * float64(c)
	}

	var wB, sumB float64
	var best float64 = -1
	var bestThresh, lastThresh int
	for t := 0; t < len(histogram); t++ {
		wB += float64(histogram[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(histogram[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			bestThresh = t
			lastThresh = t
		} else if between == best {
			lastThresh = t
		}
	}
	return uint8((bestThresh + lastThresh) / 2)
}

// Binarize maps every sample to 0 or 255 against threshold.
func Binarize(px []uint8, threshold uint8) {
	for i, v := range px {
		if v >= threshold {
			px[i] = 255
		} else {
			px[i] = 0
		}
	}
}

// Equalize applies histogram equalization using a precomputed 256-bin
// histogram, matching original_source's processor->equalize step.
func Equalize(px []uint8, histogram []uint32) {
	if len(histogram) == 0 {
		return
	}
	var total uint64
	for _, c := range histogram {
		total += uint64(c)
	}
	if total == 0 {
		return
	}

	var cdf [256]uint64
	var running uint64
	for i, c := range histogram {
		running += uint64(c)
		cdf[i] = running
	}

	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(float64(cdf[i]) * 255 / float64(total))
	}

	for i, v := range px {
		px[i] = lut[v]
	}
}

// FlipHorizontal mirrors the buffer left-to-right in place.
func FlipHorizontal(px []uint8, width, height int) {
	for y := 0; y < height; y++ {
		row := px[y*width : y*width+width]
		for x := 0; x < width/2; x++ {
			row[x], row[width-1-x] = row[width-1-x], row[x]
		}
	}
}

// FlipVertical mirrors the buffer top-to-bottom in place.
func FlipVertical(px []uint8, width, height int) {
	for y := 0; y < height/2; y++ {
		top := px[y*width : y*width+width]
		bot := px[(height-1-y)*width : (height-1-y)*width+width]
		for x := 0; x < width; x++ {
			top[x], bot[x] = bot[x], top[x]
		}
	}
}

// Rotate90 rotates the buffer 90 degrees clockwise, returning a new
// buffer with swapped dimensions.
func Rotate90(px []uint8, width, height int) ([]uint8, int, int) {
	out := make([]uint8, len(px))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			nx := height - 1 - y
			ny := x
			out[ny*height+nx] = px[y*width+x]
		}
	}
	return out, height, width
}

// Rotate180 rotates the buffer 180 degrees in place.
func Rotate180(px []uint8, width, height int) {
	n := len(px)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		px[i], px[j] = px[j], px[i]
	}
}

// Rotate270 rotates the buffer 270 degrees clockwise (90 CCW),
// returning a new buffer with swapped dimensions.
func Rotate270(px []uint8, width, height int) ([]uint8, int, int) {
	out := make([]uint8, len(px))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			nx := y
			ny := width - 1 - x
			out[ny*height+nx] = px[y*width+x]
		}
	}
	return out, height, width
}

// InterpolateNearest resamples src (width x height) to (dstWidth x
// dstHeight) using nearest-neighbor sampling.
func InterpolateNearest(src []uint8, width, height, dstWidth, dstHeight int) []uint8 {
	out := make([]uint8, dstWidth*dstHeight)
	for y := 0; y < dstHeight; y++ {
		sy := y * height / dstHeight
		if sy >= height {
			sy = height - 1
		}
		for x := 0; x < dstWidth; x++ {
			sx := x * width / dstWidth
			if sx >= width {
				sx = width - 1
			}
			out[y*dstWidth+x] = src[sy*width+sx]
		}
	}
	return out
}

// InterpolateBilinear resamples src (width x height) to (dstWidth x
// dstHeight) using bilinear interpolation. It is the default resampler
// for the region-resize path.
func InterpolateBilinear(src []uint8, width, height, dstWidth, dstHeight int) []uint8 {
	out := make([]uint8, dstWidth*dstHeight)
	if width == 1 && height == 1 {
		for i := range out {
			out[i] = src[0]
		}
		return out
	}

	xRatio := float64(width-1) / float64(maxInt(dstWidth-1, 1))
	yRatio := float64(height-1) / float64(maxInt(dstHeight-1, 1))

	for y := 0; y < dstHeight; y++ {
		sy := float64(y) * yRatio
		y0 := int(sy)
		y1 := minInt(y0+1, height-1)
		fy := sy - float64(y0)

		for x := 0; x < dstWidth; x++ {
			sx := float64(x) * xRatio
			x0 := int(sx)
			x1 := minInt(x0+1, width-1)
			fx := sx - float64(x0)

			p00 := float64(src[y0*width+x0])
			p01 := float64(src[y0*width+x1])
			p10 := float64(src[y1*width+x0])
			p11 := float64(src[y1*width+x1])

			top := p00*(1-fx) + p01*fx
			bot := p10*(1-fx) + p11*fx
			out[y*dstWidth+x] = uint8(top*(1-fy) + bot*fy + 0.5)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Histogram computes a 256-bin histogram over an 8-bit buffer.
func Histogram(px []uint8) []uint32 {
	var h [256]uint32
	for _, v := range px {
		h[v]++
	}
	return h[:]
}
