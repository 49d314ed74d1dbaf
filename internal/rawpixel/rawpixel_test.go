package rawpixel

import "testing"

func TestNormalizeClips(t *testing.T) {
	px := []float32{0, 50, 100, 150, 200}
	Normalize(px, 50, 150)
	want := []float32{0, 0, 0.5, 1, 1}
	for i := range want {
		if diff := px[i] - want[i]; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("index %d: got %v want %v", i, px[i], want[i])
		}
	}
}

func TestNormalizeDegenerateRange(t *testing.T) {
	px := []float32{10, 20, 30}
	Normalize(px, 5, 5)
	for i, v := range px {
		if v != 0 {
			t.Errorf("index %d: expected 0 for degenerate range, got %v", i, v)
		}
	}
}

func TestGammaIdentityAtOne(t *testing.T) {
	px := []float32{0.1, 0.5, 0.9}
	orig := append([]float32{}, px...)
	Gamma(px, 1.0)
	for i := range px {
		if px[i] != orig[i] {
			t.Errorf("gamma=1 should be a no-op: got %v want %v", px[i], orig[i])
		}
	}
}

func TestInvert(t *testing.T) {
	px := []float32{0, 0.25, 1}
	Invert(px)
	want := []float32{1, 0.75, 0}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, px[i], want[i])
		}
	}
}

func TestContrastClipsTo8Bit(t *testing.T) {
	px := []float32{0, 0.5, 1}
	out := Contrast(px, 1.0)
	want := []uint8{0, 128, 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, out[i], want[i])
		}
	}
}

func TestFlattenDropsAlpha(t *testing.T) {
	// two pixels, 2 channels each (gray + alpha)
	px := []uint8{10, 255, 20, 128}
	out := Flatten(px, 2, 1)
	want := []uint8{10, 20}
	if len(out) != len(want) {
		t.Fatalf("expected %d bytes, got %d", len(want), len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, out[i], want[i])
		}
	}
}

func TestGreyscaleWeights(t *testing.T) {
	px := []uint8{255, 255, 255} // pure white
	out := Greyscale(px)
	if out[0] != 255 {
		t.Errorf("white should stay 255, got %d", out[0])
	}
}

func TestBinarizeThreshold(t *testing.T) {
	px := []uint8{0, 100, 200, 255}
	Binarize(px, 128)
	want := []uint8{0, 0, 255, 255}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, px[i], want[i])
		}
	}
}

func TestThresholdBimodal(t *testing.T) {
	hist := make([]uint32, 256)
	hist[10] = 100
	hist[240] = 100
	th := Threshold(hist)
	if th < 20 || th > 235 {
		t.Errorf("expected threshold between the two modes, got %d", th)
	}
}

func TestFlipHorizontal(t *testing.T) {
	px := []uint8{1, 2, 3, 4, 5, 6}
	FlipHorizontal(px, 3, 2)
	want := []uint8{3, 2, 1, 6, 5, 4}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, px[i], want[i])
		}
	}
}

func TestFlipVertical(t *testing.T) {
	px := []uint8{1, 2, 3, 4, 5, 6}
	FlipVertical(px, 3, 2)
	want := []uint8{4, 5, 6, 1, 2, 3}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, px[i], want[i])
		}
	}
}

func TestRotate90Dimensions(t *testing.T) {
	// 3 wide x 2 high
	px := []uint8{1, 2, 3, 4, 5, 6}
	out, w, h := Rotate90(px, 3, 2)
	if w != 2 || h != 3 {
		t.Fatalf("expected swapped dims 2x3, got %dx%d", w, h)
	}
	if len(out) != len(px) {
		t.Fatalf("expected same byte count after rotation")
	}
}

func TestRotate180Reverses(t *testing.T) {
	px := []uint8{1, 2, 3, 4}
	Rotate180(px, 2, 2)
	want := []uint8{4, 3, 2, 1}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, px[i], want[i])
		}
	}
}

func TestRotate90Rotate270AreInverses(t *testing.T) {
	px := []uint8{1, 2, 3, 4, 5, 6}
	r90, w1, h1 := Rotate90(px, 3, 2)
	back, w2, h2 := Rotate270(r90, w1, h1)
	if w2 != 3 || h2 != 2 {
		t.Fatalf("expected original dims 3x2, got %dx%d", w2, h2)
	}
	for i := range px {
		if back[i] != px[i] {
			t.Errorf("index %d: got %d want %d", i, back[i], px[i])
		}
	}
}

func TestInterpolateNearestUpscale(t *testing.T) {
	src := []uint8{10, 20, 30, 40}
	out := InterpolateNearest(src, 2, 2, 4, 4)
	if len(out) != 16 {
		t.Fatalf("expected 16 pixels, got %d", len(out))
	}
}

func TestInterpolateBilinearKeepsCorner(t *testing.T) {
	src := []uint8{0, 100, 0, 100}
	out := InterpolateBilinear(src, 2, 2, 2, 2)
	if out[0] != 0 {
		t.Errorf("corner should be unchanged, got %d", out[0])
	}
}

func TestHistogramCounts(t *testing.T) {
	px := []uint8{0, 0, 255, 128}
	h := Histogram(px)
	if h[0] != 2 || h[255] != 1 || h[128] != 1 {
		t.Errorf("unexpected histogram: h[0]=%d h[255]=%d h[128]=%d", h[0], h[255], h[128])
	}
}

func TestEqualizeStretchesFullRange(t *testing.T) {
	hist := make([]uint32, 256)
	hist[50] = 10
	hist[60] = 10
	px := []uint8{50, 60, 50, 60}
	Equalize(px, hist)
	// lut = cdf*255/total: bin 50 holds half the samples, bin 60 all of them.
	want := []uint8{127, 255, 127, 255}
	for i := range want {
		if px[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, px[i], want[i])
		}
	}
}

func TestToFloat8Bit(t *testing.T) {
	out := ToFloat([]byte{0, 128, 255}, 8)
	want := []float32{0, 128, 255}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("index %d: got %v want %v", i, out[i], want[i])
		}
	}
}

func TestToFloat16Bit(t *testing.T) {
	out := ToFloat([]byte{0x01, 0x00}, 16)
	if len(out) != 1 || out[0] != 256 {
		t.Errorf("expected single sample 256, got %v", out)
	}
}
