package boost

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/menta2k/emo-check/pkg/types"
)

// gradientGrid builds a smooth multi-color gradient.
func gradientGrid(w, h int) *types.Grid {
	g := types.NewGrid(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			g.Pix[i] = uint8((x * 255) / w)
			g.Pix[i+1] = uint8((y * 255) / h)
			g.Pix[i+2] = uint8(((x + y) * 255) / (w + h))
		}
	}
	return g
}

// distinctColors counts unique RGB triples in a grid.
func distinctColors(g *types.Grid) int {
	seen := make(map[[3]uint8]bool)
	for i := 0; i < len(g.Pix); i += 3 {
		seen[[3]uint8{g.Pix[i], g.Pix[i+1], g.Pix[i+2]}] = true
	}
	return len(seen)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		selector string
		want     string
	}{
		{FilterPixel, "Pixel Art Mode"},
		{FilterY2K, "Y2K Film Mode"},
	}
	for _, test := range tests {
		got, err := DisplayName(test.selector)
		if err != nil {
			t.Errorf("DisplayName(%q) failed: %v", test.selector, err)
			continue
		}
		if got != test.want {
			t.Errorf("DisplayName(%q) = %q, expected %q", test.selector, got, test.want)
		}
	}

	for _, selector := range []string{"", "sepia", "PIXEL", "y2k "} {
		if _, err := DisplayName(selector); !errors.Is(err, types.ErrUnknownFilter) {
			t.Errorf("DisplayName(%q): expected ErrUnknownFilter, got %v", selector, err)
		}
	}
}

func TestApplyUnknownFilter(t *testing.T) {
	_, err := Apply(context.Background(), gradientGrid(16, 16), "vhs")
	if !errors.Is(err, types.ErrUnknownFilter) {
		t.Errorf("Expected ErrUnknownFilter, got %v", err)
	}
}

func TestApplyEmptyGrid(t *testing.T) {
	_, err := Apply(context.Background(), &types.Grid{}, FilterPixel)
	if !errors.Is(err, types.ErrEmptyPixelData) {
		t.Errorf("Expected ErrEmptyPixelData, got %v", err)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	g := gradientGrid(64, 48)
	before := append([]uint8(nil), g.Pix...)

	for _, selector := range []string{FilterPixel, FilterY2K} {
		if _, err := Apply(context.Background(), g, selector); err != nil {
			t.Fatalf("%s failed: %v", selector, err)
		}
		if !bytes.Equal(g.Pix, before) {
			t.Fatalf("%s modified the input grid", selector)
		}
	}
}

func TestPixelateDimensions(t *testing.T) {
	sizes := [][2]int{{128, 96}, {100, 60}, {37, 53}, {8, 8}, {5, 3}}
	for _, size := range sizes {
		out, err := Pixelate(context.Background(), gradientGrid(size[0], size[1]))
		if err != nil {
			t.Fatalf("Pixelate %dx%d failed: %v", size[0], size[1], err)
		}
		if out.W != size[0] || out.H != size[1] {
			t.Errorf("Pixelate %dx%d returned %dx%d", size[0], size[1], out.W, out.H)
		}
	}
}

func TestPixelateColorCount(t *testing.T) {
	out, err := Pixelate(context.Background(), gradientGrid(256, 192))
	if err != nil {
		t.Fatalf("Pixelate failed: %v", err)
	}
	if n := distinctColors(out); n > pixelColors {
		t.Errorf("Pixel art holds %d colors, expected at most %d", n, pixelColors)
	}
}

func TestPixelateBlocks(t *testing.T) {
	out, err := Pixelate(context.Background(), gradientGrid(64, 64))
	if err != nil {
		t.Fatalf("Pixelate failed: %v", err)
	}
	// Every pixel inside one block shares the block's color.
	r0, g0, b0 := out.At(0, 0)
	for y := 0; y < pixelBlock; y++ {
		for x := 0; x < pixelBlock; x++ {
			r, g, b := out.At(x, y)
			if r != r0 || g != g0 || b != b0 {
				t.Fatalf("Block not uniform at (%d,%d)", x, y)
			}
		}
	}
}

func TestPixelateDeterministic(t *testing.T) {
	g := gradientGrid(120, 80)
	a, err := Pixelate(context.Background(), g)
	if err != nil {
		t.Fatalf("Pixelate failed: %v", err)
	}
	b, err := Pixelate(context.Background(), g)
	if err != nil {
		t.Fatalf("Pixelate failed: %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("Pixelate produced different bytes for the same input")
	}
}

func TestPixelateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Pixelate(ctx, gradientGrid(64, 64)); err == nil {
		t.Error("Expected an error from a canceled context")
	}
}

func TestFilmDimensions(t *testing.T) {
	sizes := [][2]int{{128, 96}, {301, 200}, {40, 90}}
	for _, size := range sizes {
		out := Film(gradientGrid(size[0], size[1]))
		if out.W != size[0] || out.H != size[1] {
			t.Errorf("Film %dx%d returned %dx%d", size[0], size[1], out.W, out.H)
		}
	}
}

func TestFilmDeterministic(t *testing.T) {
	g := gradientGrid(160, 120)
	a := Film(g)
	b := Film(g)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("Film produced different bytes for the same input")
	}
}

func TestFilmGrainVariesWithContent(t *testing.T) {
	a := Film(gradientGrid(64, 64))

	shifted := gradientGrid(64, 64)
	shifted.Pix[0] ^= 0xFF
	b := Film(shifted)

	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("Different content produced identical film output")
	}
}

func TestFilmVignetteDarkensCorners(t *testing.T) {
	// Uniform mid-gray: after the grade the frame is flat, so corners
	// must come out darker than the center.
	g := types.NewGrid(201, 201)
	for i := range g.Pix {
		g.Pix[i] = 180
	}
	out := Film(g)

	cr, cg, cb := out.At(100, 100)
	kr, kg, kb := out.At(0, 0)
	center := int(cr) + int(cg) + int(cb)
	corner := int(kr) + int(kg) + int(kb)
	if corner >= center {
		t.Errorf("Corner brightness %d not below center %d", corner, center)
	}
}

func TestFilmStampPresent(t *testing.T) {
	g := types.NewGrid(300, 300) // black frame
	out := Film(g)

	found := false
	for y := 200; y < 300 && !found; y++ {
		for x := 100; x < 300; x++ {
			r, gr, b := out.At(x, y)
			if r > 200 && gr > 90 && gr < 190 && b < 70 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("Date stamp color not found in the bottom-right quadrant")
	}
}

func TestToneLUTMonotone(t *testing.T) {
	lut := toneLUT()
	if lut[0] != 16 {
		t.Errorf("lut[0] = %d, expected lifted black 16", lut[0])
	}
	if lut[255] != 235 {
		t.Errorf("lut[255] = %d, expected compressed white 235", lut[255])
	}
	for i := 1; i < 256; i++ {
		if lut[i] < lut[i-1] {
			t.Fatalf("Tone curve decreases at %d: %d -> %d", i, lut[i-1], lut[i])
		}
	}
}

func TestGaussianFalloffShape(t *testing.T) {
	k := gaussianFalloff(101, 50.5)
	if k[50] < 0.999 {
		t.Errorf("Falloff peak %v not at the center", k[50])
	}
	if k[0] >= k[50] || k[100] >= k[50] {
		t.Error("Falloff edges not below the center")
	}
	for i := 1; i <= 50; i++ {
		if k[i] < k[i-1] {
			t.Fatalf("Falloff not monotone rising toward center at %d", i)
		}
	}
}

func BenchmarkPixelate(b *testing.B) {
	g := gradientGrid(640, 480)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Pixelate(context.Background(), g); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFilm(b *testing.B) {
	g := gradientGrid(640, 480)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Film(g)
	}
}
