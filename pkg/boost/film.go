package boost

import (
	"hash/fnv"
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"

	"github.com/disintegration/gift"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/emo-check/pkg/types"
)

const (
	// grainSigma is the standard deviation of the additive noise at
	// full luminance.
	grainSigma = 12.0

	// vignetteFloor is the darkest corner multiplier; the mask runs
	// from vignetteFloor at the edges to 1 at the center.
	vignetteFloor = 0.4

	// stampText is the burned-in camcorder date. The epoch is part of
	// the look, not a clock: output must not depend on wall time.
	stampText = "'00 01 01"
)

// stampColor is the classic camcorder OSD orange.
var stampColor = color.NRGBA{R: 255, G: 140, B: 0, A: 255}

// Film applies the Y2K camcorder look: a warm faded grade, luminance-
// scaled grain seeded from the image content, a corner vignette with
// amber halation, and the date stamp. Output dimensions match the
// input.
func Film(g *types.Grid) *types.Grid {
	out := grade(g)
	addGrain(out)
	applyVignette(out)
	stampDate(out)
	return out
}

// grade boosts saturation, warms the balance and flattens the tone
// curve the way expired consumer film does.
func grade(g *types.Grid) *types.Grid {
	filt := gift.New(
		gift.Saturation(20),
		gift.ColorBalance(10, 2, -10),
	)
	src := g.Image()
	dst := image.NewNRGBA(filt.Bounds(src.Bounds()))
	filt.Draw(dst, src)

	out := types.GridFromImage(dst)
	lut := toneLUT()
	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

var (
	toneOnce  sync.Once
	toneTable [256]uint8
)

// toneLUT builds the fade curve once: blacks lifted to 16, highlights
// compressed to 235. Monotone by construction.
func toneLUT() *[256]uint8 {
	toneOnce.Do(func() {
		for i := range toneTable {
			toneTable[i] = uint8(math.Round(16 + (235-16)*float64(i)/255))
		}
	})
	return &toneTable
}

// grainSeed derives the noise seed from the graded pixel content, so a
// given frame always develops the same grain.
func grainSeed(pix []uint8) int64 {
	h := fnv.New64a()
	h.Write(pix)
	return int64(h.Sum64())
}

// addGrain layers monochrome Gaussian noise over the grid, scaled up
// in bright regions the way tape noise reads on screen.
func addGrain(g *types.Grid) {
	rng := rand.New(rand.NewSource(grainSeed(g.Pix)))
	for i := 0; i < len(g.Pix); i += 3 {
		r := float64(g.Pix[i])
		gr := float64(g.Pix[i+1])
		b := float64(g.Pix[i+2])

		luma := 0.299*r + 0.587*gr + 0.114*b
		n := rng.NormFloat64() * grainSigma * (0.35 + 0.65*luma/255)

		g.Pix[i] = clampChannel(r + n)
		g.Pix[i+1] = clampChannel(gr + n)
		g.Pix[i+2] = clampChannel(b + n)
	}
}

// applyVignette darkens toward the corners with a separable Gaussian
// falloff and blends faint amber halation into the darkened band.
func applyVignette(g *types.Grid) {
	kx := gaussianFalloff(g.W, 0.5*float64(g.W))
	ky := gaussianFalloff(g.H, 0.5*float64(g.H))

	for y := 0; y < g.H; y++ {
		row := g.Pix[y*g.W*3 : (y+1)*g.W*3]
		for x := 0; x < g.W; x++ {
			mask := kx[x] * ky[y]
			f := vignetteFloor + (1-vignetteFloor)*mask
			glow := (1 - f) * 0.25

			i := x * 3
			row[i+0] = clampChannel(float64(row[i+0])*f + 255*glow)
			row[i+1] = clampChannel(float64(row[i+1])*f + 180*glow)
			row[i+2] = clampChannel(float64(row[i+2])*f + 80*glow)
		}
	}
}

// gaussianFalloff samples a Gaussian centered on the axis, normalized
// to peak at 1 so the image center passes through unchanged.
func gaussianFalloff(n int, sigma float64) []float64 {
	k := make([]float64, n)
	center := (float64(n) - 1) / 2
	peak := 0.0
	for i := range k {
		d := (float64(i) - center) / sigma
		k[i] = math.Exp(-0.5 * d * d)
		if k[i] > peak {
			peak = k[i]
		}
	}
	for i := range k {
		k[i] /= peak
	}
	return k
}

var (
	stampFontOnce sync.Once
	stampFont     *sfnt.Font
	stampFontErr  error
)

// stampDate burns the date into the bottom-right corner: 6% of the
// short side (at least 16px), 3% margin, monospaced.
func stampDate(g *types.Grid) {
	short := g.W
	if g.H < short {
		short = g.H
	}
	size := float64(short) * 0.06
	if size < 16 {
		size = 16
	}
	margin := int(float64(short) * 0.03)

	stampFontOnce.Do(func() {
		stampFont, stampFontErr = opentype.Parse(gomono.TTF)
	})
	if stampFontErr != nil {
		return
	}
	face, err := opentype.NewFace(stampFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return
	}
	defer face.Close()

	img := g.Image()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(stampColor),
		Face: face,
	}

	width := d.MeasureString(stampText).Ceil()
	x := g.W - margin - width
	y := g.H - margin - face.Metrics().Descent.Ceil()
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(stampText)

	copy(g.Pix, types.GridFromImage(img).Pix)
}
