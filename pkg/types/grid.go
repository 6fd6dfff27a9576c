package types

import (
	"fmt"
	"image"
)

// Grid is a decoded image: interleaved 8-bit RGB, row-major, no alpha.
// len(Pix) == W*H*3. Pipeline stages treat grids as immutable inputs
// and return fresh ones.
type Grid struct {
	W, H int
	Pix  []uint8
}

// NewGrid allocates a zeroed w×h grid.
func NewGrid(w, h int) *Grid {
	return &Grid{W: w, H: h, Pix: make([]uint8, w*h*3)}
}

// GridFromImage converts a decoded image to a grid, dropping alpha.
// Callers flatten transparency first; for the fast paths below the
// alpha channel is simply skipped.
func GridFromImage(img image.Image) *Grid {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := NewGrid(w, h)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * w * 3
			for x := 0; x < w; x++ {
				g.Pix[di+0] = src.Pix[si+0]
				g.Pix[di+1] = src.Pix[si+1]
				g.Pix[di+2] = src.Pix[si+2]
				si += 4
				di += 3
			}
		}
	case *image.RGBA:
		for y := 0; y < h; y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			di := y * w * 3
			for x := 0; x < w; x++ {
				g.Pix[di+0] = src.Pix[si+0]
				g.Pix[di+1] = src.Pix[si+1]
				g.Pix[di+2] = src.Pix[si+2]
				si += 4
				di += 3
			}
		}
	default:
		di := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, gc, bc, _ := img.At(x, y).RGBA()
				g.Pix[di+0] = uint8(r >> 8)
				g.Pix[di+1] = uint8(gc >> 8)
				g.Pix[di+2] = uint8(bc >> 8)
				di += 3
			}
		}
	}
	return g
}

// Validate reports whether the grid holds usable pixel data.
func (g *Grid) Validate() error {
	if g == nil || g.W <= 0 || g.H <= 0 || len(g.Pix) == 0 {
		return ErrEmptyPixelData
	}
	if len(g.Pix) != g.W*g.H*3 {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrEmptyPixelData, len(g.Pix), g.W, g.H)
	}
	return nil
}

// At returns the pixel at (x, y). Bounds are the caller's problem.
func (g *Grid) At(x, y int) (r, gr, b uint8) {
	i := (y*g.W + x) * 3
	return g.Pix[i], g.Pix[i+1], g.Pix[i+2]
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{W: g.W, H: g.H, Pix: make([]uint8, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

// Image renders the grid as an opaque NRGBA image.
func (g *Grid) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, g.W, g.H))
	for di, si := 0, 0; si < len(g.Pix); di, si = di+4, si+3 {
		img.Pix[di+0] = g.Pix[si+0]
		img.Pix[di+1] = g.Pix[si+1]
		img.Pix[di+2] = g.Pix[si+2]
		img.Pix[di+3] = 0xff
	}
	return img
}
