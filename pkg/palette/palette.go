// Package palette extracts dominant-color palettes from pixel grids.
package palette

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/menta2k/emo-check/internal/kmeans"
	"github.com/menta2k/emo-check/pkg/types"
)

const (
	// DefaultSwatches is the cluster count; the palette may come back
	// smaller when clusters end up empty.
	DefaultSwatches = 5

	// DefaultMaxSide bounds the clustering input: anything larger is
	// downscaled with area averaging first.
	DefaultMaxSide = 200
)

// Config holds extraction parameters.
type Config struct {
	Swatches int
	MaxSide  int
}

// Extractor computes palettes. Extraction is a pure function of the
// grid, so one Extractor is safe for concurrent use.
type Extractor struct {
	config Config
}

// New creates an Extractor with default parameters.
func New() *Extractor {
	return &Extractor{config: Config{Swatches: DefaultSwatches, MaxSide: DefaultMaxSide}}
}

// NewWithConfig creates an Extractor with custom parameters. Zero
// fields fall back to the defaults.
func NewWithConfig(config Config) *Extractor {
	if config.Swatches <= 0 {
		config.Swatches = DefaultSwatches
	}
	if config.MaxSide <= 0 {
		config.MaxSide = DefaultMaxSide
	}
	return &Extractor{config: config}
}

// Extract clusters the grid's colors and returns swatches ordered by
// descending coverage. Identical grids always produce identical
// palettes.
func (e *Extractor) Extract(ctx context.Context, g *types.Grid) (types.Palette, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	small := shrink(g, e.config.MaxSide)
	res, err := kmeans.Partition(ctx, small.Pix, e.config.Swatches)
	if err != nil {
		return nil, err
	}

	total := small.W * small.H
	swatches := make(types.Palette, 0, e.config.Swatches)
	for i, pop := range res.Populations {
		if pop == 0 {
			continue
		}
		c := res.Centroids[i]
		r := roundChannel(c[0])
		gr := roundChannel(c[1])
		b := roundChannel(c[2])
		swatches = append(swatches, types.Swatch{
			Hex:        fmt.Sprintf("#%02x%02x%02x", r, gr, b),
			RGB:        [3]uint8{r, gr, b},
			Percentage: math.Round(float64(pop)/float64(total)*1000) / 10,
		})
	}

	sortSwatches(swatches)
	return swatches, nil
}

// shrink bounds the longest side with an area-averaging downscale.
// Small grids pass through untouched.
func shrink(g *types.Grid, maxSide int) *types.Grid {
	if g.W <= maxSide && g.H <= maxSide {
		return g
	}
	var out *image.NRGBA
	if g.W >= g.H {
		out = imaging.Resize(g.Image(), maxSide, 0, imaging.Box)
	} else {
		out = imaging.Resize(g.Image(), 0, maxSide, imaging.Box)
	}
	return types.GridFromImage(out)
}

// sortSwatches orders by descending percentage; equal percentages by
// ascending hue, then ascending lightness.
func sortSwatches(p types.Palette) {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Percentage != p[j].Percentage {
			return p[i].Percentage > p[j].Percentage
		}
		hi, _, li := hsl(p[i])
		hj, _, lj := hsl(p[j])
		if hi != hj {
			return hi < hj
		}
		return li < lj
	})
}

func hsl(s types.Swatch) (h, sat, l float64) {
	c := colorful.Color{
		R: float64(s.RGB[0]) / 255,
		G: float64(s.RGB[1]) / 255,
		B: float64(s.RGB[2]) / 255,
	}
	return c.Hsl()
}

func roundChannel(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
