package boost

import (
	"context"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/emo-check/internal/kmeans"
	"github.com/menta2k/emo-check/pkg/types"
)

const (
	// pixelBlock is the linear downscale factor; every output block of
	// pixelBlock×pixelBlock pixels shares one color.
	pixelBlock = 8

	// pixelColors caps the quantized palette.
	pixelColors = 16
)

// Pixelate renders the grid as pixel art: block-average downscale,
// k-means color quantization, then a hard-edged upscale back to the
// original dimensions.
func Pixelate(ctx context.Context, g *types.Grid) (*types.Grid, error) {
	w := g.W / pixelBlock
	h := g.H / pixelBlock
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	small := types.GridFromImage(imaging.Resize(g.Image(), w, h, imaging.Box))

	res, err := kmeans.Partition(ctx, small.Pix, pixelColors)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(small.Pix)/3; i++ {
		c := res.Centroids[res.Assign[i]]
		small.Pix[i*3+0] = clampChannel(c[0])
		small.Pix[i*3+1] = clampChannel(c[1])
		small.Pix[i*3+2] = clampChannel(c[2])
	}

	big := imaging.Resize(small.Image(), g.W, g.H, imaging.NearestNeighbor)
	return types.GridFromImage(big), nil
}

func clampChannel(v float64) uint8 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > 255 {
		return 255
	}
	return uint8(r)
}
