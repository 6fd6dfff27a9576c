// Package boost renders stylistic re-interpretations of a photo. Both
// filters are deterministic: the same input grid always produces the
// same output bytes, so results are cacheable by image hash.
package boost

import (
	"context"
	"fmt"

	"github.com/menta2k/emo-check/pkg/types"
)

// Filter selectors accepted by the pipeline.
const (
	FilterPixel = "pixel"
	FilterY2K   = "y2k"
)

// DisplayName maps a selector to the name reported with results.
// Unknown selectors fail here, before any pixel work.
func DisplayName(selector string) (string, error) {
	switch selector {
	case FilterPixel:
		return "Pixel Art Mode", nil
	case FilterY2K:
		return "Y2K Film Mode", nil
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnknownFilter, selector)
}

// Apply runs the selected filter and returns a new grid of the same
// dimensions. The input grid is never modified.
func Apply(ctx context.Context, g *types.Grid, selector string) (*types.Grid, error) {
	if _, err := DisplayName(selector); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch selector {
	case FilterPixel:
		return Pixelate(ctx, g)
	default:
		return Film(g), nil
	}
}
