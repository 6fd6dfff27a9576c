// Package scorer runs the emo scoring models. Two backbones sit
// behind one interface: a ResNet152 and a ViT-B/16, both exported to
// ONNX with a two-class head. Callers pick one with a selector from
// the closed set and get back a 0-100 score.
package scorer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ollama/ollama/model/imageproc"

	"github.com/menta2k/emo-check/pkg/decoder"
	"github.com/menta2k/emo-check/pkg/types"
)

// Model selectors accepted by the pipeline.
const (
	ModelResNet = "resnet"
	ModelViT    = "vit"
)

// DefaultModel is used when a request leaves the selector empty.
const DefaultModel = ModelResNet

// Backbone is one loaded scoring model. Score consumes a preprocessed
// CHW tensor and returns the raw emo probability in [0,1] plus the
// winning-class confidence. Implementations must be safe for
// concurrent calls.
type Backbone interface {
	Name() string
	InputSize() int
	Score(ctx context.Context, input []float32) (raw, confidence float64, err error)
}

// ValidateSelector rejects selectors outside the closed model set
// before any pixel work happens. An empty selector is valid and maps
// to DefaultModel.
func ValidateSelector(selector string) error {
	switch selector {
	case "", ModelResNet, ModelViT:
		return nil
	}
	return fmt.Errorf("%w: %q", types.ErrUnknownModel, selector)
}

// Scorer routes score requests to registered backbones.
type Scorer struct {
	mu        sync.RWMutex
	backbones map[string]Backbone
}

// New creates a Scorer with no backbones; scoring returns
// ErrModelUnavailable until Register is called.
func New() *Scorer {
	return &Scorer{backbones: make(map[string]Backbone)}
}

// Register binds a backbone to a selector, replacing any previous one.
func (s *Scorer) Register(selector string, b Backbone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backbones[selector] = b
}

// Loaded reports which selectors of the closed set have a backbone.
func (s *Scorer) Loaded() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, 2)
	for _, sel := range []string{ModelResNet, ModelViT} {
		_, ok := s.backbones[sel]
		out[sel] = ok
	}
	return out
}

// Score preprocesses the grid for the selected backbone, runs
// inference and maps the raw probability onto the integer scale.
func (s *Scorer) Score(ctx context.Context, g *types.Grid, selector string) (*types.ScoreResult, error) {
	if err := ValidateSelector(selector); err != nil {
		return nil, err
	}
	if selector == "" {
		selector = DefaultModel
	}

	s.mu.RLock()
	b, ok := s.backbones[selector]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrModelUnavailable, selector)
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	input := Preprocess(g, b.InputSize())
	raw, conf, err := b.Score(ctx, input)
	if err != nil {
		return nil, err
	}

	return &types.ScoreResult{
		Score:      ClampScore(raw),
		ModelUsed:  b.Name(),
		RawScore:   raw,
		Confidence: conf,
	}, nil
}

// Close shuts down every registered backbone that holds resources.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	selectors := make([]string, 0, len(s.backbones))
	for sel := range s.backbones {
		selectors = append(selectors, sel)
	}
	sort.Strings(selectors)

	var firstErr error
	for _, sel := range selectors {
		if c, ok := s.backbones[sel].(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(s.backbones, sel)
	}
	return firstErr
}

// ClampScore maps a raw probability onto the 0-100 integer scale.
func ClampScore(raw float64) int {
	score := int(math.Round(raw * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Preprocess resizes a grid to the backbone's native square input and
// applies the channel-first ImageNet normalization the models were
// trained with.
func Preprocess(g *types.Grid, size int) []float32 {
	resized := decoder.ResizeForModel(g, size)
	return imageproc.Normalize(resized.Image(), imageproc.ImageNetDefaultMean, imageproc.ImageNetDefaultSTD, true, true)
}
