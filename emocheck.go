// Package emocheck provides emotional scoring and retro boost filters for photos.
//
// This package combines ONNX image classification with deterministic color
// analysis to rate how "emo" a photo feels, decompose that rating into named
// mood components with a short Japanese comment, and optionally re-render the
// photo through nostalgic filters.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		"github.com/menta2k/emo-check"
//		"github.com/menta2k/emo-check/pkg/scorer"
//	)
//
//	func main() {
//		// Initialize the ONNX runtime and load a scoring backbone
//		if err := scorer.InitRuntime(""); err != nil {
//			log.Fatal(err)
//		}
//		defer scorer.ShutdownRuntime()
//
//		backbone, err := scorer.LoadONNX("ResNet152", "models/resnet152.onnx", "models/resnet152.json")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		pipeline := emocheck.New()
//		defer pipeline.Close()
//		pipeline.RegisterBackbone(scorer.ModelResNet, backbone)
//
//		// Analyze a photo
//		data, err := os.ReadFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		result, err := pipeline.Analyze(context.Background(), data, scorer.ModelResNet)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("emo score: %d/100 (%s)\n", result.Score, result.ModelUsed)
//		for _, swatch := range result.Palette {
//			fmt.Printf("  %s %.1f%%\n", swatch.Hex, swatch.Percentage)
//		}
//		fmt.Println(result.Comment)
//
//		// Boost it into a Y2K film still
//		boosted, err := pipeline.Boost(context.Background(), data, "y2k")
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := os.WriteFile("photo_y2k.png", boosted.Image, 0644); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of five main components:
//
// 1. Decoder (pkg/decoder): Sniffs and decodes JPEG, PNG, WebP and HEIC uploads
// 2. Scorer (pkg/scorer): Runs the ONNX backbones and maps logits to an emo score
// 3. Palette (pkg/palette): Clusters pixels into the dominant color swatches
// 4. Mood (pkg/mood): Renders the score as mood components and a templated comment
// 5. Boost (pkg/boost): Pixel art and Y2K film filters
//
// Features:
//
//   - EXIF-aware decoding with automatic orientation correction
//   - Interchangeable scoring backbones (ResNet152 and ViT-B/16)
//   - Deterministic five-color palette via k-means clustering
//   - Mood decomposition with Japanese commentary
//   - Pixel art and Y2K film boost filters with PNG output
//   - HTTP server and CLI tool for batch processing
//
// Every stage downstream of the classifier is deterministic: the same photo
// bytes always produce the same palette, the same mood breakdown, the same
// comment and the same boosted image, so responses can be cached by input
// hash.
package emocheck

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/menta2k/emo-check/pkg/boost"
	"github.com/menta2k/emo-check/pkg/decoder"
	"github.com/menta2k/emo-check/pkg/mood"
	"github.com/menta2k/emo-check/pkg/palette"
	"github.com/menta2k/emo-check/pkg/scorer"
	"github.com/menta2k/emo-check/pkg/types"
)

// Version of the emo-check library
const Version = "1.0.0"

// Pipeline provides a high-level interface for photo analysis and boosting
type Pipeline struct {
	decoder *decoder.Decoder
	palette *palette.Extractor
	scorer  *scorer.Scorer
}

// New creates a new Pipeline with default configuration
func New() *Pipeline {
	return &Pipeline{
		decoder: decoder.New(),
		palette: palette.New(),
		scorer:  scorer.New(),
	}
}

// NewWithConfig creates a new Pipeline with custom configuration
func NewWithConfig(decoderConfig decoder.Config, paletteConfig palette.Config) *Pipeline {
	return &Pipeline{
		decoder: decoder.NewWithConfig(decoderConfig),
		palette: palette.NewWithConfig(paletteConfig),
		scorer:  scorer.New(),
	}
}

// RegisterBackbone attaches a scoring backbone under a model selector.
// Analyze requests naming that selector are served by the backbone.
func (p *Pipeline) RegisterBackbone(selector string, b scorer.Backbone) {
	p.scorer.Register(selector, b)
}

// Models reports which model selectors currently have a backbone loaded.
func (p *Pipeline) Models() map[string]bool {
	return p.scorer.Loaded()
}

// Analyze decodes a photo and produces the full emo report: score, color
// palette, mood components and comment. The model selector picks the scoring
// backbone ("resnet" or "vit"); an empty selector means the default. The
// classifier and the palette clustering run concurrently on the decoded
// pixels, and if either fails the whole analysis fails.
func (p *Pipeline) Analyze(ctx context.Context, data []byte, model string) (*types.AnalyzeResult, error) {
	if err := scorer.ValidateSelector(model); err != nil {
		return nil, err
	}

	grid, err := p.decoder.Decode(data)
	if err != nil {
		return nil, err
	}

	var (
		score *types.ScoreResult
		pal   types.Palette
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		score, err = p.scorer.Score(gctx, grid, model)
		return err
	})
	eg.Go(func() error {
		var err error
		pal, err = p.palette.Extract(gctx, grid)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &types.AnalyzeResult{
		ScoreResult: *score,
		Palette:     pal,
		Components:  mood.Decompose(score.Score),
		Comment:     mood.Comment(score.Score),
	}, nil
}

// Boost decodes a photo, applies the named filter ("pixel" or "y2k") and
// returns the result encoded as PNG.
func (p *Pipeline) Boost(ctx context.Context, data []byte, filter string) (*types.BoostResult, error) {
	display, err := boost.DisplayName(filter)
	if err != nil {
		return nil, err
	}

	grid, err := p.decoder.Decode(data)
	if err != nil {
		return nil, err
	}

	out, err := boost.Apply(ctx, grid, filter)
	if err != nil {
		return nil, err
	}

	encoded, err := decoder.EncodePNG(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode boosted image: %w", err)
	}

	return &types.BoostResult{
		Image:         encoded,
		FilterApplied: display,
	}, nil
}

// AnalyzeFile is a convenience function that reads and analyzes an image file
func (p *Pipeline) AnalyzeFile(ctx context.Context, path, model string) (*types.AnalyzeResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return p.Analyze(ctx, data, model)
}

// BoostFile is a convenience function that reads an image file, applies a
// filter and writes the boosted PNG to outputPath.
func (p *Pipeline) BoostFile(ctx context.Context, inputPath, outputPath, filter string) (*types.BoostResult, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	result, err := p.Boost(ctx, data, filter)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(outputPath, result.Image, 0644); err != nil {
		return nil, fmt.Errorf("failed to write boosted image: %w", err)
	}

	return result, nil
}

// Close releases the scoring backbones and their ONNX sessions.
func (p *Pipeline) Close() error {
	return p.scorer.Close()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
