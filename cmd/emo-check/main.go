package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	emocheck "github.com/menta2k/emo-check"
	"github.com/menta2k/emo-check/internal/config"
	"github.com/menta2k/emo-check/internal/server"
	"github.com/menta2k/emo-check/internal/utils"
	"github.com/menta2k/emo-check/pkg/decoder"
	"github.com/menta2k/emo-check/pkg/palette"
	"github.com/menta2k/emo-check/pkg/scorer"
)

func main() {
	var configPath, addr, in, outDir, model, filter string
	var serve bool

	flag.StringVar(&configPath, "config", "", "config file path (default ~/.config/emo-check/config.json)")
	flag.BoolVar(&serve, "serve", false, "run the HTTP API server")
	flag.StringVar(&addr, "addr", "", "listen address for -serve (overrides config and PORT)")
	flag.StringVar(&in, "in", "", "input image path or directory")
	flag.StringVar(&outDir, "out", "out", "output directory for boosted images")
	flag.StringVar(&model, "model", "", "scoring model: resnet|vit (default resnet)")
	flag.StringVar(&filter, "boost", "", "apply a filter instead of analyzing: pixel|y2k")
	flag.Parse()

	if !serve && in == "" {
		log.Fatalf("usage: %s -serve | -in photo.jpg|dir [-model resnet|vit] [-boost pixel|y2k] [-out outdir]",
			filepath.Base(os.Args[0]))
	}

	cfg := loadConfig(configPath)

	pipeline := emocheck.NewWithConfig(
		decoder.Config{MaxPixels: cfg.Decoder.MaxPixels},
		palette.Config{Swatches: cfg.Palette.Swatches, MaxSide: cfg.Palette.MaxSide},
	)

	loadBackbones(cfg, pipeline)
	defer scorer.ShutdownRuntime()
	defer pipeline.Close()

	if serve {
		runServer(cfg, pipeline, addr)
		return
	}

	files := collectInputs(in)
	ctx := context.Background()

	if filter != "" {
		runBoost(ctx, pipeline, files, outDir, filter)
		return
	}

	runAnalyze(ctx, pipeline, files, model)
}

// loadConfig reads the config file, falling back to defaults when no
// file exists at the default location.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			return config.Default()
		}
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Loaded config from %s", path)
	return cfg
}

// loadBackbones initializes the ONNX runtime and loads both scoring
// models. Startup fails hard if either model cannot be loaded, so a
// running process always serves every advertised selector.
func loadBackbones(cfg *config.Config, pipeline *emocheck.Pipeline) {
	if err := scorer.InitRuntime(cfg.Models.RuntimeLibrary); err != nil {
		log.Fatalf("Failed to initialize ONNX runtime: %v", err)
	}

	resnet, err := scorer.LoadONNX("ResNet152", cfg.Models.ResNetPath, cfg.Models.ResNetMetadata)
	if err != nil {
		log.Fatalf("Failed to load ResNet152: %v", err)
	}
	pipeline.RegisterBackbone(scorer.ModelResNet, resnet)
	log.Printf("Loaded ResNet152 from %s", cfg.Models.ResNetPath)

	vit, err := scorer.LoadONNX("ViT-B/16", cfg.Models.ViTPath, cfg.Models.ViTMetadata)
	if err != nil {
		log.Fatalf("Failed to load ViT-B/16: %v", err)
	}
	pipeline.RegisterBackbone(scorer.ModelViT, vit)
	log.Printf("Loaded ViT-B/16 from %s", cfg.Models.ViTPath)
}

func runServer(cfg *config.Config, pipeline *emocheck.Pipeline, addrFlag string) {
	addr := addrFlag
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = cfg.Server.Addr()
		}
	}

	srv := server.New(pipeline, cfg.Server.MaxUploadBytes)
	if err := srv.Run(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// collectInputs resolves -in to a list of image files.
func collectInputs(in string) []string {
	if utils.DirExists(in) {
		files, err := utils.ListImageFiles(in)
		if err != nil {
			log.Fatalf("Failed to scan %s: %v", in, err)
		}
		if len(files) == 0 {
			log.Fatalf("No image files found in %s", in)
		}
		return files
	}

	if !utils.FileExists(in) {
		log.Fatalf("Input %s does not exist", in)
	}
	return []string{in}
}

func runBoost(ctx context.Context, pipeline *emocheck.Pipeline, files []string, outDir, filter string) {
	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	for _, file := range files {
		outPath := utils.GenerateOutputFilename(file, outDir, "", "_"+filter, "png")

		result, err := pipeline.BoostFile(ctx, file, outPath, filter)
		if err != nil {
			log.Printf("boost %s failed: %v", file, err)
			continue
		}

		log.Printf("wrote %s (%s, %s)", outPath, result.FilterApplied,
			utils.FormatFileSize(int64(len(result.Image))))
	}
}

func runAnalyze(ctx context.Context, pipeline *emocheck.Pipeline, files []string, model string) {
	for _, file := range files {
		result, err := pipeline.AnalyzeFile(ctx, file, model)
		if err != nil {
			log.Printf("analyze %s failed: %v", file, err)
			continue
		}

		js, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Printf("marshal %s failed: %v", file, err)
			continue
		}

		if len(files) > 1 {
			fmt.Printf("%s:\n", file)
		}
		fmt.Println(string(js))
	}
}
