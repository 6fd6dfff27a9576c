package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Models  ModelsConfig  `json:"models"`
	Palette PaletteConfig `json:"palette"`
	Decoder DecoderConfig `json:"decoder"`
	Server  ServerConfig  `json:"server"`
}

// ModelsConfig holds the ONNX runtime and model file locations
type ModelsConfig struct {
	RuntimeLibrary string `json:"runtime_library"`
	ResNetPath     string `json:"resnet_path"`
	ResNetMetadata string `json:"resnet_metadata"`
	ViTPath        string `json:"vit_path"`
	ViTMetadata    string `json:"vit_metadata"`
}

// PaletteConfig holds configuration for color palette extraction
type PaletteConfig struct {
	Swatches int `json:"swatches"`
	MaxSide  int `json:"max_side"`
}

// DecoderConfig holds configuration for image decoding
type DecoderConfig struct {
	MaxPixels int `json:"max_pixels"`
}

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			RuntimeLibrary: "",
			ResNetPath:     "models/resnet152.onnx",
			ResNetMetadata: "models/resnet152.json",
			ViTPath:        "models/vit_b16.onnx",
			ViTMetadata:    "models/vit_b16.json",
		},
		Palette: PaletteConfig{
			Swatches: 5,
			MaxSide:  200,
		},
		Decoder: DecoderConfig{
			MaxPixels: 24000000,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			MaxUploadBytes: 10 << 20,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Models.ResNetPath == "" {
		return fmt.Errorf("models.resnet_path cannot be empty")
	}

	if c.Models.ResNetMetadata == "" {
		return fmt.Errorf("models.resnet_metadata cannot be empty")
	}

	if c.Models.ViTPath == "" {
		return fmt.Errorf("models.vit_path cannot be empty")
	}

	if c.Models.ViTMetadata == "" {
		return fmt.Errorf("models.vit_metadata cannot be empty")
	}

	if c.Palette.Swatches < 1 {
		return fmt.Errorf("palette.swatches must be positive")
	}

	if c.Palette.MaxSide < 1 {
		return fmt.Errorf("palette.max_side must be positive")
	}

	if c.Decoder.MaxPixels < 1 {
		return fmt.Errorf("decoder.max_pixels must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Server.MaxUploadBytes < 1 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "emo-check", "config.json")
}
