// Package config builds the single configuration value the rest of the
// program receives by reference. Precedence, lowest to highest: built-in
// defaults, the TOML config file, environment variables (including a
// local .env), command-line flags. Nothing below cmd/ reads the
// environment directly.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/durach/gromit/internal/device"
)

//go:embed sample_config.toml
var sampleConfig string

// Config is the environment-derived configuration for a run.
type Config struct {
	// Language is the expected spoken language code (BCP 47 /
	// whisper-style, e.g. "en", "uk").
	Language string `toml:"language"`
	// Device is the requested compute device: auto, cpu, cuda or mps.
	Device string `toml:"device"`
	// ModelSize is the whisper model name.
	ModelSize string `toml:"model_size"`
	// MaxSeconds bounds processing to the first N seconds of audio;
	// zero means the whole file.
	MaxSeconds float64 `toml:"max_seconds"`
	// HFToken is the Hugging Face credential gating the diarization
	// model.
	HFToken string `toml:"hf_token"`
	// Python is the interpreter used for the inference helpers.
	Python string `toml:"python"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Language:  "en",
		Device:    string(device.Auto),
		ModelSize: "large-v3",
		Python:    "python3",
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "gromit", "config.toml"), nil
}

// Load assembles the configuration. path may be empty, in which case
// the default location is used; a missing file at either is fine.
func Load(path string) (*Config, error) {
	// A .env next to the working directory mirrors the collaborator
	// tooling's conventions; absence is the normal case.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file is fine; defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DEFAULT_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("DEFAULT_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("WHISPER_MODEL_SIZE"); v != "" {
		c.ModelSize = v
	}
	if v := os.Getenv("HUGGING_FACE_HUB_TOKEN"); v != "" {
		c.HFToken = v
	}
	if v := os.Getenv("GROMIT_PYTHON"); v != "" {
		c.Python = v
	}
	if v := os.Getenv("GROMIT_MAX_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MaxSeconds = f
		}
	}
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if !device.Kind(c.Device).Valid() {
		return fmt.Errorf("invalid device %q (want auto, cpu, cuda or mps)", c.Device)
	}
	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("invalid language code %q: %w", c.Language, err)
	}
	if c.MaxSeconds < 0 {
		return fmt.Errorf("max_seconds must not be negative, got %v", c.MaxSeconds)
	}
	if c.ModelSize == "" {
		return errors.New("model_size must not be empty")
	}
	return nil
}

// Sample returns the annotated sample configuration file.
func Sample() string {
	return sampleConfig
}
