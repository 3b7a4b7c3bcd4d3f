// Package config loads the deobfuscator settings from YAML, `.env` and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

var (
	ErrEmptyMainArray   = errors.New("main_array must not be empty")
	ErrEmptyHexPrefix   = errors.New("hex_prefix must not be empty")
	ErrInvalidIteration = errors.New("max_iterations must be at least 1")
)

// Environment variables overriding the file.
const (
	EnvMainArray     = "JSDEOB_MAIN_ARRAY"
	EnvHexPrefix     = "JSDEOB_HEX_PREFIX"
	EnvMaxIterations = "JSDEOB_MAX_ITERATIONS"
)

type Config struct {
	// MainArray is the identifier of the plain string array read as `_[n]`.
	MainArray string `yaml:"main_array"`
	// HexPrefix marks encoded indexes passed to string accessors.
	HexPrefix string `yaml:"hex_prefix"`
	// MaxIterations caps the proxy and constant fixpoint loops.
	MaxIterations int `yaml:"max_iterations"`
	// FoldReassignedConstants folds object constants that are written more
	// than once.
	FoldReassignedConstants bool `yaml:"fold_reassigned_constants"`
}

func Default() Config {
	return Config{
		MainArray:     "_",
		HexPrefix:     "0x",
		MaxIterations: 4,
	}
}

// Load reads configPath on top of the defaults. A missing file is not an
// error. A `.env` file in the working directory is loaded first so its
// variables can be referenced as ${VAR} and used as overrides.
func Load(configPath string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, fmt.Errorf("failed to load environment files: %w", err)
	}

	config := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := Parse(data, &config); err != nil {
				return Config{}, err
			}
		}
	}

	if err := applyEnv(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Parse decodes YAML strictly into config, leaving unset keys untouched.
func Parse(data []byte, config *Config) error {
	if err := yaml.UnmarshalWithOptions(data, config, yaml.Strict()); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	config.MainArray = os.ExpandEnv(config.MainArray)
	config.HexPrefix = os.ExpandEnv(config.HexPrefix)
	return nil
}

func (c Config) Validate() error {
	if c.MainArray == "" {
		return ErrEmptyMainArray
	}
	if c.HexPrefix == "" {
		return ErrEmptyHexPrefix
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidIteration, c.MaxIterations)
	}
	return nil
}

func applyEnv(config *Config) error {
	if v := os.Getenv(EnvMainArray); v != "" {
		config.MainArray = v
	}
	if v := os.Getenv(EnvHexPrefix); v != "" {
		config.HexPrefix = v
	}
	if v := os.Getenv(EnvMaxIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxIterations, err)
		}
		config.MaxIterations = n
	}
	return nil
}

func loadEnvFiles() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load(".env")
}
