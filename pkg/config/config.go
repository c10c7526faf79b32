// Package config loads bitpay.Config from a YAML file and BITPAY_*
// environment variables. Environment variables win over the file.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	bitpay "github.com/bitpay/bitpay-go"
)

// EnvPrefix is prepended to every variable name, e.g. BITPAY_API_KEY
const EnvPrefix = "BITPAY_"

// Load reads path (if not empty), applies the environment and returns a
// validated config with defaults filled in. A missing file is an error
// only when path was given explicitly.
func Load(path string) (bitpay.Config, error) {
	var cfg bitpay.Config

	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return bitpay.Config{}, err
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return bitpay.Config{}, err
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return bitpay.Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML file into cfg
func LoadFile(path string, cfg *bitpay.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays BITPAY_* variables on cfg. Unset variables leave the
// field untouched.
func ParseEnv(cfg *bitpay.Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
