package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envFiles are loaded in order; variables already set are never overwritten.
var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads .env files from the working directory into the environment.
// Missing files are ignored.
func LoadEnvFiles() {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	LoadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a config from .env files, the environment and defaults.
func FromEnv() *Config {
	LoadEnvFiles()
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
