// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Values from .env and .env.local in the working directory are loaded into the
// environment before expansion. When no file is given, FromEnv builds a config
// from the environment and defaults alone.
package config
