/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	errs "github.com/suparena/entitymapper/errors"
)

// Driver names accepted in services and caches.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// EnvPrefix prefixes every entitymapper environment variable.
const EnvPrefix = "ENTITYMAPPER_"

// Config is the root configuration structure.
type Config struct {
	Logging  LoggingConfig   `yaml:"logging"`
	Registry RegistryConfig  `yaml:"registry"`
	AWS      AWSConfig       `yaml:"aws"`
	Services []ServiceConfig `yaml:"services"`
	Caches   []CacheConfig   `yaml:"caches"`
	Schemas  SchemaConfig    `yaml:"schemas"`
}

// LoggingConfig selects the log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// RegistryConfig controls the identity map.
type RegistryConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// AWSConfig holds the defaults shared by every DynamoDB service and cache.
type AWSConfig struct {
	Region    string `yaml:"region" env:"AWS_REGION"`
	AccessKey string `yaml:"access_key" env:"AWS_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"AWS_SECRET_KEY"`
	Endpoint  string `yaml:"endpoint" env:"ENTITYMAPPER_AWS_ENDPOINT"`
}

// ServiceConfig declares a named storage collaborator.
type ServiceConfig struct {
	Name     string         `yaml:"name"`
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

// SQLiteConfig contains SQLite database settings.
type SQLiteConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DynamoDBConfig contains per-service DynamoDB settings. Empty fields fall
// back to the aws section.
type DynamoDBConfig struct {
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	TablePrefix string `yaml:"table_prefix"`
	// Table is the cache table; services map collections to tables instead.
	Table string `yaml:"table"`
}

// CacheConfig declares a named side cache.
type CacheConfig struct {
	Name     string         `yaml:"name"`
	Driver   string         `yaml:"driver"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
}

// SchemaConfig lists entity descriptor files.
type SchemaConfig struct {
	Files []string `yaml:"files" env:"SCHEMAS" envSeparator:","`
}

// UnmarshalYAML accepts either a plain list of files or {files: [...]}.
func (s *SchemaConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&s.Files)
	}
	type plain SchemaConfig
	return node.Decode((*plain)(s))
}

// Load reads configuration from path, which may be empty to use defaults and
// the environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with defaults: info level JSON logs on stdout and
// the identity map enabled.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Registry: RegistryConfig{
			Enabled: true,
		},
	}
}

// loadDotEnv loads the first .env file found next to the config file or in
// the working directory. Variables already set are not overridden.
func loadDotEnv(path string) error {
	var candidates []string
	if path != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(path), ".env"))
	}
	candidates = append(candidates, ".env")

	for _, candidate := range candidates {
		err := godotenv.Load(candidate)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", candidate, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	sections := []struct {
		target any
		prefix string
	}{
		{&c.Logging, EnvPrefix + "LOGGING_"},
		{&c.Registry, EnvPrefix + "REGISTRY_"},
		{&c.Schemas, EnvPrefix},
		{&c.AWS, ""},
	}
	for _, s := range sections {
		if err := env.ParseWithOptions(s.target, env.Options{Prefix: s.prefix}); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be json or text", c.Logging.Format))
	}

	seen := make(map[string]bool)
	for i, s := range c.Services {
		field := fmt.Sprintf("services[%d]", i)
		if s.Name == "" {
			problems = append(problems, field+".name is required")
		} else if seen[s.Name] {
			problems = append(problems, fmt.Sprintf("%s.name %q is duplicated", field, s.Name))
		}
		seen[s.Name] = true

		switch s.Driver {
		case DriverMemory:
		case DriverSQLite:
			if s.SQLite.Path == "" {
				problems = append(problems, field+".sqlite.path is required")
			}
		case DriverDynamoDB:
			if s.DynamoDB.Region == "" && c.AWS.Region == "" {
				problems = append(problems, field+".dynamodb.region or aws.region is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("%s.driver %q must be memory, sqlite or dynamodb", field, s.Driver))
		}
	}

	seen = make(map[string]bool)
	for i, cc := range c.Caches {
		field := fmt.Sprintf("caches[%d]", i)
		if cc.Name == "" {
			problems = append(problems, field+".name is required")
		} else if seen[cc.Name] {
			problems = append(problems, fmt.Sprintf("%s.name %q is duplicated", field, cc.Name))
		}
		seen[cc.Name] = true

		switch cc.Driver {
		case DriverMemory:
		case DriverDynamoDB:
			if cc.DynamoDB.Table == "" {
				problems = append(problems, field+".dynamodb.table is required")
			}
			if cc.DynamoDB.Region == "" && c.AWS.Region == "" {
				problems = append(problems, field+".dynamodb.region or aws.region is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("%s.driver %q must be memory or dynamodb", field, cc.Driver))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errs.ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}
