package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"socanalyzer/internal/logger"
	"socanalyzer/oracle"
)

// Common errors
var (
	ErrInvalidListenAddr = errors.New("invalid listen address")
	ErrInvalidDatabase   = errors.New("invalid database path")
)

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	MaxConcurrent int    `yaml:"max_concurrent"` // concurrent-request semaphore size
	MaxBodyBytes  int64  `yaml:"max_body_bytes"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RetrieverConfig holds the similarity microservice settings.
type RetrieverConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	TopK       int    `yaml:"top_k"` // similar analyses returned per query
}

// Config is the full application configuration, loaded from YAML with
// environment overrides.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Oracle    oracle.Config   `yaml:"oracle"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Logging   logger.Config   `yaml:"logging"`
}

// NewDefaultConfig returns a Config with workable defaults: local SQLite
// file, TGI oracle on localhost, info-level JSON logs.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:    "127.0.0.1:8080",
			MaxConcurrent: 16,
			MaxBodyBytes:  1 << 20,
		},
		Database: DatabaseConfig{
			Path: "socanalyzer.db",
		},
		Oracle: oracle.Config{
			BaseURL:     "http://localhost:5005/generate",
			Kind:        oracle.KindTGI,
			MaxTokens:   800,
			Temperature: 0.2,
			TimeoutSec:  60,
		},
		Retriever: RetrieverConfig{
			ListenAddr: "127.0.0.1:8081",
			TopK:       3,
		},
		Logging: logger.DefaultConfig(),
	}
}

// Load reads the YAML file at path (missing file means defaults), then
// applies environment overrides. Returns a validated configuration.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployments override the file without editing it.
// Malformed numeric values are ignored in favor of the current setting.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SOC_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("SOC_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SOC_ORACLE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("SOC_ORACLE_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("SOC_ORACLE_KIND"); v != "" {
		cfg.Oracle.Kind = v
	}
	if v := os.Getenv("SOC_ORACLE_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Oracle.TimeoutSec = n
		}
	}
	if v := os.Getenv("SOC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SOC_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("SOC_RETRIEVER_ADDR"); v != "" {
		cfg.Retriever.ListenAddr = v
	}
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	if c.Database.Path == "" {
		return ErrInvalidDatabase
	}
	if c.Server.MaxConcurrent <= 0 {
		c.Server.MaxConcurrent = 16
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Retriever.TopK <= 0 {
		c.Retriever.TopK = 3
	}
	return nil
}
