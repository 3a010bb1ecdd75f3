package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Database DBConfig      `yaml:"database"`
	Auth     AuthConfig    `yaml:"auth"`
	Logging  LoggingConfig `yaml:"logging"`
	Client   ClientConfig  `yaml:"client"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type ClientConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	SearchDebounce  time.Duration `yaml:"search_debounce"`
}

// Defaults returns the configuration used when no config file is present.
func Defaults() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: "8008"},
		Database: DBConfig{Path: "book-tracker.db"},
		Auth: AuthConfig{
			JWTSecret:   "development-insecure-secret-change-me",
			TokenExpiry: 24 * time.Hour,
		},
		Logging: LoggingConfig{Development: true},
		Client: ClientConfig{
			RefreshInterval: 30 * time.Second,
			SearchDebounce:  500 * time.Millisecond,
		},
	}
}

// Load reads the YAML config at path, falling back to Defaults when the file
// does not exist. JWT_SECRET in the environment overrides the file value.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if cfg.Auth.TokenExpiry <= 0 {
		cfg.Auth.TokenExpiry = 24 * time.Hour
	}
	return cfg, nil
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
