// Package config provides configuration loading for the supportme server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Moderation ModerationConfig `yaml:"moderation"`
	Lookup     LookupConfig     `yaml:"lookup"`
}

// ServerConfig configures the HTTP listener and storage.
type ServerConfig struct {
	// Port is the TCP port to listen on.
	Port int `yaml:"port"`
	// DBPath is the SQLite database file path.
	DBPath string `yaml:"db_path"`
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	// JWTSecret signs session tokens. Must be set in production.
	JWTSecret string `yaml:"jwt_secret"`
	// TokenDuration is how long sessions stay valid.
	TokenDuration time.Duration `yaml:"token_duration"`
}

// ModerationConfig configures the profanity-screening client.
type ModerationConfig struct {
	// BaseURL is the screening API endpoint. Empty disables screening.
	BaseURL string `yaml:"base_url"`
	// Timeout bounds each screening call.
	Timeout time.Duration `yaml:"timeout"`
}

// LookupConfig configures the condition and location lookup clients.
type LookupConfig struct {
	// ConditionsURL is the disease-name autocomplete API endpoint.
	ConditionsURL string `yaml:"conditions_url"`
	// GeocodeURL is the address-suggestion API endpoint.
	GeocodeURL string `yaml:"geocode_url"`
	// Timeout bounds each lookup call.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   8080,
			DBPath: "./data/supportme.db",
		},
		Auth: AuthConfig{
			JWTSecret:     "dev-secret-change-me",
			TokenDuration: 24 * time.Hour,
		},
		Moderation: ModerationConfig{
			BaseURL: "https://www.purgomalum.com/service/json",
			Timeout: 10 * time.Second,
		},
		Lookup: LookupConfig{
			ConditionsURL: "https://clinicaltables.nlm.nih.gov/api/conditions/v3/search",
			GeocodeURL:    "https://nominatim.openstreetmap.org/search",
			Timeout:       10 * time.Second,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenDuration <= 0 {
		return fmt.Errorf("auth.token_duration must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Load returns the configuration from the given file, or defaults plus
// environment overrides when path is empty.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}

	config := DefaultConfig()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv overlays environment variables on top of file/default values.
// Env always wins, so deployments can override a checked-in config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Server.DBPath = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("MODERATION_URL"); v != "" {
		c.Moderation.BaseURL = v
	}
}
