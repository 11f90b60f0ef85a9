package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// RemoteConfig holds the connection settings for the authoritative
// backend. An empty DSN runs the application in local-only mode.
type RemoteConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// LocalConfig holds the on-device fallback store settings.
type LocalConfig struct {
	// Path is the SQLite database file for the fallback snapshot.
	Path string `mapstructure:"path" yaml:"path"`
}

// AIConfig holds settings for the assistant integration.
type AIConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// APIConfig holds the HTTP surface settings.
type APIConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	JWTSecret      string   `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Config is the top-level application configuration.
type Config struct {
	Remote RemoteConfig `mapstructure:"remote" yaml:"remote"`
	Local  LocalConfig  `mapstructure:"local" yaml:"local"`
	AI     AIConfig     `mapstructure:"ai" yaml:"ai"`
	API    APIConfig    `mapstructure:"api" yaml:"api"`
}

// DefaultPath returns the default path for the configuration file,
// located at ~/.config/tasksync/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "tasksync", "config.yaml")
}

// defaultConfig returns a sensible default configuration.
func defaultConfig() *Config {
	home, err := os.UserHomeDir()
	dataDir := "."
	if err == nil {
		dataDir = filepath.Join(home, ".local", "share", "tasksync")
	}
	return &Config{
		Local: LocalConfig{
			Path: filepath.Join(dataDir, "fallback.db"),
		},
		AI: AIConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 1024,
		},
		API: APIConfig{
			Addr: ":8337",
		},
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultConfig()
	v.SetDefault("local.path", defaults.Local.Path)
	v.SetDefault("ai.model", defaults.AI.Model)
	v.SetDefault("ai.max_tokens", defaults.AI.MaxTokens)
	v.SetDefault("api.addr", defaults.API.Addr)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the given configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote", cfg.Remote)
	v.Set("local", cfg.Local)
	v.Set("ai", cfg.AI)
	v.Set("api", cfg.API)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
