package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DefaultMaxConcurrent bounds the refresh fan-out; remote-server courtesy
// and local socket limits both argue against going higher.
const DefaultMaxConcurrent = 10

// APIKeyEnv names the environment variable holding the content-extractor
// API key. Absence only degrades the service's rate limits.
const APIKeyEnv = "JINA_API_KEY"

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database"`
	Feed      FeedConfig      `mapstructure:"feed" toml:"feed"`
	Extractor ExtractorConfig `mapstructure:"extractor" toml:"extractor"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
	UI        UIConfig        `mapstructure:"ui" toml:"ui"`
}

type DatabaseConfig struct {
	Path        string `mapstructure:"path" toml:"path"`
	SearchIndex string `mapstructure:"search_index" toml:"search_index"`
}

type FeedConfig struct {
	HTTPTimeout     time.Duration `mapstructure:"http_timeout" toml:"http_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" toml:"refresh_interval"`
	MaxConcurrent   int           `mapstructure:"max_concurrent" toml:"max_concurrent"`
	UserAgent       string        `mapstructure:"user_agent" toml:"user_agent"`
}

type ExtractorConfig struct {
	BaseURL string        `mapstructure:"base_url" toml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" toml:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	Path  string `mapstructure:"path" toml:"path"`
}

type UIConfig struct {
	Colors UIColors `mapstructure:"colors" toml:"colors"`
}

type UIColors struct {
	Accent string `mapstructure:"accent" toml:"accent"`
	Muted  string `mapstructure:"muted" toml:"muted"`
	Error  string `mapstructure:"error" toml:"error"`
	Unread string `mapstructure:"unread" toml:"unread"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".skim")

	return &Config{
		Database: DatabaseConfig{
			Path:        filepath.Join(stateDir, "skim.db"),
			SearchIndex: filepath.Join(stateDir, "index.bleve"),
		},
		Feed: FeedConfig{
			HTTPTimeout:     30 * time.Second,
			RefreshInterval: 0, // auto-refresh off unless configured
			MaxConcurrent:   DefaultMaxConcurrent,
			UserAgent:       "skim/1.0 (RSS reader)",
		},
		Extractor: ExtractorConfig{
			BaseURL: "https://r.jina.ai",
			Timeout: 20 * time.Second,
		},
		Log: LogConfig{
			Level: "off",
		},
		UI: UIConfig{
			Colors: UIColors{
				Accent: "#4ECDC4",
				Muted:  "#94A3B8",
				Error:  "#F87171",
				Unread: "#EAEAEA",
			},
		},
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := defaultConfig()
	v.SetDefault("database", defaults.Database)
	v.SetDefault("feed", defaults.Feed)
	v.SetDefault("extractor", defaults.Extractor)
	v.SetDefault("log", defaults.Log)
	v.SetDefault("ui", defaults.UI)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join(homeDir, ".config", "skim"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SKIM")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	expandPaths(&cfg)
	return &cfg, nil
}

// APIKey returns the content-extractor API key from the environment, or ""
// when none is configured.
func APIKey() string {
	return os.Getenv(APIKeyEnv)
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	return path
}

func expandPaths(cfg *Config) {
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.Database.SearchIndex = expandPath(cfg.Database.SearchIndex)
	cfg.Log.Path = expandPath(cfg.Log.Path)
}

// Save writes the config as TOML. Durations are written as strings ("30s")
// so the file stays hand-editable.
func Save(cfg *Config, path string) error {
	doc := map[string]any{
		"database": map[string]any{
			"path":         cfg.Database.Path,
			"search_index": cfg.Database.SearchIndex,
		},
		"feed": map[string]any{
			"http_timeout":     cfg.Feed.HTTPTimeout.String(),
			"refresh_interval": cfg.Feed.RefreshInterval.String(),
			"max_concurrent":   cfg.Feed.MaxConcurrent,
			"user_agent":       cfg.Feed.UserAgent,
		},
		"extractor": map[string]any{
			"base_url": cfg.Extractor.BaseURL,
			"timeout":  cfg.Extractor.Timeout.String(),
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"path":  cfg.Log.Path,
		},
		"ui": map[string]any{
			"colors": cfg.UI.Colors,
		},
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// DefaultConfigPath is where Load looks first and where generate-config
// writes.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "skim", "config.toml")
}
