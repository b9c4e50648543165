package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // tests supply a t.TempDir() path
		},
		Feed: FeedConfig{
			HTTPTimeout:     5 * time.Second,
			RefreshInterval: 0,
			MaxConcurrent:   DefaultMaxConcurrent,
			UserAgent:       "skim-test/1.0",
		},
		Extractor: ExtractorConfig{
			BaseURL: "https://r.jina.ai",
			Timeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "off"},
		UI:  defaultConfig().UI,
	}
}
