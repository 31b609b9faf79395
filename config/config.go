package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int    `yaml:"log_level"`
	BaseURL  string `yaml:"base_url"`

	// Listing pages to discover tracklist URLs from
	SeedURLs []string `yaml:"seed_urls"`

	Storage   StorageConfig   `yaml:"storage"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Database  DatabaseConfig  `yaml:"database"`
}

type StorageConfig struct {
	// Type of storage: "local" or "gcs"
	Type string `yaml:"type"`

	// Local storage options
	DataDir string `yaml:"data_dir"`

	// GCS storage options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ScraperConfig struct {
	MaxRetries            int    `yaml:"max_retries"`
	BaseDelaySeconds      int    `yaml:"base_delay_seconds"`
	MinDelaySeconds       int    `yaml:"min_delay_seconds"`
	MaxDelaySeconds       int    `yaml:"max_delay_seconds"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	CookieFile            string `yaml:"cookie_file"`
}

type DiscoveryConfig struct {
	// Consecutive passes without new URLs before discovery stops
	NoNewPasses int `yaml:"no_new_passes"`

	// Cap on listing pages visited per run, 0 means no cap
	MaxPages int `yaml:"max_pages"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	// Set defaults if not provided
	if config.BaseURL == "" {
		config.BaseURL = "https://www.1001tracklists.com"
	}

	if config.Storage.Type == "" {
		config.Storage.Type = "local"
	}

	if config.Storage.DataDir == "" {
		config.Storage.DataDir = "raw_data"
	}

	if config.Scraper.MaxRetries == 0 {
		config.Scraper.MaxRetries = 3
	}

	if config.Scraper.BaseDelaySeconds == 0 {
		config.Scraper.BaseDelaySeconds = 2
	}

	if config.Scraper.MinDelaySeconds == 0 {
		config.Scraper.MinDelaySeconds = 5
	}

	if config.Scraper.MaxDelaySeconds == 0 {
		config.Scraper.MaxDelaySeconds = 10
	}

	if config.Scraper.RequestTimeoutSeconds == 0 {
		config.Scraper.RequestTimeoutSeconds = 30
	}

	if config.Discovery.NoNewPasses == 0 {
		config.Discovery.NoNewPasses = 3
	}

	if config.Database.Path == "" {
		config.Database.Path = "tracklists.db"
	}

	return config, nil
}
