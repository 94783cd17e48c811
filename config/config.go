// Package config holds runtime settings for the enhancement pipeline.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds enhancement pipeline configuration.
type Config struct {
	BatchSize     int           `yaml:"batch_size"`
	ItemDelay     time.Duration `yaml:"item_delay"`
	BatchPause    time.Duration `yaml:"batch_pause"`
	MaxProducts   int           `yaml:"max_products"`
	SaveBatches   bool          `yaml:"save_batches"`
	CheckpointDir string        `yaml:"checkpoint_dir"`
	OutputDir     string        `yaml:"output_dir"`
	ExportFile    string        `yaml:"export_file"`
	ExportFormat  string        `yaml:"export_format"` // csv, json, dual, parquet or empty

	Sink         string   `yaml:"sink"` // none, sqlite, pebble or kafka
	SQLitePath   string   `yaml:"sqlite_path"`
	PebbleDir    string   `yaml:"pebble_dir"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	AIBaseURL           string        `yaml:"ai_base_url"`
	AIAPIKey            string        `yaml:"-"`
	AIModel             string        `yaml:"ai_model"`
	AITemperature       float64       `yaml:"ai_temperature"`
	AITimeout           time.Duration `yaml:"ai_timeout"`
	AIMaxRetries        int           `yaml:"ai_max_retries"`
	AIRetryBackoff      time.Duration `yaml:"ai_retry_backoff"`
	AIRetryBackoffMax   time.Duration `yaml:"ai_retry_backoff_max"`
	AIRequestsPerMinute int           `yaml:"ai_requests_per_minute"`
	StructuredOutput    bool          `yaml:"structured_output"`
	CacheSize           int           `yaml:"cache_size"`

	MetricsAddr string `yaml:"metrics_addr"`
	Verbose     bool   `yaml:"verbose"`
	LogFile     string `yaml:"log_file"`
}

// DefaultConfig returns conservative defaults for a hosted Gemini endpoint.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:     25,
		ItemDelay:     2 * time.Second,
		BatchPause:    5 * time.Second,
		SaveBatches:   true,
		CheckpointDir: "output/batches",
		OutputDir:     "output",
		Sink:          "none",
		SQLitePath:    "output/products.db",
		PebbleDir:     "output/pebble",
		KafkaTopic:    "enriched-products",

		AIBaseURL:           "https://generativelanguage.googleapis.com/v1beta/openai/",
		AIModel:             "gemini-1.5-pro",
		AITemperature:       0.3,
		AITimeout:           60 * time.Second,
		AIMaxRetries:        2,
		AIRetryBackoff:      500 * time.Millisecond,
		AIRetryBackoffMax:   8 * time.Second,
		AIRequestsPerMinute: 30,
		StructuredOutput:    false,
		CacheSize:           512,

		LogFile: "product_processing.log",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.ItemDelay < 0 {
		return fmt.Errorf("item delay cannot be negative")
	}
	if c.BatchPause < 0 {
		return fmt.Errorf("batch pause cannot be negative")
	}
	if c.MaxProducts < 0 {
		return fmt.Errorf("max products cannot be negative")
	}
	if c.SaveBatches && c.CheckpointDir == "" {
		return fmt.Errorf("checkpoint dir cannot be empty when saving batches")
	}

	switch c.ExportFormat {
	case "":
	case "csv", "json", "dual", "parquet":
		if c.ExportFile == "" {
			return fmt.Errorf("export file cannot be empty for format %s", c.ExportFormat)
		}
	default:
		return fmt.Errorf("export format must be csv, json, dual, or parquet")
	}

	switch c.Sink {
	case "", "none":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
	case "pebble":
		if c.PebbleDir == "" {
			return fmt.Errorf("pebble dir cannot be empty")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka sink needs at least one broker")
		}
		if c.KafkaTopic == "" {
			return fmt.Errorf("kafka topic cannot be empty")
		}
	default:
		return fmt.Errorf("sink must be none, sqlite, pebble, or kafka")
	}

	if c.AIBaseURL == "" {
		return fmt.Errorf("AI base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.AIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid AI base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("AI base URL must include a host")
	}
	if c.AIModel == "" {
		return fmt.Errorf("AI model cannot be empty")
	}
	if c.AITemperature < 0 || c.AITemperature > 2 {
		return fmt.Errorf("AI temperature must be between 0 and 2")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AIMaxRetries < 0 {
		return fmt.Errorf("AI max retries cannot be negative")
	}
	if c.AIRetryBackoff < 0 {
		return fmt.Errorf("AI retry backoff cannot be negative")
	}
	if c.AIRetryBackoffMax < 0 {
		return fmt.Errorf("AI retry backoff max cannot be negative")
	}
	if c.AIRetryBackoffMax > 0 && c.AIRetryBackoff > c.AIRetryBackoffMax {
		return fmt.Errorf("AI retry backoff (%s) cannot exceed AI retry backoff max (%s)", c.AIRetryBackoff, c.AIRetryBackoffMax)
	}
	if c.AIRequestsPerMinute < 0 {
		return fmt.Errorf("AI requests per minute cannot be negative")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}

	return nil
}

// LoadFile overlays the YAML document at path onto c. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	c.ExportFormat = strings.ToLower(c.ExportFormat)
	c.Sink = strings.ToLower(c.Sink)
	return nil
}
