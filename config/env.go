package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables recognised by Load and ApplyEnv.
const (
	EnvConfigFile    = "ENHANCER_CONFIG"
	EnvAPIKey        = "GEMINI_API_KEY"
	EnvBaseURL       = "ENHANCER_AI_BASE_URL"
	EnvModel         = "ENHANCER_AI_MODEL"
	EnvAITimeout     = "ENHANCER_AI_TIMEOUT"
	EnvAIRetries     = "ENHANCER_AI_MAX_RETRIES"
	EnvAIRPM         = "ENHANCER_AI_RPM"
	EnvBatchSize     = "ENHANCER_BATCH_SIZE"
	EnvItemDelay     = "ENHANCER_ITEM_DELAY"
	EnvBatchPause    = "ENHANCER_BATCH_PAUSE"
	EnvMaxProducts   = "ENHANCER_MAX_PRODUCTS"
	EnvOutputDir     = "ENHANCER_OUTPUT_DIR"
	EnvSink          = "ENHANCER_SINK"
	EnvSQLitePath    = "ENHANCER_SQLITE_PATH"
	EnvPebbleDir     = "ENHANCER_PEBBLE_DIR"
	EnvKafkaBrokers  = "ENHANCER_KAFKA_BROKERS"
	EnvKafkaTopic    = "ENHANCER_KAFKA_TOPIC"
	EnvMetricsAddr   = "ENHANCER_METRICS_ADDR"
	EnvStructuredOut = "ENHANCER_STRUCTURED_OUTPUT"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// EnvString returns the trimmed value of name and whether it was set to a
// non-empty value.
func EnvString(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses name as an integer.
func EnvInt(name string) (int, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return n, true, nil
}

// EnvDuration parses name as a Go duration such as "2s" or "500ms".
func EnvDuration(name string) (time.Duration, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", name, err)
	}
	return d, true, nil
}

// EnvBool parses name with strconv.ParseBool.
func EnvBool(name string) (bool, bool, error) {
	value, ok := EnvString(name)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", name, err)
	}
	return b, true, nil
}

// ApplyEnv overrides c with every recognised environment variable.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString(EnvAPIKey); ok {
		c.AIAPIKey = v
	}
	if v, ok := EnvString(EnvBaseURL); ok {
		c.AIBaseURL = v
	}
	if v, ok := EnvString(EnvModel); ok {
		c.AIModel = v
	}
	if v, ok := EnvString(EnvOutputDir); ok {
		c.OutputDir = v
	}
	if v, ok := EnvString(EnvSink); ok {
		c.Sink = strings.ToLower(v)
	}
	if v, ok := EnvString(EnvSQLitePath); ok {
		c.SQLitePath = v
	}
	if v, ok := EnvString(EnvPebbleDir); ok {
		c.PebbleDir = v
	}
	if v, ok := EnvString(EnvKafkaBrokers); ok {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := EnvString(EnvKafkaTopic); ok {
		c.KafkaTopic = v
	}
	if v, ok := EnvString(EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvAIRetries, &c.AIMaxRetries},
		{EnvAIRPM, &c.AIRequestsPerMinute},
		{EnvBatchSize, &c.BatchSize},
		{EnvMaxProducts, &c.MaxProducts},
	}
	for _, item := range ints {
		v, ok, err := EnvInt(item.name)
		if err != nil {
			return err
		}
		if ok {
			*item.dst = v
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{EnvAITimeout, &c.AITimeout},
		{EnvItemDelay, &c.ItemDelay},
		{EnvBatchPause, &c.BatchPause},
	}
	for _, item := range durations {
		v, ok, err := EnvDuration(item.name)
		if err != nil {
			return err
		}
		if ok {
			*item.dst = v
		}
	}

	if v, ok, err := EnvBool(EnvStructuredOut); err != nil {
		return err
	} else if ok {
		c.StructuredOutput = v
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file
// named by ENHANCER_CONFIG, then environment variables. .env files are
// loaded first so their values take part in both steps.
func Load(dotenvPaths ...string) (*Config, error) {
	if err := LoadDotEnv(dotenvPaths...); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if path, ok := EnvString(EnvConfigFile); ok {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
