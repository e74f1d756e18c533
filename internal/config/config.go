// Package config loads the connector configuration from a YAML file with
// environment fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults. The retry and fetch constants are operationally tuned for the
// network-mount failure mode of the hot folder; change with care.
const (
	DefaultBaseDir    = "/opt/labelflow"
	DefaultTable      = "label_queue"
	DefaultFetchLimit = 500
	DefaultRetries    = 3
	DefaultRetryDelay = 10 * time.Second
	DefaultEventLog   = "/var/log/labelflow/events.log"
)

// Config is the full connector configuration.
type Config struct {
	BaseDir     string            `yaml:"base_dir"`
	Destination DestinationConfig `yaml:"destination"`
	Queue       QueueConfig       `yaml:"queue"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DestinationConfig selects the hot-folder backend: a mounted directory or a
// blob bucket URL. Exactly one must be set.
type DestinationConfig struct {
	Dir       string `yaml:"dir"`
	BucketURL string `yaml:"bucket_url"`
}

// QueueConfig configures the remote queue store.
type QueueConfig struct {
	DSN           string `yaml:"dsn"`
	Table         string `yaml:"table"`
	PendingStatus string `yaml:"pending_status"`
	FetchLimit    int    `yaml:"fetch_limit"`
}

// DeliveryConfig configures the copy retry loop and batch pacing.
type DeliveryConfig struct {
	Retries     int      `yaml:"retries"`
	RetryDelay  Duration `yaml:"retry_delay"`
	PacingDelay Duration `yaml:"pacing_delay"`
}

// ArchiveConfig configures the archive side.
type ArchiveConfig struct {
	Compress bool `yaml:"compress"`
}

// LoggingConfig configures slog output and the pipeline event log.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	EventLog string `yaml:"event_log"`
}

// Duration parses YAML strings like "10s" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Value returns the wrapped time.Duration.
func (d Duration) Value() time.Duration {
	return time.Duration(d)
}

// Load reads, defaults, and validates the configuration file at path.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseDir == "" {
		c.BaseDir = DefaultBaseDir
	}
	if c.Queue.DSN == "" {
		c.Queue.DSN = os.Getenv("LABELFLOW_QUEUE_DSN")
	}
	if c.Queue.Table == "" {
		c.Queue.Table = DefaultTable
	}
	if c.Queue.FetchLimit <= 0 {
		c.Queue.FetchLimit = DefaultFetchLimit
	}
	if c.Delivery.Retries <= 0 {
		c.Delivery.Retries = DefaultRetries
	}
	if c.Delivery.RetryDelay <= 0 {
		c.Delivery.RetryDelay = Duration(DefaultRetryDelay)
	}
	if c.Logging.EventLog == "" {
		c.Logging.EventLog = DefaultEventLog
	}
}

func (c *Config) validate() error {
	if c.Queue.DSN == "" {
		return fmt.Errorf("config: queue.dsn (or LABELFLOW_QUEUE_DSN) is required")
	}
	if c.Destination.Dir == "" && c.Destination.BucketURL == "" {
		return fmt.Errorf("config: destination.dir or destination.bucket_url is required")
	}
	if c.Destination.Dir != "" && c.Destination.BucketURL != "" {
		return fmt.Errorf("config: destination.dir and destination.bucket_url are mutually exclusive")
	}
	return nil
}

// StagingDir is where artifacts are written before delivery.
func (c Config) StagingDir() string {
	return filepath.Join(c.BaseDir, "staging")
}

// ArchiveDir is the root of the dated archive tree.
func (c Config) ArchiveDir() string {
	return filepath.Join(c.BaseDir, "archive")
}

// ErrorDir is the root of the quarantine tree.
func (c Config) ErrorDir() string {
	return filepath.Join(c.BaseDir, "error")
}
