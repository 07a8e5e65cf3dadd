// Package config loads service configuration from defaults, an optional
// YAML file and CASHFLOW_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
	IMAP     IMAPConfig     `koanf:"imap"`
	Sync     SyncConfig     `koanf:"sync"`
	BigQuery BigQueryConfig `koanf:"bigquery"`
	GCS      GCSConfig      `koanf:"gcs"`
	Notion   NotionConfig   `koanf:"notion"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the zerolog logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// IMAPConfig holds the default mailbox. Request-supplied credentials
// take precedence over these.
type IMAPConfig struct {
	Server       string        `koanf:"server"`
	Port         int           `koanf:"port"`
	Folder       string        `koanf:"folder"`
	EmailAddress string        `koanf:"email_address"`
	AppPassword  string        `koanf:"app_password"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
}

// SyncConfig tunes the mailbox sync pipeline and the job queue.
type SyncConfig struct {
	Workers       int           `koanf:"workers"`
	MarkRead      bool          `koanf:"mark_read"`
	RequireExport bool          `koanf:"require_export"`
	PollInterval  time.Duration `koanf:"poll_interval"`
	QueueBuffer   int           `koanf:"queue_buffer"`
	MaxRetries    int           `koanf:"max_retries"`
}

// BigQueryConfig configures the BigQuery export sink.
type BigQueryConfig struct {
	Enabled   bool   `koanf:"enabled"`
	ProjectID string `koanf:"project_id"`
	Dataset   string `koanf:"dataset"`
	Table     string `koanf:"table"`
}

// GCSConfig configures the raw message archive.
type GCSConfig struct {
	Enabled bool   `koanf:"enabled"`
	Bucket  string `koanf:"bucket"`
	Prefix  string `koanf:"prefix"`
}

// NotionConfig configures the Notion export sink.
type NotionConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Token      string `koanf:"token"`
	DatabaseID string `koanf:"database_id"`
	DryRun     bool   `koanf:"dry_run"`
}

// HasMailbox reports whether default mailbox credentials are configured.
func (c IMAPConfig) HasMailbox() bool {
	return c.EmailAddress != "" && c.AppPassword != ""
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		errs = append(errs, fmt.Errorf("log.level %q is not a valid level", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if c.IMAP.Server == "" {
		errs = append(errs, errors.New("imap.server is required"))
	}
	if c.IMAP.Port <= 0 || c.IMAP.Port > 65535 {
		errs = append(errs, fmt.Errorf("imap.port must be in 1..65535, got %d", c.IMAP.Port))
	}
	if c.Sync.Workers < 1 {
		errs = append(errs, fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers))
	}
	if c.Sync.QueueBuffer < 1 {
		errs = append(errs, fmt.Errorf("sync.queue_buffer must be at least 1, got %d", c.Sync.QueueBuffer))
	}
	if c.Sync.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("sync.max_retries must not be negative, got %d", c.Sync.MaxRetries))
	}
	if c.BigQuery.Enabled && (c.BigQuery.ProjectID == "" || c.BigQuery.Dataset == "" || c.BigQuery.Table == "") {
		errs = append(errs, errors.New("bigquery.project_id, bigquery.dataset and bigquery.table are required when bigquery is enabled"))
	}
	if c.GCS.Enabled && c.GCS.Bucket == "" {
		errs = append(errs, errors.New("gcs.bucket is required when gcs is enabled"))
	}
	if c.Notion.Enabled && (c.Notion.Token == "" || c.Notion.DatabaseID == "") {
		errs = append(errs, errors.New("notion.token and notion.database_id are required when notion is enabled"))
	}

	return errors.Join(errs...)
}
