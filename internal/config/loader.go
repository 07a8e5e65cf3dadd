package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
// CASHFLOW_IMAP_EMAIL_ADDRESS maps to imap.email_address.
const EnvPrefix = "CASHFLOW_"

// Defaults returns the built-in configuration values keyed by koanf path.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":             8080,
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    2 * time.Minute,
		"server.idle_timeout":     60 * time.Second,
		"server.shutdown_timeout": 30 * time.Second,

		"log.level":  "info",
		"log.format": "console",

		"imap.server":       "imap.gmail.com",
		"imap.port":         993,
		"imap.folder":       "INBOX",
		"imap.dial_timeout": 30 * time.Second,

		"sync.workers":       4,
		"sync.mark_read":     true,
		"sync.poll_interval": 5 * time.Minute,
		"sync.queue_buffer":  100,
		"sync.max_retries":   3,

		"bigquery.dataset": "cashflow",
		"bigquery.table":   "transactions",

		"gcs.prefix": "raw-messages",
	}
}

// Load builds the configuration. configPath may be empty, in which case
// only defaults and the environment are used.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps CASHFLOW_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
