// Package config loads the relais service configuration from YAML. The
// configuration is an explicit object constructed once and passed by
// parameter — there are no process-wide singletons.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full relais configuration.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `yaml:"listen"`
	// DBPath is the SQLite file holding both the audit log and the page
	// state history. Required: the service refuses to start without it.
	DBPath string `yaml:"db_path"`
	// AuditTable overrides the audit table name (default notion_webhook_log).
	AuditTable string `yaml:"audit_table"`
	// StateTable overrides the state table name (default notion_page_state).
	StateTable string `yaml:"state_table"`
	// StatusWebhookURL is the Discord webhook for status/assignee changes.
	// Empty means the channel is silently skipped.
	StatusWebhookURL string `yaml:"status_webhook_url"`
	// LiaisonWebhookURL is the Discord webhook for liaison-status changes.
	// Empty means the channel is silently skipped.
	LiaisonWebhookURL string `yaml:"liaison_webhook_url"`
	// MaxBodyBytes caps the inbound webhook body size. Default 1MB.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// DefaultConfig returns sane defaults. DBPath stays empty on purpose: it is
// the one setting that must come from the operator.
func DefaultConfig() *Config {
	return &Config{
		Listen:       ":8086",
		MaxBodyBytes: 1 << 20,
	}
}

// LoadConfig reads and parses a YAML config file, merged over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present. Webhook URLs are
// deliberately not required: an unconfigured channel degrades to per-send
// skip outcomes rather than blocking startup.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	return nil
}
