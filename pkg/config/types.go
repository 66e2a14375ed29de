package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds runtime key sets for use by other packages.
type RuntimeConfig struct {
	BackendKeys map[string]struct{}
}

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sync      SyncConfig      `yaml:"sync"`
	Messaging MessagingConfig `yaml:"messaging"`
	Digest    DigestConfig    `yaml:"digest"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
	} `yaml:"api_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SyncConfig tunes the per-viewer polling loop. There is no push channel;
// polling is the sole cross-viewer consistency mechanism.
type SyncConfig struct {
	// PollInterval is the refresh period for active viewers.
	PollInterval Duration `yaml:"poll_interval"`
	// MarkReadAfter debounces the automatic read acknowledgement of an open
	// conversation. Zero disables auto-mark-read.
	MarkReadAfter Duration `yaml:"mark_read_after"`
}

// MessagingConfig bounds message content and attachments.
type MessagingConfig struct {
	MaxAttachmentBytes SizeBytes `yaml:"max_attachment_bytes"`
	MaxContentLen      int       `yaml:"max_content_len"`
}

// DigestConfig controls the scheduled inbox digest job.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// Defaults applied when the corresponding config values are absent.
const (
	DefaultPollInterval       = 5 * time.Second
	DefaultMaxAttachmentBytes = 5 * 1024 * 1024
	DefaultMaxContentLen      = 65536
)

// PollInterval returns the configured poll interval or the default.
func (c *Config) PollInterval() time.Duration {
	if d := c.Sync.PollInterval.Duration(); d > 0 {
		return d
	}
	return DefaultPollInterval
}

// MaxAttachmentBytes returns the configured attachment cap or the default.
func (c *Config) MaxAttachmentBytes() int64 {
	if v := c.Messaging.MaxAttachmentBytes.Int64(); v > 0 {
		return v
	}
	return DefaultMaxAttachmentBytes
}

// MaxContentLen returns the configured content length cap or the default.
func (c *Config) MaxContentLen() int {
	if v := c.Messaging.MaxContentLen; v > 0 {
		return v
	}
	return DefaultMaxContentLen
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "5MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
