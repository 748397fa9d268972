package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// LogLevel defines the minimum severity for logs.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARNING"
	LogLevelError   LogLevel = "ERROR"
)

// Config is the top-level configuration structure.
type Config struct {
	Protocol *ProtocolConfig `json:"protocol,omitempty" toml:"protocol,omitempty"`
	Logging  *LoggingConfig  `json:"logging,omitempty" toml:"logging,omitempty"`
}

// ProtocolConfig holds the HTTP/2 parameters the stream engine consumes.
// Absent fields fall back to the RFC 7540 defaults.
type ProtocolConfig struct {
	InitialWindowSize  *uint32 `json:"initial_window_size,omitempty" toml:"initial_window_size,omitempty"`
	MaxFrameSize       *uint32 `json:"max_frame_size,omitempty" toml:"max_frame_size,omitempty"`
	HeaderTableSize    *uint32 `json:"header_table_size,omitempty" toml:"header_table_size,omitempty"`
	MaxHeaderEntrySize *uint32 `json:"max_header_entry_size,omitempty" toml:"max_header_entry_size,omitempty"`
	EnablePush         *bool   `json:"enable_push,omitempty" toml:"enable_push,omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	LogLevel LogLevel `json:"log_level,omitempty" toml:"log_level,omitempty"`
	// Target is "stdout", "stderr", or a file path.
	Target string `json:"target,omitempty" toml:"target,omitempty"`
}

const (
	maxWindowSize       = (1 << 31) - 1
	minAllowedFrameSize = 16384
	maxAllowedFrameSize = (1 << 24) - 1
)

// Load reads a configuration file, decoding TOML or JSON by file extension
// (TOML when the extension is ambiguous), then applies defaults and
// validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills absent sections and fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Protocol == nil {
		c.Protocol = &ProtocolConfig{}
	}
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = LogLevelInfo
	}
	if c.Logging.Target == "" {
		c.Logging.Target = "stderr"
	}
}

// Validate checks the configured values against their protocol bounds.
func (c *Config) Validate() error {
	if p := c.Protocol; p != nil {
		if p.InitialWindowSize != nil && *p.InitialWindowSize > maxWindowSize {
			return fmt.Errorf("initial_window_size %d exceeds maximum %d", *p.InitialWindowSize, int64(maxWindowSize))
		}
		if p.MaxFrameSize != nil && (*p.MaxFrameSize < minAllowedFrameSize || *p.MaxFrameSize > maxAllowedFrameSize) {
			return fmt.Errorf("max_frame_size %d outside allowed range [%d, %d]", *p.MaxFrameSize, minAllowedFrameSize, maxAllowedFrameSize)
		}
		if p.MaxHeaderEntrySize != nil && *p.MaxHeaderEntrySize == 0 {
			return fmt.Errorf("max_header_entry_size must be positive")
		}
	}
	if l := c.Logging; l != nil {
		switch l.LogLevel {
		case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		default:
			return fmt.Errorf("invalid log_level %q", l.LogLevel)
		}
	}
	return nil
}

// IsFilePath reports whether a logging target names a file rather than a
// standard stream.
func IsFilePath(target string) bool {
	return target != "stdout" && target != "stderr"
}
