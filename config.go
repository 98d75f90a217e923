package modbus

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds every read and write on the stream.
const DefaultTimeout = 500 * time.Millisecond

// Config describes one client connection. An absent unit_id means
// DefaultUnitID; unit 0 is a valid identifier and is kept. A timeout_ms of 0
// or an absent key means DefaultTimeout.
type Config struct {
	Address          string `yaml:"address"`
	Port             uint16 `yaml:"port"`
	UnitID           *uint8 `yaml:"unit_id"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	ReadMode         string `yaml:"read_mode"`         // fixed | framed
	DecodeExceptions bool   `yaml:"decode_exceptions"` // report the server's exception byte
	LogLevel         string `yaml:"log_level"`
	CaptureFile      string `yaml:"capture_file"` // optional pcap output
}

// LoadConfig reads, normalizes and validates a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, fills defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.Port == 0 {
		c.Port = DefaultTCPPort
	}
	if c.UnitID == nil {
		unit := uint8(DefaultUnitID)
		c.UnitID = &unit
	}
	if c.TimeoutMs == 0 {
		c.TimeoutMs = int(DefaultTimeout / time.Millisecond)
	}
	if c.ReadMode == "" {
		c.ReadMode = ReadFixed.String()
	}
}

// Validate checks configuration correctness. It does not mutate c.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("config: address is required")
	}
	if _, err := ParseNetworkAddress(c.Address, c.portOrDefault()); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.TimeoutMs < 0 {
		return fmt.Errorf("config: timeout_ms must not be negative, got %d", c.TimeoutMs)
	}
	if _, err := ParseReadMode(c.ReadMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
			return fmt.Errorf("config: invalid log level %q: %w", c.LogLevel, err)
		}
	}
	return nil
}

// Unit returns the configured unit identifier, DefaultUnitID when unset.
func (c *Config) Unit() uint8 {
	if c.UnitID == nil {
		return DefaultUnitID
	}
	return *c.UnitID
}

// Timeout returns the configured timeout as a duration. Zero means
// DefaultTimeout, so a config cannot disable deadlines.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutMs == 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func (c *Config) portOrDefault() uint16 {
	if c.Port == 0 {
		return DefaultTCPPort
	}
	return c.Port
}
