package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Defaults applied where the file, environment, and flags are silent
const (
	DefaultPort            = 554
	DefaultSampleRate      = 8000
	DefaultVolume          = 0.5
	DefaultMaxLeadMs       = 2000
	DefaultSpeedMultiplier = 1.0
	DefaultTickMs          = 10
	DefaultQueueLimit      = 50000
)

// Config represents the complete intercom streamer configuration
type Config struct {
	Targets []TargetConfig `yaml:"targets"`
	Audio   AudioConfig    `yaml:"audio"`
	Pacing  PacingConfig   `yaml:"pacing"`
	Queue   QueueConfig    `yaml:"queue"`
	HTTP    HTTPConfig     `yaml:"http"`
	Logging LoggingConfig  `yaml:"logging"`
}

// TargetConfig identifies one destination device
type TargetConfig struct {
	Address    string `yaml:"address"`
	Port       int    `yaml:"port"`
	SampleRate int    `yaml:"sample_rate"`
}

// AudioConfig describes the source audio and decode parameters
type AudioConfig struct {
	File       string  `yaml:"file"`
	SampleRate int     `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
}

// PacingConfig tunes the real-time throttling algorithm
type PacingConfig struct {
	MaxLeadMs       int     `yaml:"max_lead_ms"`
	SpeedMultiplier float64 `yaml:"speed_multiplier"`
	TickMs          int     `yaml:"tick_ms"`
}

// QueueConfig bounds per-target buffering while a device is unreachable
type QueueConfig struct {
	MaxUnconnected int `yaml:"max_unconnected"`
}

// HTTPConfig controls the optional status/metrics endpoint
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// envOverrides are applied on top of the file for containerized runs
type envOverrides struct {
	Targets  string `env:"INTERCOM_TARGETS"`  // comma-separated addresses
	LogLevel string `env:"INTERCOM_LOG_LEVEL"`
	HTTPAddr string `env:"INTERCOM_HTTP_ADDR"` // host:port, enables the endpoint
}

// Default returns a configuration with every default applied and no targets.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: DefaultSampleRate,
			Volume:     DefaultVolume,
		},
		Pacing: PacingConfig{
			MaxLeadMs:       DefaultMaxLeadMs,
			SpeedMultiplier: DefaultSpeedMultiplier,
			TickMs:          DefaultTickMs,
		},
		Queue: QueueConfig{
			MaxUnconnected: DefaultQueueLimit,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file (optional), applies environment
// overrides, and fills defaults. Validation is deferred to Validate so the
// CLI can merge its flags first.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	cfg.fillDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(ctx context.Context) error {
	var env envOverrides
	if err := envconfig.Process(ctx, &env); err != nil {
		return err
	}

	if env.Targets != "" {
		c.Targets = nil
		for _, addr := range strings.Split(env.Targets, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			c.Targets = append(c.Targets, TargetConfig{Address: addr})
		}
	}

	if env.LogLevel != "" {
		c.Logging.Level = env.LogLevel
	}

	if env.HTTPAddr != "" {
		host, port, found := strings.Cut(env.HTTPAddr, ":")
		if !found {
			return fmt.Errorf("INTERCOM_HTTP_ADDR must be host:port, got %q", env.HTTPAddr)
		}
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
			return fmt.Errorf("INTERCOM_HTTP_ADDR has invalid port %q", port)
		}
		c.HTTP.Enabled = true
		c.HTTP.Address = host
		c.HTTP.Port = p
	}

	return nil
}

// fillDefaults backfills zero values, including per-target fallbacks to the
// global audio sample rate and default port.
func (c *Config) fillDefaults() {
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = DefaultSampleRate
	}
	if c.Audio.Volume == 0 {
		c.Audio.Volume = DefaultVolume
	}
	if c.Pacing.MaxLeadMs == 0 {
		c.Pacing.MaxLeadMs = DefaultMaxLeadMs
	}
	if c.Pacing.SpeedMultiplier == 0 {
		c.Pacing.SpeedMultiplier = DefaultSpeedMultiplier
	}
	if c.Pacing.TickMs == 0 {
		c.Pacing.TickMs = DefaultTickMs
	}
	if c.Queue.MaxUnconnected == 0 {
		c.Queue.MaxUnconnected = DefaultQueueLimit
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	for i := range c.Targets {
		if c.Targets[i].Port == 0 {
			c.Targets[i].Port = DefaultPort
		}
		if c.Targets[i].SampleRate == 0 {
			c.Targets[i].SampleRate = c.Audio.SampleRate
		}
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	for i, t := range c.Targets {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Pacing.Validate(); err != nil {
		return fmt.Errorf("pacing config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates one target
func (t *TargetConfig) Validate() error {
	if t.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	if t.Port < 1 || t.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", t.Port)
	}

	if t.SampleRate < 8000 || t.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", t.SampleRate)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.File == "" {
		return fmt.Errorf("file cannot be empty")
	}

	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.Volume < 0 || a.Volume > 2.0 {
		return fmt.Errorf("volume must be between 0.0 and 2.0, got %f", a.Volume)
	}

	return nil
}

// Validate validates pacing configuration
func (p *PacingConfig) Validate() error {
	if p.MaxLeadMs < 0 {
		return fmt.Errorf("max_lead_ms cannot be negative, got %d", p.MaxLeadMs)
	}

	if p.SpeedMultiplier <= 0 {
		return fmt.Errorf("speed_multiplier must be positive, got %f", p.SpeedMultiplier)
	}

	if p.TickMs < 1 || p.TickMs > 1000 {
		return fmt.Errorf("tick_ms must be between 1 and 1000, got %d", p.TickMs)
	}

	return nil
}

// Validate validates queue configuration
func (q *QueueConfig) Validate() error {
	if q.MaxUnconnected < 1 {
		return fmt.Errorf("max_unconnected must be at least 1, got %d", q.MaxUnconnected)
	}
	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
		}
		if h.Address == "" {
			return fmt.Errorf("address cannot be empty when HTTP is enabled")
		}
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// MaxLead returns the pacing lead window as a time.Duration
func (p *PacingConfig) MaxLead() time.Duration {
	return time.Duration(p.MaxLeadMs) * time.Millisecond
}

// Tick returns the pacing tick interval as a time.Duration
func (p *PacingConfig) Tick() time.Duration {
	return time.Duration(p.TickMs) * time.Millisecond
}
