package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/streamwindow/internal/adapters/natsbridge"
	"github.com/ghalamif/streamwindow/internal/adapters/opcua"
	"github.com/ghalamif/streamwindow/internal/adapters/simulator"
	"github.com/ghalamif/streamwindow/internal/app/decode"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Producer kinds.
const (
	ProducerSimulator = "simulator"
	ProducerNATS      = "nats"
	ProducerOPCUA     = "opcua"
)

type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Poll     PollConfig     `yaml:"poll"`
	Channel  ChannelConfig  `yaml:"channel"`
	Decode   DecodeConfig   `yaml:"decode"`
	Status   StatusConfig   `yaml:"status"`
	Producer ProducerConfig `yaml:"producer"`
	HTTP     HTTPConfig     `yaml:"http"`
	Render   RenderConfig   `yaml:"render"`
}

type WindowConfig struct {
	Mode      string        `yaml:"mode"`
	Duration  time.Duration `yaml:"duration"`
	MaxPoints int           `yaml:"max_points"`
}

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type ChannelConfig struct {
	// Capacity 0 means unbounded.
	Capacity   int           `yaml:"capacity"`
	PopTimeout time.Duration `yaml:"pop_timeout"`
}

type DecodeConfig struct {
	Format string `yaml:"format"`
}

type StatusConfig struct {
	InactiveAfter time.Duration `yaml:"inactive_after"`
}

type ProducerConfig struct {
	Kind      string            `yaml:"kind"`
	Simulator simulator.Config  `yaml:"simulator"`
	NATS      natsbridge.Config `yaml:"nats"`
	OPCUA     opcua.Config      `yaml:"opcua"`
}

type HTTPConfig struct {
	// Addr empty disables the HTTP surface.
	Addr string `yaml:"addr"`
}

type RenderConfig struct {
	Terminal bool   `yaml:"terminal"`
	Label    string `yaml:"label"`
}

// Default returns the configuration used when no file is given: a 10s time
// window polled every 500ms over the built-in simulator.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	var set explicitDurations
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	set.restore(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// explicitDurations records which durations the file spelled out, so an
// explicit zero is validated instead of being replaced by a default.
type explicitDurations struct {
	Window struct {
		Duration *time.Duration `yaml:"duration"`
	} `yaml:"window"`
	Poll struct {
		Interval *time.Duration `yaml:"interval"`
	} `yaml:"poll"`
	Channel struct {
		PopTimeout *time.Duration `yaml:"pop_timeout"`
	} `yaml:"channel"`
	Status struct {
		InactiveAfter *time.Duration `yaml:"inactive_after"`
	} `yaml:"status"`
}

func (e explicitDurations) restore(c *Config) {
	if e.Window.Duration != nil {
		c.Window.Duration = *e.Window.Duration
	}
	if e.Poll.Interval != nil {
		c.Poll.Interval = *e.Poll.Interval
	}
	if e.Channel.PopTimeout != nil {
		c.Channel.PopTimeout = *e.Channel.PopTimeout
	}
	// inactive_after: 0 turns the staleness check off.
	if e.Status.InactiveAfter != nil {
		c.Status.InactiveAfter = *e.Status.InactiveAfter
	}
}

func (c *Config) applyDefaults() {
	if c.Window.Mode == "" {
		switch {
		case c.Window.MaxPoints != 0 && c.Window.Duration != 0:
			c.Window.Mode = "both"
		case c.Window.MaxPoints != 0:
			c.Window.Mode = "count"
		default:
			c.Window.Mode = "time"
		}
	}
	if c.Window.Duration == 0 && c.Window.Mode != "count" {
		c.Window.Duration = 10 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 500 * time.Millisecond
	}
	if c.Channel.PopTimeout == 0 {
		c.Channel.PopTimeout = time.Second
	}
	if c.Decode.Format == "" {
		c.Decode.Format = string(decode.FormatText)
	}
	if c.Status.InactiveAfter == 0 {
		c.Status.InactiveAfter = 5 * time.Second
	}
	if c.Producer.Kind == "" {
		c.Producer.Kind = ProducerSimulator
	}
	if c.Render.Label == "" {
		c.Render.Label = "value"
	}

	switch c.Producer.Kind {
	case ProducerSimulator:
		c.Producer.Simulator.ApplyDefaults()
	case ProducerNATS:
		c.Producer.NATS.ApplyDefaults()
	case ProducerOPCUA:
		c.Producer.OPCUA.ApplyDefaults()
	}
}

// Policy converts the window section into an eviction policy.
func (c *Config) Policy() (ports.Policy, error) {
	mode, err := ports.ParseEvictionMode(c.Window.Mode)
	if err != nil {
		return ports.Policy{}, err
	}
	return ports.Policy{Mode: mode, Duration: c.Window.Duration, MaxPoints: c.Window.MaxPoints}, nil
}

func (c *Config) Validate() error {
	if err := c.ValidatePipeline(); err != nil {
		return err
	}
	if err := c.validateProducer(); err != nil {
		return err
	}
	return c.validateFormat()
}

// validateFormat rejects producers whose payloads the configured decoder
// can never read.
func (c *Config) validateFormat() error {
	format, err := decode.ParseFormat(c.Decode.Format)
	if err != nil {
		return err
	}
	switch c.Producer.Kind {
	case ProducerSimulator:
		want := decode.FormatText
		if c.Producer.Simulator.Binary {
			want = decode.FormatLittleEndian
		}
		if format != want {
			return domain.ConfigError("decode.format", "simulator (binary=%t) emits %s payloads, got %q",
				c.Producer.Simulator.Binary, want, c.Decode.Format)
		}
	case ProducerOPCUA:
		if format != decode.FormatText {
			return domain.ConfigError("decode.format", "opcua emits text payloads, got %q", c.Decode.Format)
		}
	}
	return nil
}

// ValidatePipeline checks everything except the producer section, for
// callers that bring their own producer.
func (c *Config) ValidatePipeline() error {
	pol, err := c.Policy()
	if err != nil {
		return err
	}
	if err := pol.Validate(); err != nil {
		return err
	}
	if c.Poll.Interval <= 0 {
		return domain.ConfigError("poll.interval", "must be > 0, got %s", c.Poll.Interval)
	}
	if c.Channel.Capacity < 0 {
		return domain.ConfigError("channel.capacity", "must be >= 0, got %d", c.Channel.Capacity)
	}
	if c.Channel.PopTimeout <= 0 {
		return domain.ConfigError("channel.pop_timeout", "must be > 0, got %s", c.Channel.PopTimeout)
	}
	if c.Status.InactiveAfter < 0 {
		return domain.ConfigError("status.inactive_after", "must be >= 0, got %s", c.Status.InactiveAfter)
	}
	if _, err := decode.ParseFormat(c.Decode.Format); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProducer() error {
	switch c.Producer.Kind {
	case ProducerSimulator:
		if err := c.Producer.Simulator.Validate(); err != nil {
			return fmt.Errorf("producer.simulator: %w", err)
		}
	case ProducerNATS:
		if err := c.Producer.NATS.Validate(); err != nil {
			return fmt.Errorf("producer.nats: %w", err)
		}
	case ProducerOPCUA:
		if err := c.Producer.OPCUA.Validate(); err != nil {
			return fmt.Errorf("producer.opcua: %w", err)
		}
	default:
		return domain.ConfigError("producer.kind", "unknown producer %q", c.Producer.Kind)
	}
	return nil
}
