package streamwindow

import (
	"github.com/ghalamif/streamwindow/internal/adapters/natsbridge"
	"github.com/ghalamif/streamwindow/internal/adapters/opcua"
	"github.com/ghalamif/streamwindow/internal/adapters/simulator"
	"github.com/ghalamif/streamwindow/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// WindowConfig selects the eviction mode and its limits.
	WindowConfig = config.WindowConfig
	// PollConfig sets the snapshot cadence.
	PollConfig = config.PollConfig
	// ChannelConfig bounds the ingest channel.
	ChannelConfig = config.ChannelConfig
	// DecodeConfig picks the payload format.
	DecodeConfig = config.DecodeConfig
	// StatusConfig tunes the producer liveness flag.
	StatusConfig = config.StatusConfig
	// ProducerConfig selects and configures the built-in producer.
	ProducerConfig = config.ProducerConfig
	// HTTPConfig configures the snapshot/control/metrics server.
	HTTPConfig = config.HTTPConfig
	// RenderConfig enables the terminal renderer.
	RenderConfig = config.RenderConfig
	// SimulatorConfig configures the sine-wave producer.
	SimulatorConfig = simulator.Config
	// NATSConfig configures the NATS subject bridge.
	NATSConfig = natsbridge.Config
	// OPCUAConfig holds connection + node details.
	OPCUAConfig = opcua.Config
	// OPCUANodeConfig describes a monitored node.
	OPCUANodeConfig = opcua.NodeConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a validated configuration for the built-in simulator.
func DefaultConfig() *Config {
	return config.Default()
}
