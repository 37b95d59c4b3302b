package streamwindow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	base "github.com/ghalamif/streamwindow/pkg/streamwindow"
)

// Re-exported errors for convenience.
var (
	ErrDecode                = base.ErrDecode
	ErrInvalidConfig         = base.ErrInvalidConfig
	ErrProducerClosed        = base.ErrProducerClosed
	ErrControlUnsupported    = base.ErrControlUnsupported
	ErrChannelRendererClosed = base.ErrChannelRendererClosed
)

// Type aliases so consumers can import github.com/ghalamif/streamwindow directly.
type (
	Config              = base.Config
	WindowConfig        = base.WindowConfig
	PollConfig          = base.PollConfig
	ChannelConfig       = base.ChannelConfig
	DecodeConfig        = base.DecodeConfig
	StatusConfig        = base.StatusConfig
	ProducerConfig      = base.ProducerConfig
	HTTPConfig          = base.HTTPConfig
	RenderConfig        = base.RenderConfig
	SimulatorConfig     = base.SimulatorConfig
	NATSConfig          = base.NATSConfig
	OPCUAConfig         = base.OPCUAConfig
	OPCUANodeConfig     = base.OPCUANodeConfig
	Policy              = base.Policy
	EvictionMode        = base.EvictionMode
	Flow                = base.Flow
	FlowOption          = base.FlowOption
	StreamInOption      = base.StreamInOption
	StreamOutOption     = base.StreamOutOption
	Runtime             = base.Runtime
	RuntimeOption       = base.RuntimeOption
	DataPoint           = base.DataPoint
	Snapshot            = base.Snapshot
	SnapshotPoint       = base.SnapshotPoint
	Status              = base.Status
	DecodeError         = base.DecodeError
	SnapshotFunc        = base.SnapshotFunc
	ControlFunc         = base.ControlFunc
	Producer            = base.Producer
	NotificationHandler = base.NotificationHandler
	Renderer            = base.Renderer
	IngestChannel       = base.IngestChannel
	Observability       = base.Observability
	Field               = base.Field
	ExternalProducer    = base.ExternalProducer
)

const (
	ByTime         = base.ByTime
	ByCount        = base.ByCount
	ByTimeAndCount = base.ByTimeAndCount
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInProducer(p Producer) StreamInOption {
	return base.StreamInProducer(p)
}

func StreamInChannel(ch IngestChannel) StreamInOption {
	return base.StreamInChannel(ch)
}

func StreamInClock(now func() time.Time) StreamInOption {
	return base.StreamInClock(now)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutRenderer(r Renderer) StreamOutOption {
	return base.StreamOutRenderer(r)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutRegistry(reg *prometheus.Registry) StreamOutOption {
	return base.StreamOutRegistry(reg)
}

func StreamOutCallback(name string, fn SnapshotFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithProducer(p Producer) RuntimeOption {
	return base.WithProducer(p)
}

func WithRenderer(r Renderer) RuntimeOption {
	return base.WithRenderer(r)
}

func WithIngestChannel(ch IngestChannel) RuntimeOption {
	return base.WithIngestChannel(ch)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithClock(now func() time.Time) RuntimeOption {
	return base.WithClock(now)
}

func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return base.WithRegistry(reg)
}

// Renderer adapters.
func NewCallbackRenderer(name string, fn SnapshotFunc) Renderer {
	return base.NewCallbackRenderer(name, fn)
}

func NewChannelRenderer(name string) (Renderer, <-chan Snapshot, func()) {
	return base.NewChannelRenderer(name)
}

// External producer.
func NewExternalProducer(name string, control ControlFunc) *ExternalProducer {
	return base.NewExternalProducer(name, control)
}
