package streamwindow

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var errNilFlow = errors.New("flow is nil")

// Flow reads as the data moves: Conf loads the window settings, StreamIN
// names where notifications come from and StreamOUT where snapshots go.
// Each stage only collects RuntimeOption values; nothing runs until
// StreamOUT builds the Runtime.
//
//	flow, err := streamwindow.Conf("config.yaml")
//	...
//	rt, err := flow.StreamIN(streamwindow.StreamInProducer(dev)).
//		StreamOUT(streamwindow.StreamOutCallback("plot", draw))
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

type (
	FlowOption func(*Flow)

	// StreamInOption and StreamOutOption are RuntimeOption values sorted by
	// the side of the window they touch.
	StreamInOption  RuntimeOption
	StreamOutOption RuntimeOption
)

func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config is shared with the Runtime, so edits made before StreamOUT apply.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f != nil {
		f.add(opts...)
	}
	return f
}

func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		f.add(RuntimeOption(opt))
	}
	return f
}

func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, errNilFlow
	}
	for _, opt := range opts {
		f.add(RuntimeOption(opt))
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run builds the runtime and blocks until ctx is cancelled.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

func (f *Flow) add(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) { f.add(opts...) }
}

// Producer side.

func StreamInProducer(p Producer) StreamInOption {
	if p == nil {
		return nil
	}
	return StreamInOption(WithProducer(p))
}

func StreamInChannel(ch IngestChannel) StreamInOption {
	if ch == nil {
		return nil
	}
	return StreamInOption(WithIngestChannel(ch))
}

// StreamInClock drives receive timestamps and window eviction from now,
// for replaying recorded notifications.
func StreamInClock(now func() time.Time) StreamInOption {
	if now == nil {
		return nil
	}
	return StreamInOption(WithClock(now))
}

func StreamInObservability(obs Observability) StreamInOption {
	if obs == nil {
		return nil
	}
	return StreamInOption(WithObservability(obs))
}

// Renderer side.

func StreamOutRenderer(r Renderer) StreamOutOption {
	if r == nil {
		return nil
	}
	return StreamOutOption(WithRenderer(r))
}

// StreamOutCallback renders each fresh snapshot with fn.
func StreamOutCallback(name string, fn SnapshotFunc) StreamOutOption {
	return StreamOutOption(WithRenderer(NewCallbackRenderer(name, fn)))
}

func StreamOutObservability(obs Observability) StreamOutOption {
	if obs == nil {
		return nil
	}
	return StreamOutOption(WithObservability(obs))
}

// StreamOutRegistry keeps metrics off the default registry; /metrics serves reg.
func StreamOutRegistry(reg *prometheus.Registry) StreamOutOption {
	if reg == nil {
		return nil
	}
	return StreamOutOption(WithRegistry(reg))
}
