package streamwindow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/streamwindow/internal/adapters/httpapi"
	"github.com/ghalamif/streamwindow/internal/adapters/natsbridge"
	"github.com/ghalamif/streamwindow/internal/adapters/observability"
	"github.com/ghalamif/streamwindow/internal/adapters/opcua"
	"github.com/ghalamif/streamwindow/internal/adapters/queue"
	"github.com/ghalamif/streamwindow/internal/adapters/simulator"
	"github.com/ghalamif/streamwindow/internal/adapters/terminal"
	"github.com/ghalamif/streamwindow/internal/app/config"
	"github.com/ghalamif/streamwindow/internal/app/decode"
	"github.com/ghalamif/streamwindow/internal/app/pipeline"
	"github.com/ghalamif/streamwindow/internal/app/window"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	producer      Producer
	renderer      Renderer
	channel       IngestChannel
	observability Observability
	clock         func() time.Time
	registry      *prometheus.Registry
}

// WithProducer injects a custom producer (BLE bridges, serial readers, replay files, etc.).
func WithProducer(p Producer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.producer = p
	}
}

// WithRenderer sets the renderer that receives every fresh snapshot.
func WithRenderer(r Renderer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.renderer = r
	}
}

// WithIngestChannel swaps the default ring channel for a caller-provided implementation.
func WithIngestChannel(ch IngestChannel) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.channel = ch
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithClock replaces time.Now for receive timestamps, eviction and snapshots.
func WithClock(now func() time.Time) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.clock = now
	}
}

// WithRegistry registers metrics on reg instead of the process-wide default
// registry and serves /metrics from it.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// Runtime wires producer → ingest channel → window → poller → renderer and
// exposes lifecycle hooks for embedding the pipeline inside any Go service.
type Runtime struct {
	cfg      *Config
	policy   ports.Policy
	obs      ports.Observability
	now      func() time.Time
	producer ports.Producer
	channel  ports.IngestChannel
	buf      *window.Buffer
	ingestor *pipeline.Ingestor
	poller   *pipeline.Poller
	http     *httpapi.Server

	mu             sync.Mutex
	started        bool
	cancelPipeline context.CancelFunc
	consumerDone   chan struct{}
	gaugeStopCh    chan struct{}
	shutdownOnce   sync.Once
	shutdownErr    error
}

// NewRuntime bootstraps the default adapters (configured producer, ring
// channel, Prometheus observability, optional terminal renderer and HTTP
// surface). RuntimeOption values override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	if overrides.producer != nil {
		if err := cfg.ValidatePipeline(); err != nil {
			return nil, err
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	format, err := decode.ParseFormat(cfg.Decode.Format)
	if err != nil {
		return nil, err
	}

	now := overrides.clock
	if now == nil {
		now = time.Now
	}

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if overrides.registry != nil {
		gatherer = overrides.registry
	}

	obs := overrides.observability
	if obs == nil {
		if overrides.registry != nil {
			obs = observability.NewPromObsWithRegisterer(overrides.registry, nil)
		} else {
			obs = observability.NewPromObs()
		}
	}

	ch := overrides.channel
	if ch == nil {
		ch = queue.NewRingChannel(cfg.Channel.Capacity)
	}

	buf, err := window.New(policy, window.WithClock(now))
	if err != nil {
		return nil, err
	}

	ingestor := pipeline.NewIngestor(decode.New(format, now), ch, obs, cfg.Status.InactiveAfter, now)

	prod := overrides.producer
	if prod == nil {
		prod, err = buildProducer(cfg)
		if err != nil {
			return nil, err
		}
	}

	rend := overrides.renderer
	if rend == nil && cfg.Render.Terminal {
		rend = terminal.New(os.Stdout, terminal.WithLabel(cfg.Render.Label))
	}

	poller, err := pipeline.NewPoller(buf, pipeline.PollerOptions{
		Interval: cfg.Poll.Interval,
		Renderer: rend,
		Active:   ingestor.ProducerActive,
		Now:      now,
	}, obs)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		cfg:      cfg,
		policy:   policy,
		obs:      obs,
		now:      now,
		producer: prod,
		channel:  ch,
		buf:      buf,
		ingestor: ingestor,
		poller:   poller,
	}
	if cfg.HTTP.Addr != "" {
		rt.http = httpapi.New(cfg.HTTP.Addr, rt, gatherer)
	}
	return rt, nil
}

func buildProducer(cfg *Config) (ports.Producer, error) {
	switch cfg.Producer.Kind {
	case config.ProducerSimulator:
		return simulator.New(cfg.Producer.Simulator)
	case config.ProducerNATS:
		return natsbridge.New(cfg.Producer.NATS)
	case config.ProducerOPCUA:
		return opcua.NewProducer(cfg.Producer.OPCUA)
	default:
		return nil, domain.ConfigError("producer.kind", "unknown producer %q", cfg.Producer.Kind)
	}
}

// Start launches the consumer, the poller, the HTTP surface and finally the
// producer. It returns immediately; call Run to block on a context instead.
// Only the producer watches ctx. The consumer and poller keep running until
// Shutdown has stopped the producer.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("runtime already started")
	}
	r.started = true
	pipelineCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	gaugeStop := make(chan struct{})
	r.cancelPipeline, r.consumerDone, r.gaugeStopCh = cancel, done, gaugeStop
	srv := r.http
	r.mu.Unlock()

	go func() {
		defer close(done)
		pipeline.RunConsumer(pipelineCtx, r.channel, r.buf, pipeline.ConsumerOptions{
			PopTimeout: r.cfg.Channel.PopTimeout,
			Now:        r.now,
		}, r.obs)
	}()
	r.poller.Start(pipelineCtx)
	go r.recordChannelGauge(gaugeStop, r.cfg.Poll.Interval)

	if srv != nil {
		if err := srv.Start(); err != nil {
			return errors.Join(err, r.stopPipeline(context.Background()))
		}
	}

	if err := r.producer.Start(ctx, r.ingestor); err != nil {
		err = fmt.Errorf("start producer %s: %w", r.producer.Name(), err)
		return errors.Join(err, r.stopPipeline(context.Background()))
	}

	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "producer", Value: r.producer.Name()},
		ports.Field{Key: "window", Value: r.policy.Mode.String()},
		ports.Field{Key: "poll_interval", Value: r.cfg.Poll.Interval})
	return nil
}

// Run starts the runtime and blocks until the provided context is cancelled.
// Upon cancellation it attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown stops the producer first so no new notifications arrive, then
// the consumer, the poller and renderer, the channel (discarding anything
// unconsumed) and the HTTP server.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() {
		var errs []error
		if err := r.producer.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop producer %s: %w", r.producer.Name(), err))
		}
		if err := r.stopPipeline(ctx); err != nil {
			errs = append(errs, err)
		}
		r.shutdownErr = errors.Join(errs...)
		r.obs.LogInfo("runtime_stopped", ports.Field{Key: "discarded", Value: r.channel.Len()})
	})
	return r.shutdownErr
}

func (r *Runtime) stopPipeline(ctx context.Context) error {
	var errs []error

	r.mu.Lock()
	cancel, done, gaugeStop, srv := r.cancelPipeline, r.consumerDone, r.gaugeStopCh, r.http
	r.cancelPipeline, r.gaugeStopCh, r.http = nil, nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("waiting for consumer: %w", ctx.Err()))
		}
	}

	r.poller.Stop()
	r.channel.Close()

	if gaugeStop != nil {
		close(gaugeStop)
	}

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest returns the most recent snapshot taken by the poller.
func (r *Runtime) Latest() (Snapshot, bool) {
	return r.poller.Latest()
}

// Status reports window counters and producer liveness.
func (r *Runtime) Status() Status {
	st := r.buf.Stats()
	out := domain.Status{
		Producer:       r.producer.Name(),
		ProducerActive: r.ingestor.ProducerActive(),
		WindowMode:     r.policy.Mode.String(),
		WindowPoints:   st.Len,
		ChannelLength:  r.channel.Len(),
		Appended:       st.Appended,
		Evicted:        st.Evicted,
		Anomalies:      st.Anomalies,
	}
	if r.policy.Mode&ports.ByTime != 0 {
		out.WindowSeconds = r.policy.Duration.Seconds()
	}
	if r.policy.Mode&ports.ByCount != 0 {
		out.MaxPoints = r.policy.MaxPoints
	}
	return out
}

// SendControl passes one opaque byte to the producer.
func (r *Runtime) SendControl(b byte) error {
	if err := r.producer.SendControl(b); err != nil {
		r.obs.LogError("control_failed", err, ports.Field{Key: "command", Value: fmt.Sprintf("%02x", b)})
		return fmt.Errorf("send control 0x%02x: %w", b, err)
	}
	r.obs.IncCounter(ports.MetricControlSent, 1)
	r.obs.LogInfo("control_sent", ports.Field{Key: "command", Value: fmt.Sprintf("%02x", b)})
	return nil
}

// OnNotification feeds a raw payload through the same decode/validate
// boundary producers use, for callers that receive notifications themselves.
func (r *Runtime) OnNotification(raw []byte) {
	r.ingestor.OnNotification(raw)
}

func (r *Runtime) recordChannelGauge(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge(ports.GaugeChannelLength, float64(r.channel.Len()))
		}
	}
}
