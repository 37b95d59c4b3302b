package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/streamwindow/internal/app/window"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Poller periodically evicts and snapshots the window, keeps the latest
// snapshot for polling readers and hands it to a renderer on a separate
// goroutine. A frame the renderer has not picked up yet is replaced by the
// next one.
type Poller struct {
	buf      *window.Buffer
	interval time.Duration
	renderer ports.Renderer
	active   func() bool
	now      func() time.Time
	obs      ports.Observability

	latest atomic.Pointer[domain.Snapshot]
	frames chan domain.Snapshot

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// PollerOptions configures NewPoller. Renderer and Active are optional.
type PollerOptions struct {
	Interval time.Duration
	Renderer ports.Renderer
	Active   func() bool
	Now      func() time.Time
}

func NewPoller(buf *window.Buffer, opts PollerOptions, obs ports.Observability) (*Poller, error) {
	if buf == nil {
		return nil, errors.New("poller: window buffer is required")
	}
	if opts.Interval <= 0 {
		return nil, domain.ConfigError("poll.interval", "must be > 0, got %s", opts.Interval)
	}
	active := opts.Active
	if active == nil {
		active = func() bool { return true }
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Poller{
		buf:      buf,
		interval: opts.Interval,
		renderer: opts.Renderer,
		active:   active,
		now:      now,
		obs:      obs,
		frames:   make(chan domain.Snapshot, 1),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start launches the ticker and render goroutines. They stop when ctx is
// cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.run(ctx)
	if p.renderer != nil {
		p.wg.Add(1)
		go p.renderLoop(ctx)
	}
}

// Stop halts both goroutines and waits for them.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// Latest returns the most recent snapshot, if any tick has run.
func (p *Poller) Latest() (domain.Snapshot, bool) {
	s := p.latest.Load()
	if s == nil {
		return domain.Snapshot{}, false
	}
	return *s, true
}

// Tick runs one evict+snapshot+publish cycle.
func (p *Poller) Tick() domain.Snapshot {
	if n := p.buf.EvictExpired(p.now()); n > 0 {
		p.obs.IncCounter(ports.MetricPointsEvicted, float64(n))
		p.obs.LogInfo("window_evicted", ports.Field{Key: "points", Value: n})
	}
	snap := p.buf.Snapshot()
	snap.ProducerActive = p.active()

	p.latest.Store(&snap)
	p.obs.IncCounter(ports.MetricSnapshotsPublished, 1)
	p.obs.SetGauge(ports.GaugeWindowPoints, float64(snap.Len()))
	p.obs.SetGauge(ports.GaugeProducerUp, boolGauge(snap.ProducerActive))

	if p.renderer != nil {
		p.offer(snap)
	}
	return snap
}

func (p *Poller) offer(snap domain.Snapshot) {
	for {
		select {
		case p.frames <- snap:
			return
		default:
		}
		select {
		case <-p.frames:
			p.obs.IncCounter(ports.MetricSnapshotsSuperseded, 1)
		default:
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

func (p *Poller) renderLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case snap := <-p.frames:
			start := time.Now()
			if err := p.renderer.Render(ctx, snap); err != nil {
				p.obs.LogError("render_failed", err, ports.Field{Key: "renderer", Value: p.renderer.Name()})
				continue
			}
			p.obs.ObserveLatency(ports.LatencyRender, time.Since(start).Seconds())
		}
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
