package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/streamwindow/internal/adapters/queue"
	"github.com/ghalamif/streamwindow/internal/app/decode"
	"github.com/ghalamif/streamwindow/internal/app/window"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

func newWindow(t *testing.T, clk *clock, d time.Duration) *window.Buffer {
	t.Helper()
	buf, err := window.New(ports.Policy{Mode: ports.ByTime, Duration: d}, window.WithClock(clk.Now))
	require.NoError(t, err)
	return buf
}

func TestNewPollerRejectsNonPositiveInterval(t *testing.T) {
	buf := newWindow(t, &clock{t: epoch}, time.Second)
	_, err := NewPoller(buf, PollerOptions{}, newMockObs())
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = NewPoller(buf, PollerOptions{Interval: -time.Millisecond}, newMockObs())
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestPollerTickPublishesLatest(t *testing.T) {
	clk := &clock{t: epoch}
	buf := newWindow(t, clk, 10*time.Second)
	obs := newMockObs()
	p, err := NewPoller(buf, PollerOptions{Interval: time.Second, Now: clk.Now, Active: func() bool { return false }}, obs)
	require.NoError(t, err)

	_, ok := p.Latest()
	require.False(t, ok)

	buf.Append(domain.DataPoint{Value: 9, Timestamp: epoch})
	clk.Advance(2 * time.Second)
	snap := p.Tick()

	latest, ok := p.Latest()
	require.True(t, ok)
	require.Equal(t, snap, latest)
	require.Equal(t, []int64{9}, latest.Values())
	require.Equal(t, []float64{-2}, latest.RelativeTimes())
	require.False(t, latest.ProducerActive)
	require.Equal(t, 1.0, obs.gauge(ports.GaugeWindowPoints))
	require.Equal(t, 1.0, obs.counter(ports.MetricSnapshotsPublished))
}

func TestPollerIdleProducerDrainsWindow(t *testing.T) {
	clk := &clock{t: epoch}
	buf := newWindow(t, clk, 10*time.Second)
	obs := newMockObs()
	p, err := NewPoller(buf, PollerOptions{Interval: 500 * time.Millisecond, Now: clk.Now}, obs)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		buf.Append(domain.DataPoint{Value: int64(i), Timestamp: clk.Now()})
		clk.Advance(time.Second)
	}

	prev := p.Tick().Len()
	for i := 0; i < 40; i++ {
		clk.Advance(500 * time.Millisecond)
		n := p.Tick().Len()
		require.LessOrEqual(t, n, prev, "series may only shrink while idle")
		prev = n
	}

	latest, ok := p.Latest()
	require.True(t, ok)
	require.Zero(t, latest.Len())
	require.Equal(t, 5.0, obs.counter(ports.MetricPointsEvicted))
	require.Zero(t, obs.errorCount())
}

func TestPollerLatestWinsForSlowRenderer(t *testing.T) {
	clk := &clock{t: epoch}
	buf := newWindow(t, clk, time.Minute)
	obs := newMockObs()
	r := newBlockingRenderer()
	p, err := NewPoller(buf, PollerOptions{Interval: time.Hour, Now: clk.Now, Renderer: r}, obs)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	buf.Append(domain.DataPoint{Value: 1, Timestamp: clk.Now()})
	p.Tick()
	<-r.entered

	for v := int64(2); v <= 5; v++ {
		buf.Append(domain.DataPoint{Value: v, Timestamp: clk.Now()})
		done := make(chan struct{})
		go func() {
			p.Tick()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("tick blocked on a busy renderer")
		}
	}

	r.release <- struct{}{}
	<-r.entered
	r.release <- struct{}{}

	require.Eventually(t, func() bool { return len(r.frames()) == 2 }, time.Second, time.Millisecond)
	frames := r.frames()
	require.Equal(t, []int64{1}, frames[0].Values())
	require.Equal(t, []int64{1, 2, 3, 4, 5}, frames[1].Values(), "only the newest pending frame is rendered")
	require.Equal(t, 3.0, obs.counter(ports.MetricSnapshotsSuperseded))
}

func TestPollerTicksOnTimer(t *testing.T) {
	clk := &clock{t: epoch}
	buf := newWindow(t, clk, time.Minute)
	p, err := NewPoller(buf, PollerOptions{Interval: 5 * time.Millisecond, Now: clk.Now}, newMockObs())
	require.NoError(t, err)

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		_, ok := p.Latest()
		return ok
	}, time.Second, time.Millisecond)
	p.Stop()
}

func TestPipelineEndToEnd(t *testing.T) {
	clk := &clock{t: epoch}
	ch := queue.NewRingChannel(0)
	buf := newWindow(t, clk, 10*time.Second)
	obs := newMockObs()
	in := NewIngestor(decode.New(decode.FormatText, clk.Now), ch, obs, 0, clk.Now)
	in.OnConnectionState(true)
	p, err := NewPoller(buf, PollerOptions{Interval: time.Hour, Now: clk.Now, Active: in.ProducerActive}, obs)
	require.NoError(t, err)

	startConsumer(t, ch, buf, obs, clk.Now)

	for i, sec := range []int{0, 3, 6, 9, 12} {
		clk.Set(epoch.Add(time.Duration(sec) * time.Second))
		in.OnNotification([]byte("TEMP:" + string(rune('1'+i))))
		want := float64(i + 1)
		require.Eventually(t, func() bool { return obs.counter(ports.MetricPointsIngested) == want }, time.Second, time.Millisecond)
	}

	snap := p.Tick()
	require.Equal(t, []int64{2, 3, 4, 5}, snap.Values())
	require.Equal(t, []float64{-9, -6, -3, 0}, snap.RelativeTimes())
	require.True(t, snap.ProducerActive)
}
