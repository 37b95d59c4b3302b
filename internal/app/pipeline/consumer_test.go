package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/streamwindow/internal/adapters/queue"
	"github.com/ghalamif/streamwindow/internal/app/window"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

func startConsumer(t *testing.T, ch ports.IngestChannel, buf *window.Buffer, obs ports.Observability, now func() time.Time) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunConsumer(ctx, ch, buf, ConsumerOptions{PopTimeout: 10 * time.Millisecond, Now: now}, obs)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel, done
}

func TestConsumerAppendsInArrivalOrder(t *testing.T) {
	clk := &clock{t: epoch}
	ch := queue.NewRingChannel(0)
	buf, err := window.New(ports.Policy{Mode: ports.ByTime, Duration: time.Hour}, window.WithClock(clk.Now))
	require.NoError(t, err)
	obs := newMockObs()

	for i := int64(0); i < 100; i++ {
		ch.Push(domain.DataPoint{Value: i, Timestamp: epoch.Add(time.Duration(i) * time.Millisecond)})
	}
	startConsumer(t, ch, buf, obs, clk.Now)

	require.Eventually(t, func() bool { return buf.Len() == 100 }, time.Second, time.Millisecond)
	values := buf.Snapshot().Values()
	for i, v := range values {
		require.Equal(t, int64(i), v)
	}
	require.Equal(t, 100.0, obs.counter(ports.MetricPointsIngested))
}

func TestConsumerFlagsAnomaliesAndEvicts(t *testing.T) {
	clk := &clock{t: epoch.Add(20 * time.Second)}
	ch := queue.NewRingChannel(0)
	buf, err := window.New(ports.Policy{Mode: ports.ByTime, Duration: 10 * time.Second}, window.WithClock(clk.Now))
	require.NoError(t, err)
	obs := newMockObs()

	ch.Push(domain.DataPoint{Value: 1, Timestamp: epoch.Add(15 * time.Second)})
	ch.Push(domain.DataPoint{Value: 2, Timestamp: epoch.Add(5 * time.Second)})
	ch.Push(domain.DataPoint{Value: 3, Timestamp: epoch.Add(18 * time.Second)})
	startConsumer(t, ch, buf, obs, clk.Now)

	require.Eventually(t, func() bool { return obs.counter(ports.MetricPointsIngested) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, 1.0, obs.counter(ports.MetricAnomalies))
	require.Equal(t, []int64{1, 2, 3}, buf.Snapshot().Values(), "anomalous point behind an unexpired head stays")
}

func TestConsumerExitsOnCancel(t *testing.T) {
	ch := queue.NewRingChannel(0)
	buf, err := window.New(ports.Policy{Mode: ports.ByCount, MaxPoints: 10})
	require.NoError(t, err)

	cancel, done := startConsumer(t, ch, buf, newMockObs(), nil)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after cancellation")
	}
}

func TestConsumerExitsWhenChannelClosed(t *testing.T) {
	ch := queue.NewRingChannel(0)
	buf, err := window.New(ports.Policy{Mode: ports.ByCount, MaxPoints: 10})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		RunConsumer(ctx, ch, buf, ConsumerOptions{PopTimeout: time.Minute}, newMockObs())
		close(done)
	}()
	ch.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer kept running on a closed channel")
	}
}
