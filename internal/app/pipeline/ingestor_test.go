package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/streamwindow/internal/adapters/queue"
	"github.com/ghalamif/streamwindow/internal/app/decode"
	"github.com/ghalamif/streamwindow/internal/ports"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestIngestorDecodesBothShapes(t *testing.T) {
	clk := &clock{t: epoch}
	ch := queue.NewRingChannel(0)
	obs := newMockObs()
	in := NewIngestor(decode.New(decode.FormatText, clk.Now), ch, obs, 0, clk.Now)

	in.OnNotification([]byte("TEMP:42"))
	in.OnNotification([]byte("42"))
	in.OnNotification([]byte("abc"))

	require.Equal(t, 2, ch.Len(), "malformed payload must not be pushed")
	for i := 0; i < 2; i++ {
		p, ok := ch.Pop(0)
		require.True(t, ok)
		require.Equal(t, int64(42), p.Value)
		require.Equal(t, epoch, p.Timestamp)
	}
	require.Equal(t, 1.0, obs.counter(ports.MetricDecodeErrors))
	require.Equal(t, 1, obs.errorCount())
}

func TestIngestorCountsOverflow(t *testing.T) {
	ch := queue.NewRingChannel(2)
	obs := newMockObs()
	in := NewIngestor(decode.New(decode.FormatText, nil), ch, obs, 0, nil)

	for _, raw := range []string{"1", "2", "3", "4"} {
		in.OnNotification([]byte(raw))
	}

	require.Equal(t, 2, ch.Len())
	require.Equal(t, 2.0, obs.counter(ports.MetricChannelDropped))
	p, _ := ch.Pop(0)
	require.Equal(t, int64(3), p.Value)
}

func TestIngestorProducerActive(t *testing.T) {
	clk := &clock{t: epoch}
	in := NewIngestor(decode.New(decode.FormatText, clk.Now), queue.NewRingChannel(0), newMockObs(), 5*time.Second, clk.Now)

	require.False(t, in.ProducerActive(), "inactive before connecting")

	in.OnConnectionState(true)
	require.False(t, in.ProducerActive(), "inactive until the first notification")

	in.OnNotification([]byte("1"))
	require.True(t, in.ProducerActive())

	clk.Advance(5 * time.Second)
	require.True(t, in.ProducerActive())

	clk.Advance(time.Millisecond)
	require.False(t, in.ProducerActive(), "stale producer is reported inactive")

	in.OnNotification([]byte("2"))
	require.True(t, in.ProducerActive())

	in.OnConnectionState(false)
	require.False(t, in.ProducerActive())
}

func TestIngestorWithoutStalenessLimit(t *testing.T) {
	in := NewIngestor(decode.New(decode.FormatText, nil), queue.NewRingChannel(0), newMockObs(), 0, nil)
	in.OnConnectionState(true)
	require.True(t, in.ProducerActive())
}
