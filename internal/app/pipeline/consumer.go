package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/streamwindow/internal/app/window"
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// ConsumerOptions tunes RunConsumer.
type ConsumerOptions struct {
	// PopTimeout bounds each wait on the channel and is the shutdown-check
	// granularity. It is independent of the poll interval.
	PopTimeout time.Duration
	Now        func() time.Time
}

// RunConsumer drains ch into buf until ctx is cancelled or ch is closed.
// It is the only caller of buf.Append.
func RunConsumer(ctx context.Context, ch ports.IngestChannel, buf *window.Buffer, opts ConsumerOptions, obs ports.Observability) {
	timeout := opts.PopTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		p, ok := ch.Pop(timeout)
		if !ok {
			if ch.Closed() {
				return
			}
			continue
		}
		if ctx.Err() != nil {
			return
		}

		if buf.Append(p) {
			obs.IncCounter(ports.MetricAnomalies, 1)
			obs.LogError("monotonicity_anomaly", domain.ErrMonotonicity,
				ports.Field{Key: "value", Value: p.Value},
				ports.Field{Key: "ts", Value: p.Timestamp})
		}
		obs.IncCounter(ports.MetricPointsIngested, 1)

		if n := buf.EvictExpired(now()); n > 0 {
			obs.IncCounter(ports.MetricPointsEvicted, float64(n))
		}
	}
}
