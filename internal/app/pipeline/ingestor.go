package pipeline

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Ingestor is the notification boundary handed to producers. It decodes each
// payload and pushes the point into the ingest channel.
type Ingestor struct {
	decoder       ports.Decoder
	ch            ports.IngestChannel
	obs           ports.Observability
	inactiveAfter time.Duration
	now           func() time.Time

	connected atomic.Bool
	lastSeen  atomic.Int64 // unix nanos of the last accepted notification
}

// NewIngestor builds the boundary. inactiveAfter <= 0 disables the
// staleness check so only the connection state is considered.
func NewIngestor(dec ports.Decoder, ch ports.IngestChannel, obs ports.Observability, inactiveAfter time.Duration, now func() time.Time) *Ingestor {
	if now == nil {
		now = time.Now
	}
	return &Ingestor{
		decoder:       dec,
		ch:            ch,
		obs:           obs,
		inactiveAfter: inactiveAfter,
		now:           now,
	}
}

func (in *Ingestor) OnNotification(raw []byte) {
	p, err := in.decoder.Decode(raw)
	if err != nil {
		in.obs.IncCounter(ports.MetricDecodeErrors, 1)
		if errors.Is(err, domain.ErrDecode) {
			in.obs.LogError("decode_dropped", err)
		} else {
			in.obs.LogError("decode_failed", err)
		}
		return
	}

	in.lastSeen.Store(p.Timestamp.UnixNano())
	if in.ch.Push(p) {
		in.obs.IncCounter(ports.MetricChannelDropped, 1)
		in.obs.LogError("channel_overflow_drop_oldest", domain.ErrChannelOverflow, ports.Field{Key: "len", Value: in.ch.Len()})
	}
}

func (in *Ingestor) OnConnectionState(connected bool) {
	prev := in.connected.Swap(connected)
	if prev == connected {
		return
	}
	if connected {
		in.obs.LogInfo("producer_connected")
	} else {
		in.obs.LogError("producer_disconnected", domain.ErrProducerLost)
	}
}

// ProducerActive reports whether the transport is connected and, when a
// staleness limit is set, has delivered a notification recently.
func (in *Ingestor) ProducerActive() bool {
	if !in.connected.Load() {
		return false
	}
	if in.inactiveAfter <= 0 {
		return true
	}
	last := in.lastSeen.Load()
	if last == 0 {
		return false
	}
	return in.now().Sub(time.Unix(0, last)) <= in.inactiveAfter
}

var _ ports.NotificationHandler = (*Ingestor)(nil)
