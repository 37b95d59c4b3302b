package streamwindow

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelRendererClosed is returned when a channel renderer is written to after being closed.
var ErrChannelRendererClosed = errors.New("streamwindow: channel renderer closed")

// SnapshotFunc is invoked with every snapshot the renderer picks up.
type SnapshotFunc func(Snapshot) error

// NewCallbackRenderer adapts a SnapshotFunc into a full ports.Renderer implementation so
// callers can plug arbitrary functions without defining structs.
func NewCallbackRenderer(name string, fn SnapshotFunc) Renderer {
	if name == "" {
		name = "callback"
	}
	return &callbackRenderer{name: name, fn: fn}
}

// NewChannelRenderer exposes snapshots via a single-slot channel; a snapshot
// the reader has not taken yet is replaced by the next one. It returns the
// renderer, the read-only channel, and a close function that the caller
// should invoke during shutdown.
func NewChannelRenderer(name string) (Renderer, <-chan Snapshot, func()) {
	if name == "" {
		name = "channel"
	}
	ch := make(chan Snapshot, 1)
	r := &channelRenderer{name: name, ch: ch}
	return r, ch, r.close
}

type callbackRenderer struct {
	name string
	fn   SnapshotFunc
}

func (r *callbackRenderer) Render(ctx context.Context, snap Snapshot) error {
	if r.fn == nil {
		return fmt.Errorf("callback renderer %q: nil handler", r.name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.fn(snap)
}

func (r *callbackRenderer) Name() string { return r.name }

type channelRenderer struct {
	name string

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

func (r *channelRenderer) Render(ctx context.Context, snap Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrChannelRendererClosed
	}
	for {
		select {
		case r.ch <- snap:
			return nil
		default:
		}
		select {
		case <-r.ch:
		default:
		}
	}
}

func (r *channelRenderer) Name() string { return r.name }

func (r *channelRenderer) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}
