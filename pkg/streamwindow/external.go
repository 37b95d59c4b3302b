package streamwindow

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// ControlFunc receives control bytes for an ExternalProducer.
type ControlFunc func(b byte) error

// ExternalProducer lets an embedding program act as the transport: it owns
// the device connection (a BLE stack, a serial port, a test harness) and
// pushes every notification it receives through Notify.
type ExternalProducer struct {
	name    string
	control ControlFunc

	mu      sync.RWMutex
	handler ports.NotificationHandler
	stopped bool
}

// NewExternalProducer builds a producer that forwards control bytes to
// control. A nil control makes SendControl return ErrControlUnsupported.
func NewExternalProducer(name string, control ControlFunc) *ExternalProducer {
	if name == "" {
		name = "external"
	}
	return &ExternalProducer{name: name, control: control}
}

func (p *ExternalProducer) Name() string { return p.name }

func (p *ExternalProducer) Start(ctx context.Context, h ports.NotificationHandler) error {
	if h == nil {
		return fmt.Errorf("external producer %q: nil handler", p.name)
	}
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return domain.ErrProducerClosed
	}
	p.handler = h
	p.mu.Unlock()

	h.OnConnectionState(true)
	return nil
}

func (p *ExternalProducer) Stop() error {
	p.mu.Lock()
	h := p.handler
	p.handler = nil
	p.stopped = true
	p.mu.Unlock()

	if h != nil {
		h.OnConnectionState(false)
	}
	return nil
}

// Notify delivers one raw payload. It returns ErrProducerClosed before Start
// and after Stop.
func (p *ExternalProducer) Notify(raw []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.handler == nil {
		return domain.ErrProducerClosed
	}
	p.handler.OnNotification(raw)
	return nil
}

// SetConnected reports a transport connect/disconnect, e.g. a BLE link drop.
func (p *ExternalProducer) SetConnected(connected bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.handler == nil {
		return domain.ErrProducerClosed
	}
	p.handler.OnConnectionState(connected)
	return nil
}

func (p *ExternalProducer) SendControl(b byte) error {
	if p.control == nil {
		return domain.ErrControlUnsupported
	}
	p.mu.RLock()
	running := p.handler != nil
	p.mu.RUnlock()
	if !running {
		return domain.ErrProducerClosed
	}
	return p.control(b)
}

var _ ports.Producer = (*ExternalProducer)(nil)
