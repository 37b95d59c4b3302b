// Package natsbridge receives device notifications relayed over NATS and
// publishes control bytes back on a separate subject.
package natsbridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

type Config struct {
	URL            string        `yaml:"url"`
	Subject        string        `yaml:"subject"`
	ControlSubject string        `yaml:"control_subject"`
	ClientName     string        `yaml:"client_name"`
	ReconnectWait  time.Duration `yaml:"reconnect_wait"`
}

func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.ClientName == "" {
		c.ClientName = "streamwindow"
	}
	if c.ReconnectWait <= 0 {
		c.ReconnectWait = 2 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Subject == "" {
		return errors.New("subject is required")
	}
	if c.ControlSubject != "" && c.ControlSubject == c.Subject {
		return errors.New("control_subject must differ from subject")
	}
	return nil
}

// Bridge is a ports.Producer backed by a NATS subscription. NATS delivers
// messages of one subscription sequentially, so the handler never runs
// concurrently with itself.
type Bridge struct {
	cfg Config

	mu     sync.Mutex
	nc     *nats.Conn
	sub    *nats.Subscription
	stopCh chan struct{}
}

func New(cfg Config) (*Bridge, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bridge{cfg: cfg}, nil
}

func (b *Bridge) Name() string { return "nats" }

func (b *Bridge) Start(ctx context.Context, h ports.NotificationHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nc != nil {
		return fmt.Errorf("nats bridge already started")
	}

	nc, err := nats.Connect(b.cfg.URL, b.options(h)...)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", b.cfg.URL, err)
	}
	log.Printf("nats: connected to %s", nc.ConnectedUrl())

	sub, err := nc.Subscribe(b.cfg.Subject, b.handleMsg(h))
	if err != nil {
		nc.Close()
		return fmt.Errorf("nats subscribe %q: %w", b.cfg.Subject, err)
	}

	stopCh := make(chan struct{})
	b.nc = nc
	b.sub = sub
	b.stopCh = stopCh
	h.OnConnectionState(true)

	go b.stopOnDone(ctx, stopCh)
	return nil
}

func (b *Bridge) Stop() error {
	b.mu.Lock()
	nc, sub, stopCh := b.nc, b.sub, b.stopCh
	b.nc, b.sub, b.stopCh = nil, nil, nil
	b.mu.Unlock()

	if nc == nil {
		return nil
	}
	close(stopCh)
	var err error
	if sub != nil {
		if e := sub.Unsubscribe(); e != nil && !errors.Is(e, nats.ErrConnectionClosed) {
			err = e
		}
	}
	nc.Close()
	return err
}

// stopOnDone stops the bridge when ctx ends and returns early if Stop was
// called directly.
func (b *Bridge) stopOnDone(ctx context.Context, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
		_ = b.Stop()
	case <-stop:
	}
}

// SendControl publishes b as a one-byte message on the control subject.
func (b *Bridge) SendControl(c byte) error {
	if b.cfg.ControlSubject == "" {
		return domain.ErrControlUnsupported
	}
	b.mu.Lock()
	nc := b.nc
	b.mu.Unlock()
	if nc == nil {
		return domain.ErrProducerClosed
	}
	if err := nc.Publish(b.cfg.ControlSubject, []byte{c}); err != nil {
		return fmt.Errorf("nats publish control: %w", err)
	}
	return nc.Flush()
}

func (b *Bridge) handleMsg(h ports.NotificationHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if len(msg.Data) == 0 {
			return
		}
		h.OnNotification(msg.Data)
	}
}

func (b *Bridge) options(h ports.NotificationHandler) []nats.Option {
	return []nats.Option{
		nats.Name(b.cfg.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("nats: disconnected: %v", err)
			}
			h.OnConnectionState(false)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("nats: reconnected to %s", nc.ConnectedUrl())
			h.OnConnectionState(true)
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			h.OnConnectionState(false)
		}),
	}
}

var _ ports.Producer = (*Bridge)(nil)
