// Package simulator produces a sine wave so the pipeline can run without a
// peer device.
package simulator

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Control bytes understood by the simulator, matching the device's LED
// commands.
const (
	ControlOff byte = 0x00
	ControlOn  byte = 0x01
)

type Config struct {
	Label     string        `yaml:"label"`
	Amplitude float64       `yaml:"amplitude"`
	Frequency float64       `yaml:"frequency_hz"`
	Interval  time.Duration `yaml:"interval"`
	// Binary emits 8-byte little-endian payloads offset by Amplitude so they
	// stay non-negative.
	Binary bool `yaml:"binary"`
}

func (c *Config) ApplyDefaults() {
	if c.Label == "" {
		c.Label = "SIM"
	}
	if c.Amplitude == 0 {
		c.Amplitude = 1000
	}
	if c.Frequency == 0 {
		c.Frequency = 1
	}
	if c.Interval <= 0 {
		c.Interval = 50 * time.Millisecond
	}
}

func (c *Config) Validate() error {
	if c.Amplitude < 0 {
		return fmt.Errorf("amplitude must be >= 0")
	}
	if c.Frequency < 0 {
		return fmt.Errorf("frequency_hz must be >= 0")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0")
	}
	return nil
}

type Simulator struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	handler ports.NotificationHandler
	started bool
	paused  bool
	wg      sync.WaitGroup
}

func New(cfg Config) (*Simulator, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{cfg: cfg, now: time.Now}, nil
}

func (s *Simulator) Name() string { return "simulator" }

func (s *Simulator) Start(ctx context.Context, h ports.NotificationHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("simulator already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.handler = h
	s.started = true

	h.OnConnectionState(true)
	s.wg.Add(1)
	go s.run(ctx, h)
	return nil
}

func (s *Simulator) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	h := s.handler
	s.started = false
	s.cancel = nil
	s.handler = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	h.OnConnectionState(false)
	return nil
}

// SendControl pauses emission on ControlOff and resumes it on ControlOn.
// Other bytes are accepted and ignored.
func (s *Simulator) SendControl(b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return domain.ErrProducerClosed
	}
	switch b {
	case ControlOff:
		s.paused = true
	case ControlOn:
		s.paused = false
	default:
		log.Printf("simulator: ignoring control byte 0x%02x", b)
	}
	return nil
}

func (s *Simulator) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Simulator) run(ctx context.Context, h ports.NotificationHandler) {
	defer s.wg.Done()

	start := s.now()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.isPaused() {
				continue
			}
			elapsed := s.now().Sub(start).Seconds()
			h.OnNotification(s.payload(s.sample(elapsed)))
		}
	}
}

func (s *Simulator) sample(elapsed float64) int64 {
	return int64(math.Round(s.cfg.Amplitude * math.Sin(2*math.Pi*s.cfg.Frequency*elapsed)))
}

func (s *Simulator) payload(v int64) []byte {
	if s.cfg.Binary {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(v+int64(s.cfg.Amplitude)))
		return buf[:]
	}
	return []byte(s.cfg.Label + ":" + strconv.FormatInt(v, 10))
}

var _ ports.Producer = (*Simulator)(nil)
