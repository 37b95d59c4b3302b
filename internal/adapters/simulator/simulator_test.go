package simulator

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/streamwindow/internal/domain"
)

type recorder struct {
	mu       sync.Mutex
	payloads [][]byte
	states   []bool
}

func (r *recorder) OnNotification(raw []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, append([]byte(nil), raw...))
}

func (r *recorder) OnConnectionState(connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, connected)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestSimulatorSample(t *testing.T) {
	s, err := New(Config{Amplitude: 100, Frequency: 1})
	require.NoError(t, err)

	require.Equal(t, int64(0), s.sample(0))
	require.Equal(t, int64(100), s.sample(0.25))
	require.Equal(t, int64(-100), s.sample(0.75))
	require.Equal(t, []byte("SIM:-100"), s.payload(-100))
}

func TestSimulatorBinaryPayload(t *testing.T) {
	s, err := New(Config{Amplitude: 100, Binary: true})
	require.NoError(t, err)

	raw := s.payload(-100)
	require.Len(t, raw, 8)
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(raw))
}

func TestSimulatorEmitsAndStops(t *testing.T) {
	s, err := New(Config{Interval: time.Millisecond})
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, s.Start(context.Background(), rec))
	require.Error(t, s.Start(context.Background(), rec))

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	n := rec.count()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, n, rec.count(), "no notifications after Stop")
	require.Equal(t, []bool{true, false}, rec.states)
}

func TestSimulatorControlPausesEmission(t *testing.T) {
	s, err := New(Config{Interval: time.Millisecond})
	require.NoError(t, err)
	require.ErrorIs(t, s.SendControl(ControlOn), domain.ErrProducerClosed)

	rec := &recorder{}
	require.NoError(t, s.Start(context.Background(), rec))
	defer s.Stop()

	require.NoError(t, s.SendControl(ControlOff))
	time.Sleep(5 * time.Millisecond)
	n := rec.count()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, n, rec.count())

	require.NoError(t, s.SendControl(ControlOn))
	require.Eventually(t, func() bool { return rec.count() > n }, time.Second, time.Millisecond)
	require.NoError(t, s.SendControl(0x7f))
}

func TestConfigValidate(t *testing.T) {
	_, err := New(Config{Amplitude: -1})
	require.Error(t, err)
}
