// Package window holds the time- and count-bounded series the pipeline
// renders from.
package window

import (
	"sync"
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Stats reports lifetime counters for a Buffer.
type Stats struct {
	Len       int
	Appended  uint64
	Evicted   uint64
	Anomalies uint64
}

// Option customizes a Buffer.
type Option func(*Buffer)

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) {
		if now != nil {
			b.now = now
		}
	}
}

// Buffer is an append-ordered series of points. Points are expected in
// non-decreasing timestamp order; eviction trims from the head only.
type Buffer struct {
	mu     sync.Mutex
	policy ports.Policy
	now    func() time.Time

	points []domain.DataPoint
	head   int

	appended  uint64
	evicted   uint64
	anomalies uint64
}

// New validates the policy and returns an empty Buffer.
func New(policy ports.Policy, opts ...Option) (*Buffer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	b := &Buffer{
		policy: policy,
		now:    time.Now,
	}
	if policy.Mode&ports.ByCount != 0 {
		b.points = make([]domain.DataPoint, 0, policy.MaxPoints)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b, nil
}

// Policy returns the eviction policy the buffer was built with.
func (b *Buffer) Policy() ports.Policy { return b.policy }

// Append adds p at the tail. It reports true when p is older than the current
// tail; such points are kept in append order rather than re-sorted.
func (b *Buffer) Append(p domain.DataPoint) (anomaly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.points); n > b.head && p.Timestamp.Before(b.points[n-1].Timestamp) {
		anomaly = true
		b.anomalies++
	}
	b.compactLocked()
	b.points = append(b.points, p)
	b.appended++

	if b.policy.Mode&ports.ByCount != 0 {
		if over := b.lenLocked() - b.policy.MaxPoints; over > 0 {
			b.trimLocked(over)
		}
	}
	return anomaly
}

// EvictExpired drops head points with Timestamp < now - Duration and returns
// how many were removed. It is a no-op unless time eviction is enabled.
func (b *Buffer) EvictExpired(now time.Time) int {
	if b.policy.Mode&ports.ByTime == 0 {
		return 0
	}
	cutoff := now.Add(-b.policy.Duration)

	b.mu.Lock()
	defer b.mu.Unlock()

	k := 0
	for i := b.head; i < len(b.points) && b.points[i].Timestamp.Before(cutoff); i++ {
		k++
	}
	b.trimLocked(k)
	return k
}

// Snapshot copies the current contents relative to the buffer clock.
func (b *Buffer) Snapshot() domain.Snapshot {
	b.mu.Lock()
	captured := b.now()
	live := b.points[b.head:]
	out := make([]domain.SnapshotPoint, len(live))
	for i, p := range live {
		out[i] = domain.SnapshotPoint{
			RelativeTime: domain.Relative(p.Timestamp, captured),
			Value:        p.Value,
		}
	}
	b.mu.Unlock()

	return domain.Snapshot{Points: out, CapturedAt: captured}
}

// Len returns the number of retained points.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lenLocked()
}

func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Len:       b.lenLocked(),
		Appended:  b.appended,
		Evicted:   b.evicted,
		Anomalies: b.anomalies,
	}
}

func (b *Buffer) lenLocked() int { return len(b.points) - b.head }

func (b *Buffer) trimLocked(k int) {
	if k <= 0 {
		return
	}
	clear(b.points[b.head : b.head+k])
	b.head += k
	b.evicted += uint64(k)
	if b.head == len(b.points) {
		b.points = b.points[:0]
		b.head = 0
	}
}

func (b *Buffer) compactLocked() {
	if b.head == 0 || b.head < len(b.points)/2 {
		return
	}
	n := copy(b.points, b.points[b.head:])
	clear(b.points[n:])
	b.points = b.points[:n]
	b.head = 0
}
