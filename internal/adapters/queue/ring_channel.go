package queue

import (
	"sync"
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// RingChannel is an in-memory FIFO hand-off between one producer and one
// consumer. A positive capacity bounds it; when full the oldest unconsumed
// point is dropped so Push never waits.
type RingChannel struct {
	mu     sync.Mutex
	data   []domain.DataPoint
	head   int
	cap    int
	closed bool

	ready chan struct{}
	done  chan struct{}
}

// NewRingChannel returns a channel holding at most capacity points, or an
// unbounded one when capacity <= 0.
func NewRingChannel(capacity int) *RingChannel {
	if capacity < 0 {
		capacity = 0
	}
	initial := capacity
	if initial == 0 || initial > 1024 {
		initial = 1024
	}
	return &RingChannel{
		data:  make([]domain.DataPoint, 0, initial),
		cap:   capacity,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (q *RingChannel) Push(p domain.DataPoint) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	dropped := false
	if q.cap > 0 && q.lenLocked() >= q.cap {
		q.head++
		dropped = true
	}
	q.compactLocked()
	q.data = append(q.data, p)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped
}

func (q *RingChannel) Pop(timeout time.Duration) (domain.DataPoint, bool) {
	var timer *time.Timer
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return domain.DataPoint{}, false
		}
		if q.lenLocked() > 0 {
			p := q.data[q.head]
			q.data[q.head] = domain.DataPoint{}
			q.head++
			if q.head == len(q.data) {
				q.data = q.data[:0]
				q.head = 0
			}
			q.mu.Unlock()
			return p, true
		}
		q.mu.Unlock()

		if timeout <= 0 {
			return domain.DataPoint{}, false
		}
		if timer == nil {
			timer = time.NewTimer(timeout)
			defer timer.Stop()
		}
		select {
		case <-q.ready:
		case <-q.done:
			return domain.DataPoint{}, false
		case <-timer.C:
			return domain.DataPoint{}, false
		}
	}
}

func (q *RingChannel) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *RingChannel) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.data = nil
	q.head = 0
	close(q.done)
}

func (q *RingChannel) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *RingChannel) lenLocked() int { return len(q.data) - q.head }

// compactLocked reclaims the consumed prefix once it dominates the slice.
func (q *RingChannel) compactLocked() {
	if q.head == 0 || q.head < len(q.data)/2 {
		return
	}
	n := copy(q.data, q.data[q.head:])
	clear(q.data[n:])
	q.data = q.data[:n]
	q.head = 0
}

var _ ports.IngestChannel = (*RingChannel)(nil)
