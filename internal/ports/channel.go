package ports

import (
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
)

// IngestChannel hands points from the producer context to the consumer
// context in strict FIFO order.
type IngestChannel interface {
	// Push never blocks on the consumer. It reports whether the oldest
	// unconsumed point was dropped to make room.
	Push(p domain.DataPoint) (dropped bool)
	// Pop waits up to timeout for a point. It returns false on timeout and
	// immediately once the channel is closed.
	Pop(timeout time.Duration) (domain.DataPoint, bool)
	Len() int
	// Close discards unconsumed points and releases waiting consumers.
	Close()
	Closed() bool
}
