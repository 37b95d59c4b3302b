package domain

import "time"

// DataPoint is the canonical unit of telemetry in streamwindow: one scalar
// reading and the instant it arrived.
type DataPoint struct {
	Value     int64     `json:"value"`
	Timestamp time.Time `json:"ts"`
}

// SnapshotPoint is a DataPoint expressed relative to the snapshot instant.
type SnapshotPoint struct {
	RelativeTime float64 `json:"t"`
	Value        int64   `json:"value"`
}

// Snapshot is an immutable copy of the window at CapturedAt. Points are in
// append order and RelativeTime is seconds before CapturedAt (<= 0).
type Snapshot struct {
	Points         []SnapshotPoint `json:"points"`
	CapturedAt     time.Time       `json:"captured_at"`
	ProducerActive bool            `json:"producer_active"`
}

// Len returns the number of points in the snapshot.
func (s Snapshot) Len() int { return len(s.Points) }

// Values returns the point values in order.
func (s Snapshot) Values() []int64 {
	out := make([]int64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// RelativeTimes returns the point offsets in seconds, in order.
func (s Snapshot) RelativeTimes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.RelativeTime
	}
	return out
}

// Relative converts ts into seconds relative to capturedAt, clamped to 0 for
// points stamped after the capture instant.
func Relative(ts, capturedAt time.Time) float64 {
	d := ts.Sub(capturedAt).Seconds()
	if d > 0 {
		return 0
	}
	return d
}
