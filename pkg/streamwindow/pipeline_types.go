package streamwindow

import (
	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// DataPoint is one decoded measurement as it travels through the channel.
type DataPoint = domain.DataPoint

// Snapshot is the immutable view of the window handed to renderers.
type Snapshot = domain.Snapshot

// SnapshotPoint is a value positioned relative to Snapshot.CapturedAt.
type SnapshotPoint = domain.SnapshotPoint

// Status summarises the pipeline counters and liveness.
type Status = domain.Status

// DecodeError describes a payload that could not be turned into a DataPoint.
type DecodeError = domain.DecodeError

// Producer delivers raw notifications (BLE bridge, NATS, OPC UA, simulators, etc.).
type Producer = ports.Producer

// NotificationHandler is what a Producer calls for every payload.
type NotificationHandler = ports.NotificationHandler

// Renderer consumes snapshots.
type Renderer = ports.Renderer

// IngestChannel is the FIFO between the notification context and the consumer.
type IngestChannel = ports.IngestChannel

// Observability emits metrics/logs about throughput, drops, and anomalies.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// Policy selects the window eviction rules.
type Policy = ports.Policy

// EvictionMode is a bitmask of ByTime and ByCount.
type EvictionMode = ports.EvictionMode

const (
	ByTime         = ports.ByTime
	ByCount        = ports.ByCount
	ByTimeAndCount = ports.ByTimeAndCount
)

// Errors callers can match with errors.Is.
var (
	ErrDecode             = domain.ErrDecode
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrProducerClosed     = domain.ErrProducerClosed
	ErrControlUnsupported = domain.ErrControlUnsupported
)
