package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode marks a notification payload that is neither a bare integer
	// nor a label:value pair.
	ErrDecode = errors.New("streamwindow: decode failed")

	// ErrInvalidConfig is returned when windowing or polling parameters are
	// not usable. The runtime refuses to start on it.
	ErrInvalidConfig = errors.New("streamwindow: invalid configuration")

	// ErrChannelOverflow marks a point dropped because the ingest channel
	// was full.
	ErrChannelOverflow = errors.New("streamwindow: ingest channel overflow")

	// ErrMonotonicity marks a point older than the window tail. The point is
	// kept.
	ErrMonotonicity = errors.New("streamwindow: timestamp older than window tail")

	// ErrProducerLost is reported when the transport disconnects.
	ErrProducerLost = errors.New("streamwindow: producer disconnected")

	// ErrProducerClosed is returned by producers that are not running.
	ErrProducerClosed = errors.New("streamwindow: producer not running")

	// ErrControlUnsupported is returned by producers without a control path.
	ErrControlUnsupported = errors.New("streamwindow: control not supported by producer")
)

// DecodeError describes a dropped notification payload.
type DecodeError struct {
	Payload []byte
	Reason  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.Payload, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// ConfigError wraps ErrInvalidConfig with the offending field.
func ConfigError(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}
