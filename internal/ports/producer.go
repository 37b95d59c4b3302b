package ports

import "context"

// NotificationHandler is the only surface the core exposes to a transport.
type NotificationHandler interface {
	// OnNotification is invoked once per completed notification event.
	// Implementations must not block for long.
	OnNotification(raw []byte)
	// OnConnectionState reports transport connect/disconnect transitions.
	OnConnectionState(connected bool)
}

// Producer delivers raw notification payloads from a peer device and passes
// control bytes back to it.
type Producer interface {
	Start(ctx context.Context, h NotificationHandler) error
	Stop() error
	SendControl(b byte) error
	Name() string
}
