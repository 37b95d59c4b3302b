package ports

import (
	"context"

	"github.com/ghalamif/streamwindow/internal/domain"
)

// Renderer consumes snapshots. It must treat them as read-only.
type Renderer interface {
	Render(ctx context.Context, snap domain.Snapshot) error
	Name() string
}
