package ports

import (
	"strings"
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
)

// EvictionMode selects which window constraints are enforced.
type EvictionMode uint8

const (
	ByTime EvictionMode = 1 << iota
	ByCount

	ByTimeAndCount = ByTime | ByCount
)

// Policy controls window eviction.
type Policy struct {
	Mode      EvictionMode
	Duration  time.Duration
	MaxPoints int
}

// ParseEvictionMode accepts "time", "count" and "both".
func ParseEvictionMode(s string) (EvictionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "time":
		return ByTime, nil
	case "count":
		return ByCount, nil
	case "both", "time+count":
		return ByTimeAndCount, nil
	default:
		return 0, domain.ConfigError("window.mode", "unknown mode %q", s)
	}
}

func (m EvictionMode) String() string {
	switch m {
	case ByTime:
		return "time"
	case ByCount:
		return "count"
	case ByTimeAndCount:
		return "both"
	default:
		return "none"
	}
}

func (p Policy) Validate() error {
	if p.Mode == 0 || p.Mode&^ByTimeAndCount != 0 {
		return domain.ConfigError("window.mode", "no eviction policy selected")
	}
	if p.Duration < 0 {
		return domain.ConfigError("window.duration", "must be > 0, got %s", p.Duration)
	}
	if p.MaxPoints < 0 {
		return domain.ConfigError("window.max_points", "must be > 0, got %d", p.MaxPoints)
	}
	if p.Mode&ByTime != 0 && p.Duration <= 0 {
		return domain.ConfigError("window.duration", "must be > 0, got %s", p.Duration)
	}
	if p.Mode&ByCount != 0 && p.MaxPoints <= 0 {
		return domain.ConfigError("window.max_points", "must be > 0, got %d", p.MaxPoints)
	}
	return nil
}
