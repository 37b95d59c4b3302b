// Package terminal draws snapshots as a one-line sparkline with a summary.
package terminal

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

var blocks = []rune("▁▂▃▄▅▆▇█")

const (
	defaultWidth = 80
	minSparkline = 10
)

// Summary is the value distribution of one snapshot.
type Summary struct {
	Count         int
	Min, Max      int64
	P50, P99      int64
	Last          int64
	OldestSeconds float64
}

// Summarize computes the distribution of snap's values. Quantiles come from
// an HDR histogram over the value range shifted to start at 1.
func Summarize(snap domain.Snapshot) Summary {
	if snap.Len() == 0 {
		return Summary{}
	}
	s := Summary{
		Count:         snap.Len(),
		Min:           snap.Points[0].Value,
		Max:           snap.Points[0].Value,
		Last:          snap.Points[snap.Len()-1].Value,
		OldestSeconds: -snap.Points[0].RelativeTime,
	}
	for _, p := range snap.Points {
		s.Min = min(s.Min, p.Value)
		s.Max = max(s.Max, p.Value)
	}

	// Max-Min+1 must fit in an int64; wider ranges report the extremes.
	if s.Max >= -1 && s.Min <= s.Max-math.MaxInt64 {
		s.P50, s.P99 = s.Min, s.Max
		return s
	}
	h := hdrhistogram.New(1, max(s.Max-s.Min+1, 2), 3)
	for _, p := range snap.Points {
		if err := h.RecordValue(p.Value - s.Min + 1); err != nil {
			s.P50, s.P99 = s.Min, s.Max
			return s
		}
	}
	s.P50 = h.ValueAtQuantile(50) + s.Min - 1
	s.P99 = h.ValueAtQuantile(99) + s.Min - 1
	return s
}

// Sparkline renders values into at most width cells, one cell per bucket
// of consecutive points.
func Sparkline(values []int64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	cells := min(width, len(values))
	var b strings.Builder
	for i := 0; i < cells; i++ {
		end := (i + 1) * len(values) / cells
		v := values[end-1]
		idx := 0
		if hi > lo {
			idx = int((float64(v) - float64(lo)) / (float64(hi) - float64(lo)) * float64(len(blocks)-1))
			idx = min(max(idx, 0), len(blocks)-1)
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// Renderer writes one line per snapshot to out.
type Renderer struct {
	mu    sync.Mutex
	out   io.Writer
	width int
	label string
	ok    *color.Color
	bad   *color.Color
}

type Option func(*Renderer)

// WithWidth fixes the line width instead of probing the terminal.
func WithWidth(w int) Option {
	return func(r *Renderer) { r.width = w }
}

// WithLabel names the series in the output.
func WithLabel(l string) Option {
	return func(r *Renderer) { r.label = l }
}

func New(out io.Writer, opts ...Option) *Renderer {
	if out == nil {
		out = os.Stdout
	}
	r := &Renderer{
		out:   out,
		label: "value",
		ok:    color.New(color.FgGreen, color.Bold),
		bad:   color.New(color.FgRed, color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.width <= 0 {
		r.width = detectWidth(out)
	}
	return r
}

func (r *Renderer) Name() string { return "terminal" }

func (r *Renderer) Render(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, r.Line(snap))
	return err
}

// Line formats snap without writing it.
func (r *Renderer) Line(snap domain.Snapshot) string {
	state := r.ok.Sprint("LIVE")
	if !snap.ProducerActive {
		state = r.bad.Sprint("IDLE")
	}
	head := fmt.Sprintf("[%s] %s %s n=%d", snap.CapturedAt.Format("15:04:05.000"), state, r.label, snap.Len())

	s := Summarize(snap)
	if s.Count == 0 {
		return head + " (empty window)"
	}
	stats := fmt.Sprintf(" last=%d min=%d p50=%d p99=%d max=%d span=%.1fs ",
		s.Last, s.Min, s.P50, s.P99, s.Max, s.OldestSeconds)

	room := r.width - visibleLen(head) - len(stats)
	if room < minSparkline {
		room = minSparkline
	}
	return head + stats + Sparkline(snap.Values(), room)
}

func detectWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

// visibleLen ignores ANSI colour sequences.
func visibleLen(s string) int {
	n, esc := 0, false
	for _, r := range s {
		switch {
		case r == '\x1b':
			esc = true
		case esc && r == 'm':
			esc = false
		case !esc:
			n++
		}
	}
	return n
}

var _ ports.Renderer = (*Renderer)(nil)
