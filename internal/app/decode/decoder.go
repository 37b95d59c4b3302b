// Package decode turns raw notification payloads into data points.
package decode

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/streamwindow/internal/domain"
	"github.com/ghalamif/streamwindow/internal/ports"
)

// Format selects how payload bytes are interpreted.
type Format string

const (
	// FormatText accepts "42" and "LABEL:42".
	FormatText Format = "text"
	// FormatLittleEndian accepts 1 to 8 raw bytes holding an unsigned
	// little-endian integer.
	FormatLittleEndian Format = "le"
)

// ParseFormat maps a config value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatLittleEndian, "little_endian", "binary":
		return FormatLittleEndian, nil
	default:
		return "", domain.ConfigError("decode.format", "unknown format %q", s)
	}
}

type Decoder struct {
	format Format
	now    func() time.Time
}

// New returns a Decoder stamping points with now (time.Now when nil).
func New(format Format, now func() time.Time) *Decoder {
	if format == "" {
		format = FormatText
	}
	if now == nil {
		now = time.Now
	}
	return &Decoder{format: format, now: now}
}

func (d *Decoder) Format() Format { return d.format }

func (d *Decoder) Decode(raw []byte) (domain.DataPoint, error) {
	var (
		v   int64
		err error
	)
	switch d.format {
	case FormatLittleEndian:
		v, err = decodeLittleEndian(raw)
	default:
		v, err = decodeText(raw)
	}
	if err != nil {
		return domain.DataPoint{}, err
	}
	return domain.DataPoint{Value: v, Timestamp: d.now()}, nil
}

func decodeText(raw []byte) (int64, error) {
	s := string(bytes.TrimRight(bytes.TrimSpace(raw), "\x00"))
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &domain.DecodeError{Payload: raw, Reason: "empty payload"}
	}

	if label, value, ok := strings.Cut(s, ":"); ok {
		if strings.TrimSpace(label) == "" {
			return 0, &domain.DecodeError{Payload: raw, Reason: "empty label"}
		}
		s = strings.TrimSpace(value)
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &domain.DecodeError{Payload: raw, Reason: "not an integer"}
	}
	return v, nil
}

func decodeLittleEndian(raw []byte) (int64, error) {
	if len(raw) == 0 || len(raw) > 8 {
		return 0, &domain.DecodeError{Payload: raw, Reason: "expected 1-8 bytes"}
	}
	var buf [8]byte
	copy(buf[:], raw)
	u := binary.LittleEndian.Uint64(buf[:])
	if u > 1<<63-1 {
		return 0, &domain.DecodeError{Payload: raw, Reason: "value overflows int64"}
	}
	return int64(u), nil
}

var _ ports.Decoder = (*Decoder)(nil)
