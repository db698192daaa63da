package domain

import (
	"math"
	"strconv"
	"strings"
)

// MaxReadingPayloadSize bounds a raw telemetry body in bytes.
const MaxReadingPayloadSize = 256

// Reading is a parsed telemetry push.
type Reading struct {
	// Value is the primary reading.
	Value float64

	// Battery is the reported battery level, nil when absent or unparsable.
	Battery *int
}

// ParseReading parses a whitespace-separated telemetry payload.
//
// The first field is the primary reading and must be a finite decimal
// number. The second field, when present and an integer, is the battery
// level. Any further fields are ignored.
func ParseReading(raw string) (Reading, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Reading{}, ErrMalformedPayload.WithDetails("empty payload")
	}

	value, ok := parseDecimal(fields[0])
	if !ok {
		return Reading{}, ErrMalformedPayload.WithDetails("cannot parse " + strconv.Quote(truncate(fields[0], 32)))
	}

	r := Reading{Value: value}
	if len(fields) > 1 {
		if b, err := strconv.Atoi(fields[1]); err == nil {
			r.Battery = &b
		}
	}
	return r, nil
}

// parseDecimal accepts plain decimal notation with an optional exponent.
// Hex floats, NaN and infinities are rejected.
func parseDecimal(s string) (float64, bool) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' && c != 'e' && c != 'E' {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatValue renders a reading the way sensors expect it in acknowledgements:
// shortest representation, always with a fractional part ("23.0", "23.5").
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// FormatAck renders the "timestamp:value" acknowledgement.
func FormatAck(timestamp int64, value float64) string {
	return strconv.FormatInt(timestamp, 10) + ":" + FormatValue(value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
