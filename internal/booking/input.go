package booking

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseHeadcount accepts the forms a JSON client sends for a visitor
// count: a number or a numeric string.  Fractions, non-numeric input and
// values below 1 are rejected.
func ParseHeadcount(v any) (int, error) {
	invalid := func() error {
		return NewValidation(CodeInvalidHeadcount, "visitors_count must be a positive integer").
			WithDetail("visitors_count", v)
	}

	var n float64
	switch t := v.(type) {
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case float64:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, invalid()
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, invalid()
		}
		n = f
	default:
		return 0, invalid()
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) || n < 1 || n > math.MaxInt32 {
		return 0, invalid()
	}
	return int(n), nil
}

var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseScheduleTime parses a booked time slot.  Times without a zone are
// read as UTC and fractions of a second are dropped.
func ParseScheduleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, NewValidation(CodeInvalidSchedule, "schedule time is required")
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeSlot(t), nil
		}
	}
	return time.Time{}, NewValidation(CodeInvalidSchedule, "schedule time is not a valid date/time").
		WithDetail("schedule_time", s)
}

// NormalizeSlot returns t in UTC truncated to whole seconds, the precision
// slots are stored and compared at.
func NormalizeSlot(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
