package stage

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// DefaultPolicy controls the window used when neither start nor end is given.
type DefaultPolicy string

const (
	// PolicyMostRecent queries a window just wide enough to contain the
	// latest stored reading.
	PolicyMostRecent DefaultPolicy = "most_recent"
	// PolicyLast7Days queries the previous seven days ending now.
	PolicyLast7Days DefaultPolicy = "last_7_days"
	// PolicyLast30Days queries the previous thirty days ending now.
	PolicyLast30Days DefaultPolicy = "last_30_days"
	// PolicyNone sends no time filter at all; the remote service then falls
	// back to its own default (latest value or full period of record).
	PolicyNone DefaultPolicy = "none"
)

// dateLayout is the only accepted format for explicit start/end bounds.
const dateLayout = "2006-01-02"

// TimeWindow is a resolved pair of query bounds in epoch milliseconds.
// A nil bound is open-ended on that side.
type TimeWindow struct {
	Start *int64
	End   *int64
}

// QueryValue renders the window in the encoding the ArcGIS time parameter
// expects: "start, end" with the literal token null for an open side.
func (w TimeWindow) QueryValue() string {
	render := func(v *int64) string {
		if v == nil {
			return "null"
		}
		return fmt.Sprintf("%d", *v)
	}
	return fmt.Sprintf("%s, %s", render(w.Start), render(w.End))
}

// OffsetUnit names the unit a numeric UTC offset magnitude is expressed in.
type OffsetUnit string

const (
	OffsetHours   OffsetUnit = "H"
	OffsetSeconds OffsetUnit = "S"
)

// OffsetDuration converts an offset magnitude and unit token to a duration.
// Unrecognized unit tokens are a caller error.
func OffsetDuration(magnitude int, unit OffsetUnit) (time.Duration, error) {
	switch unit {
	case OffsetHours:
		return time.Duration(magnitude) * time.Hour, nil
	case OffsetSeconds:
		return time.Duration(magnitude) * time.Second, nil
	default:
		return 0, invalidArgf("unrecognized offset unit %q: only hours (H) and seconds (S) are supported", unit)
	}
}

// ParseUTCOffset extracts a signed whole-hour UTC offset from a per-sensor
// offset descriptor string such as "(UTC-07:00)" or "-07:00:00". The first
// run of digits is the magnitude; a minus sign anywhere makes it negative.
// Strings without digits parse as UTC+0.
func ParseUTCOffset(descriptor string) time.Duration {
	start := -1
	end := len(descriptor)
	for i, r := range descriptor {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			end = i
			break
		}
	}
	if start < 0 {
		return 0
	}
	hours := 0
	for _, r := range descriptor[start:end] {
		hours = hours*10 + int(r-'0')
	}
	if strings.Contains(descriptor, "-") {
		hours = -hours
	}
	return time.Duration(hours) * time.Hour
}

// Resolver computes the query time window for a single sensor.
//
// Instant bounds are interpreted as wall-clock dates at the station and are
// shifted by the station's UTC offset into UTC epoch milliseconds. Daily
// bounds use naive calendar-day conversion with no offset correction, which
// matches how the service stores pre-aggregated daily buckets.
type Resolver struct {
	// Logger receives a warning when an unrecognized default policy is
	// degraded to most-recent. Nil means no diagnostics.
	Logger *zap.Logger
	// Now supplies the clock for default-policy windows. Nil means time.Now.
	Now func() time.Time
}

func (r *Resolver) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Resolver) logger() *zap.Logger {
	if r != nil && r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// Resolve builds the window for one sensor. A nil window with a nil error
// means no time filter should be sent. Malformed dates and inverted ranges
// fail with InvalidArgumentError; an unrecognized policy degrades to
// most-recent with a warning rather than failing.
func (r *Resolver) Resolve(timestep Timestep, start, end string, policy DefaultPolicy, utcOffset time.Duration) (*TimeWindow, error) {
	if !timestep.Valid() {
		return nil, invalidArgf("timestep must be %q or %q, got %q", TimestepInstant, TimestepDaily, timestep)
	}

	if start == "" && end == "" {
		return r.defaultWindow(timestep, policy)
	}

	toMillis := func(dateStr string) (int64, error) {
		t, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return 0, invalidArgf("malformed date %q: expected YYYY-MM-DD", dateStr)
		}
		ms := t.UnixMilli()
		if timestep == TimestepInstant {
			ms -= utcOffset.Milliseconds()
		}
		return ms, nil
	}

	var window TimeWindow
	if start != "" {
		ms, err := toMillis(start)
		if err != nil {
			return nil, err
		}
		window.Start = &ms
	}
	if end != "" {
		ms, err := toMillis(end)
		if err != nil {
			return nil, err
		}
		window.End = &ms
	}
	if window.Start != nil && window.End != nil && *window.Start > *window.End {
		return nil, invalidArgf("start %s is after end %s", start, end)
	}
	return &window, nil
}

func (r *Resolver) defaultWindow(timestep Timestep, policy DefaultPolicy) (*TimeWindow, error) {
	if policy == PolicyNone {
		return nil, nil
	}

	var back time.Duration
	switch policy {
	case PolicyMostRecent:
		// Wide enough to contain the latest reading: one day of instant
		// readings, or the previous two full days of daily aggregates to
		// absorb aggregation lag.
		if timestep == TimestepDaily {
			back = 48 * time.Hour
		} else {
			back = 24 * time.Hour
		}
	case PolicyLast7Days:
		back = 7 * 24 * time.Hour
	case PolicyLast30Days:
		back = 30 * 24 * time.Hour
	default:
		r.logger().Warn("unrecognized default time policy, using most recent reading",
			zap.String("policy", string(policy)))
		return r.defaultWindow(timestep, PolicyMostRecent)
	}

	now := r.now().UTC()
	var startMs, endMs int64
	if timestep == TimestepDaily {
		// Calendar-day granularity: naive midnights, no offset correction.
		day := func(t time.Time) int64 {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
		}
		startMs = day(now.Add(-back))
		endMs = day(now)
	} else {
		startMs = now.Add(-back).UnixMilli()
		endMs = now.UnixMilli()
	}
	return &TimeWindow{Start: &startMs, End: &endMs}, nil
}
