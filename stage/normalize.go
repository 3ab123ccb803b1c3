package stage

import (
	"sort"
	"time"
)

// Normalize converts raw sensor readings into the representation the
// requested timestep calls for.
//
// Raw epoch-millisecond timestamps encode the station's wall clock, so the
// true instant is the raw value minus the sensor's UTC offset. Instant mode
// keeps per-reading granularity and renders that instant in the display
// location. Daily mode for service-aggregated parameters truncates the raw
// timestamp straight to a calendar date string; the service already bucketed
// those series. Daily mode for instantaneous-only parameters resamples
// locally, keeping the chronologically last reading of each station-clock
// calendar day.
//
// An empty input produces an empty output; some sensors have no data in the
// requested window. loc defaults to time.Local when nil.
func Normalize(samples []RawSample, timestep Timestep, parameterCode, siteCode, datasetLabel string, utcOffset time.Duration, loc *time.Location) []NormalizedSample {
	if loc == nil {
		loc = time.Local
	}
	out := make([]NormalizedSample, 0, len(samples))
	if len(samples) == 0 {
		return out
	}

	localize := func(ms int64) time.Time {
		return time.UnixMilli(ms - utcOffset.Milliseconds()).In(loc)
	}
	stationDay := func(ms int64) string {
		return time.UnixMilli(ms).UTC().Format(dateLayout)
	}
	tag := func(n *NormalizedSample, s RawSample) {
		n.SiteCode = siteCode
		n.ParameterCode = parameterCode
		n.DatasetLabel = datasetLabel
		n.Value = s.RecordedValue
		n.GradeCode = s.GradeCode
		n.GradeName = s.GradeName
		n.Method = s.Method
		n.ApprovalLevel = s.ApprovalLevel
		n.ApprovalName = s.ApprovalName
	}

	switch {
	case timestep == TimestepInstant:
		for _, s := range samples {
			n := NormalizedSample{LocalTime: localize(s.Timestamp)}
			tag(&n, s)
			out = append(out, n)
		}

	case timestep == TimestepDaily && InstantaneousOnly(parameterCode):
		type lastOfDay struct {
			ts     int64
			sample RawSample
		}
		byDay := make(map[string]lastOfDay)
		for _, s := range samples {
			day := stationDay(s.Timestamp)
			if prev, ok := byDay[day]; !ok || s.Timestamp >= prev.ts {
				byDay[day] = lastOfDay{ts: s.Timestamp, sample: s}
			}
		}
		days := make([]string, 0, len(byDay))
		for day := range byDay {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			n := NormalizedSample{Date: day}
			tag(&n, byDay[day].sample)
			out = append(out, n)
		}

	default:
		for _, s := range samples {
			n := NormalizedSample{Date: stationDay(s.Timestamp)}
			tag(&n, s)
			out = append(out, n)
		}
	}
	return out
}
