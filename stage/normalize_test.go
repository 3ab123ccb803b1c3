package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fv(v float64) *float64 { return &v }

func TestNormalizeInstant(t *testing.T) {
	// Raw values encode the station's wall clock: 14:30 on a UTC-7 station
	// clock is 21:30 UTC.
	wallClock := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	samples := []RawSample{{
		Timestamp:     wallClock.UnixMilli(),
		RecordedValue: fv(123.4),
		GradeCode:     "10",
		GradeName:     "Good",
		ApprovalLevel: 2,
		ApprovalName:  "Approved",
	}}

	display := time.FixedZone("display", -6*3600)
	out := Normalize(samples, TimestepInstant, "QR", "40A 00100", "Discharge(QR)_cfs", -7*time.Hour, display)

	require.Len(t, out, 1)
	got := out[0]
	assert.Equal(t, "40A 00100", got.SiteCode)
	assert.Equal(t, "QR", got.ParameterCode)
	assert.Equal(t, "Discharge(QR)_cfs", got.DatasetLabel)
	assert.Empty(t, got.Date)
	require.NotNil(t, got.Value)
	assert.Equal(t, 123.4, *got.Value)
	assert.Equal(t, "Good", got.GradeName)

	// True instant = wall clock minus offset, rendered on the display clock.
	assert.True(t, got.LocalTime.Equal(wallClock.Add(7*time.Hour)))
	assert.Equal(t, "2023-06-15T15:30:00-06:00", got.LocalTime.Format(time.RFC3339))
}

func TestNormalizeInstantAppliesStationOffset(t *testing.T) {
	wallClock := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)
	samples := []RawSample{{Timestamp: wallClock.UnixMilli(), RecordedValue: fv(1)}}

	mountain := Normalize(samples, TimestepInstant, "HG", "43D 01900", "Stage Height(HG)_ft", -7*time.Hour, time.UTC)
	zulu := Normalize(samples, TimestepInstant, "HG", "43D 01900", "Stage Height(HG)_ft", 0, time.UTC)

	require.Len(t, mountain, 1)
	require.Len(t, zulu, 1)
	assert.Equal(t, "2023-06-15T21:30:00Z", mountain[0].LocalTime.Format(time.RFC3339))
	assert.Equal(t, "2023-06-15T14:30:00Z", zulu[0].LocalTime.Format(time.RFC3339))
}

func TestNormalizeDailyPassthrough(t *testing.T) {
	samples := []RawSample{
		{Timestamp: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(10)},
		{Timestamp: time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(12)},
	}

	out := Normalize(samples, TimestepDaily, "QR", "40A 00100", "Mean_Daily_Discharge(QR)_cfs", -7*time.Hour, time.UTC)

	require.Len(t, out, 2)
	assert.Equal(t, "2023-06-01", out[0].Date)
	assert.Equal(t, "2023-06-02", out[1].Date)
	assert.True(t, out[0].LocalTime.IsZero())
}

func TestNormalizeDailyResamplesInstantaneousOnly(t *testing.T) {
	day := func(hour, min int) int64 {
		return time.Date(2023, 6, 10, hour, min, 0, 0, time.UTC).UnixMilli()
	}
	samples := []RawSample{
		{Timestamp: day(6, 0), RecordedValue: fv(1.1)},
		{Timestamp: day(23, 45), RecordedValue: fv(3.3)},
		{Timestamp: day(12, 0), RecordedValue: fv(2.2)},
		{Timestamp: time.Date(2023, 6, 11, 9, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(4.4)},
	}

	out := Normalize(samples, TimestepDaily, "Wat_LVL_BLSD", "40A 00100", "Water Level BLSD(Wat_LVL_BLSD)_ft", 0, time.UTC)

	require.Len(t, out, 2)
	assert.Equal(t, "2023-06-10", out[0].Date)
	require.NotNil(t, out[0].Value)
	assert.Equal(t, 3.3, *out[0].Value, "must keep the chronologically last reading of the day")
	assert.Equal(t, "2023-06-11", out[1].Date)
	assert.Equal(t, 4.4, *out[1].Value)
}

func TestNormalizeResampleGroupsByStationDay(t *testing.T) {
	// A 23:30 reading on a UTC-7 station clock is already the next day in
	// UTC; the resample bucket follows the station's calendar day.
	samples := []RawSample{
		{Timestamp: time.Date(2023, 6, 10, 23, 30, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(9.9)},
	}

	out := Normalize(samples, TimestepDaily, "LS", "40A 00100", "Lake Stage(LS)_ft", -7*time.Hour, time.UTC)

	require.Len(t, out, 1)
	assert.Equal(t, "2023-06-10", out[0].Date)
}

func TestNormalizeEmptyInput(t *testing.T) {
	out := Normalize(nil, TimestepInstant, "QR", "40A 00100", "Discharge(QR)_cfs", 0, time.UTC)
	require.NotNil(t, out)
	assert.Empty(t, out)
}
