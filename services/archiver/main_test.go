package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mthydro/stagedata/stage"
)

func sample(ts time.Time, v float64) stage.NormalizedSample {
	return stage.NormalizedSample{
		SiteCode:      "40A 0500",
		ParameterCode: "QR",
		LocalTime:     ts,
		Value:         &v,
	}
}

func TestLastOfDayKeepsFinalReadingPerDay(t *testing.T) {
	day1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	out := lastOfDay([]stage.NormalizedSample{
		sample(day1.Add(6*time.Hour), 10),
		sample(day1.Add(12*time.Hour), 11),
		sample(day1.Add(23*time.Hour), 12),
		sample(day2.Add(1*time.Hour), 20),
		sample(day2.Add(2*time.Hour), 21),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "2024-06-01", out[0].Date)
	assert.Equal(t, 12.0, *out[0].Value)
	assert.Equal(t, "2024-06-02", out[1].Date)
	assert.Equal(t, 21.0, *out[1].Value)
	assert.True(t, out[0].LocalTime.IsZero())
}

func TestLastOfDayMergesInterleavedSensorSeries(t *testing.T) {
	day1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	// Two concatenated sensor series: the second revisits day one.
	out := lastOfDay([]stage.NormalizedSample{
		sample(day1.Add(6*time.Hour), 10),
		sample(day2.Add(3*time.Hour), 20),
		sample(day1.Add(18*time.Hour), 11),
		sample(day2.Add(1*time.Hour), 19),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "2024-06-01", out[0].Date)
	assert.Equal(t, 11.0, *out[0].Value)
	assert.Equal(t, "2024-06-02", out[1].Date)
	assert.Equal(t, 20.0, *out[1].Value)
}

func TestLastOfDayEmpty(t *testing.T) {
	assert.Empty(t, lastOfDay(nil))
}

func TestLastOfDaySingleSample(t *testing.T) {
	ts := time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)
	out := lastOfDay([]stage.NormalizedSample{sample(ts, 5)})

	require.Len(t, out, 1)
	assert.Equal(t, "2024-06-01", out[0].Date)
	assert.Equal(t, 5.0, *out[0].Value)
}
