package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher substitutes the remote service boundary in builder tests.
type fakeFetcher struct {
	metadata    []SensorMetadata
	metadataErr error
	samples     map[string][]RawSample
	samplesErr  error
	windows     map[string]*TimeWindow
}

func (f *fakeFetcher) FetchSensorMetadata(_ context.Context, _ string) ([]SensorMetadata, error) {
	return f.metadata, f.metadataErr
}

func (f *fakeFetcher) FetchSamples(_ context.Context, sensorID string, window *TimeWindow) ([]RawSample, error) {
	if f.windows == nil {
		f.windows = make(map[string]*TimeWindow)
	}
	f.windows[sensorID] = window
	if f.samplesErr != nil {
		return nil, f.samplesErr
	}
	return f.samples[sensorID], nil
}

func buildFixtureMetadata() []SensorMetadata {
	return []SensorMetadata{
		{
			SensorID: "s-1", LocationCode: "43D 01900", LocationName: "Big Hole River nr Melrose",
			LocationType: "Stream", Longitude: -112.7, Latitude: 45.6,
			Elevation: 5100, ElevationUnits: "ft", CountyName: "Silver Bow",
			BasinName: "Big Hole", HUC8Code: "10020004",
			Parameter: "HG", ParameterLabel: "Stage Height", UnitOfMeasure: "ft",
			ComputationPeriod: PeriodUnknown, DatasetUtcOffset: "(UTC-07:00)",
		},
		{
			SensorID: "s-2", LocationCode: "43D 01900", LocationName: "Big Hole River nr Melrose",
			Parameter: "QR", ParameterLabel: "Discharge", UnitOfMeasure: "cfs",
			ComputationMethod: "Mean", ComputationPeriod: PeriodDaily,
			DatasetUtcOffset: "(UTC-07:00)",
		},
		{
			SensorID: "s-3", LocationCode: "43D 01900", LocationName: "Big Hole River nr Melrose",
			Parameter: "QR", ParameterLabel: "Discharge", UnitOfMeasure: "cfs",
			ComputationPeriod: PeriodUnknown, DatasetUtcOffset: "(UTC-07:00)",
		},
	}
}

func TestBuildSiteNotFound(t *testing.T) {
	b := NewBuilder(&fakeFetcher{}, nil)
	_, err := b.Build(context.Background(), BuildRequest{SiteCode: "99Z 99999", Timestep: TimestepDaily})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSiteNotFound)
}

func TestBuildNoMatchingSensorsReturnsEmptyDataset(t *testing.T) {
	fetcher := &fakeFetcher{metadata: buildFixtureMetadata()}
	b := NewBuilder(fetcher, nil)

	// The site has no TW sensors; that is not an error.
	ds, err := b.Build(context.Background(), BuildRequest{
		SiteCode: "43D 01900",
		Timestep: TimestepInstant,
		Dataset:  Dataset("TW"),
		Start:    "2023-06-01",
		End:      "2023-07-31",
	})
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, "43D 01900", ds.Site.LocationCode)
	assert.Equal(t, "Big Hole River nr Melrose", ds.Site.LocationName)
	assert.Empty(t, ds.Samples)
}

func TestBuildDailyDataset(t *testing.T) {
	fetcher := &fakeFetcher{
		metadata: buildFixtureMetadata(),
		samples: map[string][]RawSample{
			"s-2": {
				{Timestamp: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(250)},
				{Timestamp: time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(260)},
			},
		},
	}
	b := NewBuilder(fetcher, nil)

	ds, err := b.Build(context.Background(), BuildRequest{
		SiteCode: "43D 01900",
		Timestep: TimestepDaily,
		Start:    "2023-06-01",
		End:      "2023-07-31",
	})
	require.NoError(t, err)
	require.NotNil(t, ds)

	assert.Equal(t, "HG,QR", ds.Site.AvailableDatasets)
	require.Len(t, ds.Samples, 2)
	assert.Equal(t, "2023-06-01", ds.Samples[0].Date)
	assert.Equal(t, "Mean_Daily_Discharge(QR)_cfs", ds.Samples[0].DatasetLabel)
	assert.Equal(t, "QR", ds.Samples[0].ParameterCode)
	assert.Equal(t, "43D 01900", ds.Samples[0].SiteCode)

	// Daily bounds are naive midnights regardless of the station offset.
	window := fetcher.windows["s-2"]
	require.NotNil(t, window)
	require.NotNil(t, window.Start)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), *window.Start)
}

func TestBuildConcatenatesInSelectionOrder(t *testing.T) {
	fetcher := &fakeFetcher{
		metadata: buildFixtureMetadata(),
		samples: map[string][]RawSample{
			"s-1": {{Timestamp: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(3.1)}},
			"s-3": {{Timestamp: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), RecordedValue: fv(255)}},
		},
	}
	b := NewBuilder(fetcher, nil)
	b.Location = time.UTC

	ds, err := b.Build(context.Background(), BuildRequest{
		SiteCode: "43D 01900",
		Timestep: TimestepInstant,
		Start:    "2023-06-01",
		End:      "2023-06-02",
	})
	require.NoError(t, err)
	require.Len(t, ds.Samples, 2)
	assert.Equal(t, "HG", ds.Samples[0].ParameterCode)
	assert.Equal(t, "QR", ds.Samples[1].ParameterCode)
}

func TestBuildInstantWindowUsesSensorOffset(t *testing.T) {
	fetcher := &fakeFetcher{metadata: buildFixtureMetadata()}
	b := NewBuilder(fetcher, nil)

	_, err := b.Build(context.Background(), BuildRequest{
		SiteCode: "43D 01900",
		Timestep: TimestepInstant,
		Start:    "2023-06-01",
		End:      "2023-06-02",
	})
	require.NoError(t, err)

	window := fetcher.windows["s-1"]
	require.NotNil(t, window)
	require.NotNil(t, window.Start)
	assert.Equal(t, time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC).UnixMilli(), *window.Start)
}

func TestBuildDefaultPolicyWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{metadata: buildFixtureMetadata()}
	b := NewBuilder(fetcher, nil)
	b.Now = fixedClock(now)

	_, err := b.Build(context.Background(), BuildRequest{
		SiteCode: "43D 01900",
		Timestep: TimestepInstant,
		Policy:   PolicyLast7Days,
	})
	require.NoError(t, err)

	window := fetcher.windows["s-1"]
	require.NotNil(t, window)
	assert.Equal(t, now.Add(-7*24*time.Hour).UnixMilli(), *window.Start)
	assert.Equal(t, now.UnixMilli(), *window.End)
}

func TestBuildSensorFetchFailureAbortsBuild(t *testing.T) {
	upstream := &UpstreamError{Operation: "samples", StatusCode: 503}
	fetcher := &fakeFetcher{metadata: buildFixtureMetadata(), samplesErr: upstream}
	b := NewBuilder(fetcher, nil)

	_, err := b.Build(context.Background(), BuildRequest{
		SiteCode: "43D 01900",
		Timestep: TimestepDaily,
		Start:    "2023-06-01",
		End:      "2023-06-02",
	})
	require.Error(t, err)
	var ue *UpstreamError
	assert.True(t, errors.As(err, &ue))
}

func TestBuildMetadataFetchFailurePropagates(t *testing.T) {
	fetcher := &fakeFetcher{metadataErr: &UpstreamError{Operation: "sensor metadata", StatusCode: 500}}
	b := NewBuilder(fetcher, nil)

	_, err := b.Build(context.Background(), BuildRequest{SiteCode: "43D 01900", Timestep: TimestepDaily})
	require.Error(t, err)
	var ue *UpstreamError
	assert.True(t, errors.As(err, &ue))
}

func TestBuildInvalidTimestep(t *testing.T) {
	b := NewBuilder(&fakeFetcher{metadata: buildFixtureMetadata()}, nil)
	_, err := b.Build(context.Background(), BuildRequest{SiteCode: "43D 01900", Timestep: Timestep("hourly")})
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
}
