package stage

import "fmt"

// DatasetFilter narrows a site's sensor list to the parameter codes the
// caller asked for. The zero value matches every available dataset.
type DatasetFilter struct {
	codes map[string]struct{}
}

// AllDatasets matches every parameter code.
func AllDatasets() DatasetFilter {
	return DatasetFilter{}
}

// Dataset matches a single parameter code.
func Dataset(code string) DatasetFilter {
	return Datasets(code)
}

// Datasets matches any of the given parameter codes.
func Datasets(codes ...string) DatasetFilter {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return DatasetFilter{codes: set}
}

// NewDatasetFilter builds a filter from a loosely-typed selector: nil for all
// datasets, a single code string, or a slice of code strings. Anything else
// fails with InvalidArgumentError.
func NewDatasetFilter(selector any) (DatasetFilter, error) {
	switch v := selector.(type) {
	case nil:
		return AllDatasets(), nil
	case string:
		return Dataset(v), nil
	case []string:
		return Datasets(v...), nil
	case DatasetFilter:
		return v, nil
	default:
		return DatasetFilter{}, invalidArgf("dataset must be nil, a code, or a set of codes, got %T", selector)
	}
}

// All reports whether the filter matches every parameter code.
func (f DatasetFilter) All() bool {
	return f.codes == nil
}

// Matches reports whether the filter admits the given parameter code.
func (f DatasetFilter) Matches(parameter string) bool {
	if f.codes == nil {
		return true
	}
	_, ok := f.codes[parameter]
	return ok
}

// SelectedSensor pairs a matched sensor record with its display label.
type SelectedSensor struct {
	SensorMetadata
	Label string
}

// SelectSensors returns the subset of sensors matching the requested timestep
// and dataset filter, in input order.
//
// A sensor matches instant mode when its computation period is "Unknown"
// (no aggregation). It matches daily mode when its computation period is
// "Daily", or when its parameter is instantaneous-only: those have no native
// daily series and are resampled locally after fetch. An empty result is not
// an error; some sites legitimately lack the requested dataset.
func SelectSensors(sensors []SensorMetadata, timestep Timestep, filter DatasetFilter) ([]SelectedSensor, error) {
	if !timestep.Valid() {
		return nil, invalidArgf("timestep must be %q or %q, got %q", TimestepInstant, TimestepDaily, timestep)
	}

	selected := make([]SelectedSensor, 0, len(sensors))
	for _, s := range sensors {
		if !filter.Matches(s.Parameter) {
			continue
		}
		switch timestep {
		case TimestepInstant:
			if s.ComputationPeriod == PeriodUnknown {
				selected = append(selected, SelectedSensor{SensorMetadata: s, Label: instantLabel(s)})
			}
		case TimestepDaily:
			if s.ComputationPeriod == PeriodDaily {
				selected = append(selected, SelectedSensor{SensorMetadata: s, Label: dailyLabel(s)})
			} else if InstantaneousOnly(s.Parameter) {
				selected = append(selected, SelectedSensor{SensorMetadata: s, Label: instantLabel(s)})
			}
		}
	}
	return selected, nil
}

// instantLabel names an instantaneous or locally-resampled series.
func instantLabel(s SensorMetadata) string {
	return fmt.Sprintf("%s(%s)_%s", s.ParameterLabel, s.Parameter, s.UnitOfMeasure)
}

// dailyLabel names a service-aggregated series, including how it was computed.
func dailyLabel(s SensorMetadata) string {
	return fmt.Sprintf("%s_%s_%s(%s)_%s",
		s.ComputationMethod, s.ComputationPeriod, s.ParameterLabel, s.Parameter, s.UnitOfMeasure)
}
