package stage

import "time"

// Timestep is the requested output granularity of a dataset query.
type Timestep string

const (
	// TimestepInstant returns raw instantaneous readings.
	TimestepInstant Timestep = "instant"
	// TimestepDaily returns one value per calendar day.
	TimestepDaily Timestep = "daily"
)

// Valid reports whether the timestep is one of the supported granularities.
func (t Timestep) Valid() bool {
	return t == TimestepInstant || t == TimestepDaily
}

// Computation periods observed on the StAGE service. "Unknown" means the
// sensor records raw instantaneous readings with no aggregation applied.
const (
	PeriodDaily   = "Daily"
	PeriodUnknown = "Unknown"
)

// instOnly is the closed set of parameter codes the service only ever reports
// instantaneously; daily values for these must be resampled locally.
var instOnly = map[string]struct{}{
	"Wat_LVL_BLSD":   {},
	"Lake_Elev_NGVD": {},
	"LS":             {},
}

// InstantaneousOnly reports whether a parameter code has no native daily
// aggregation on the remote service.
func InstantaneousOnly(parameter string) bool {
	_, ok := instOnly[parameter]
	return ok
}

// SensorMetadata is one sensor/parameter record for a location, as returned by
// the location-data table. Identifiers are opaque strings assigned by the
// remote service. Records are read-only once fetched.
type SensorMetadata struct {
	LocationCode      string  `json:"LocationCode"`
	LocationID        string  `json:"LocationID"`
	LocationName      string  `json:"LocationName"`
	LocationType      string  `json:"LocationType"`
	Longitude         float64 `json:"Longitude"`
	Latitude          float64 `json:"Latitude"`
	Elevation         float64 `json:"Elevation"`
	ElevationUnits    string  `json:"ElevationUnits"`
	Description       string  `json:"Description"`
	SensorCode        string  `json:"SensorCode"`
	SensorID          string  `json:"SensorID"`
	SensorLabel       string  `json:"SensorLabel"`
	TimeSeriesType    string  `json:"TimeSeriesType"`
	DatasetUtcOffset  string  `json:"DatasetUtcOffset"`
	Parameter         string  `json:"Parameter"`
	ParameterLabel    string  `json:"ParameterLabel"`
	UnitOfMeasure     string  `json:"UnitOfMeasure"`
	ComputationMethod string  `json:"ComputationMethod"`
	ComputationPeriod string  `json:"ComputationPeriod"`
	CountyName        string  `json:"CountyName"`
	BasinName         string  `json:"BasinName"`
	HUC8Code          string  `json:"HUC8Code"`
	StatusDesc        string  `json:"StatusDesc"`
}

// RawSample is a single reading as returned by the timeseries layer.
// Timestamp is epoch milliseconds encoding the station's wall clock.
type RawSample struct {
	Timestamp     int64    `json:"Timestamp"`
	RecordedValue *float64 `json:"RecordedValue"`
	GradeCode     string   `json:"GradeCode"`
	GradeName     string   `json:"GradeName"`
	Method        string   `json:"Method"`
	ApprovalLevel int      `json:"ApprovalLevel"`
	ApprovalName  string   `json:"ApprovalName"`
}

// NormalizedSample is a RawSample with its timestamp replaced by either a
// timezone-aware local datetime (instant mode) or an ISO calendar date string
// (daily mode), tagged for downstream merging.
type NormalizedSample struct {
	SiteCode      string    `json:"site_code"`
	ParameterCode string    `json:"parameter_code"`
	DatasetLabel  string    `json:"dataset_label"`
	LocalTime     time.Time `json:"local_time,omitempty"`
	Date          string    `json:"date,omitempty"`
	Value         *float64  `json:"value"`
	GradeCode     string    `json:"grade_code,omitempty"`
	GradeName     string    `json:"grade_name,omitempty"`
	Method        string    `json:"method,omitempty"`
	ApprovalLevel int       `json:"approval_level,omitempty"`
	ApprovalName  string    `json:"approval_name,omitempty"`
}

// SiteInfo is the site metadata row attached to a built dataset.
type SiteInfo struct {
	LocationCode      string  `json:"location_code"`
	LocationName      string  `json:"location_name"`
	LocationType      string  `json:"location_type"`
	Longitude         float64 `json:"longitude"`
	Latitude          float64 `json:"latitude"`
	Elevation         float64 `json:"elevation"`
	ElevationUnits    string  `json:"elevation_units"`
	Description       string  `json:"description"`
	AvailableDatasets string  `json:"available_datasets"`
	CountyName        string  `json:"county_name"`
	BasinName         string  `json:"basin_name"`
	HUC8Code          string  `json:"huc8_code"`
}

// SiteDataset joins site metadata with the concatenated normalized series of
// every selected sensor. It is a pure value object after construction; no
// further remote fetches happen once Build returns.
type SiteDataset struct {
	Site     SiteInfo           `json:"site"`
	Timestep Timestep           `json:"timestep"`
	Samples  []NormalizedSample `json:"samples"`
}
