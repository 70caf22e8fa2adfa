package models

import "time"

// ResultStatus tags the outcome of processing one WorkItem.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusFailed  ResultStatus = "failed"
	StatusSkipped ResultStatus = "skipped"
)

// EnrichmentResult is the outcome of one WorkItem attempt. Workers produce
// it as a value and never touch shared state; the orchestrator alone merges
// it back into the dataset. Immutable once produced.
type EnrichmentResult struct {
	RowIndex int
	Status   ResultStatus

	// Geocoding fields (nil/empty unless Status is success)
	Lat            *float64
	Lon            *float64
	Address        string
	BusinessStatus string
	StoreTimings   string
	MapsLink       string

	// Validation evidence
	DistanceMeters *float64
	FoundPincode   string
	FoundName      string
	NameScore      float64

	// Zone generation fields
	ArtifactPath string
	DocumentJSON string
	ZoneCount    int

	FailureReason string
	Elapsed       time.Duration
}

// Float64Ptr is a small helper for building nullable result fields.
func Float64Ptr(v float64) *float64 { return &v }
