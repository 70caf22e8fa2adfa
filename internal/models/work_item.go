package models

// WorkItem is one location row queued for enrichment. It is built once when
// the dataset is loaded and filtered, and is read-only afterwards; a retry
// resubmits the same item rather than building a new one.
type WorkItem struct {
	RowIndex   int // 1-based row in the source sheet, stable for the run
	Name       string
	City       string
	State      string
	Pincode    string
	ProviderID string
	BppID      string

	Lat       float64
	Lon       float64
	HasCoords bool

	// Zone generation parameters
	Distances []float64 // km bands
	Durations []int     // minute bands
	Mode      string
}

// HasIdentity reports whether the item carries enough identity fields to
// build a search query.
func (w *WorkItem) HasIdentity() bool {
	return w.Name != "" && w.City != ""
}
