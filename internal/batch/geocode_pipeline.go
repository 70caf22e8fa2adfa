package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/geocode"
	"github.com/ondc-data/geo-enricher/internal/models"
	"github.com/ondc-data/geo-enricher/internal/spatial"
	"github.com/ondc-data/geo-enricher/internal/validate"
)

const (
	colProviderName     = "Provider Name"
	colSellerCity       = "Seller City"
	colSellerPincode    = "Seller Pincode"
	colState            = "State"
	colNetworkLat       = "network_lat"
	colNetworkLong      = "network_long"
	colRefinedLat       = "refined_lat"
	colRefinedLong      = "refined_long"
	colRestaurantStatus = "Restaurant_Status"
	colStoreTimings     = "Store_Timings"
	colAddress          = "Address"
	colMapsLink         = "Google_Maps_Link"
	colDistanceMeters   = "Distance_Meters"
	colFoundPincode     = "Found_Pincode"
	colFoundName        = "Found_Restaurant_Name"
	colProcessingStatus = "processing_status"
)

// GeocodePipeline refines network coordinates by searching each location and
// validating the top candidate against the row's own identity fields.
type GeocodePipeline struct {
	ds        *dataset.Store
	searcher  geocode.Searcher
	validator *validate.Validator
	logger    *slog.Logger
}

// NewGeocodePipeline creates the geocoding flow over an open dataset.
func NewGeocodePipeline(ds *dataset.Store, searcher geocode.Searcher, validator *validate.Validator, logger *slog.Logger) *GeocodePipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeocodePipeline{ds: ds, searcher: searcher, validator: validator, logger: logger}
}

func (p *GeocodePipeline) Flow() string { return models.FlowGeocode }

func (p *GeocodePipeline) RequiredColumns() []string {
	return []string{colProviderName, colSellerCity, colSellerPincode, colState, colNetworkLat, colNetworkLong}
}

func (p *GeocodePipeline) OutputColumns() []string {
	return []string{
		colRefinedLat, colRefinedLong, colRestaurantStatus, colStoreTimings,
		colAddress, colMapsLink, colDistanceMeters, colFoundPincode,
		colFoundName, colProcessingStatus,
	}
}

func (p *GeocodePipeline) LoadItem(row int) (*models.WorkItem, ItemState, error) {
	refined, err := p.ds.Cell(row, colRefinedLat)
	if err != nil {
		return nil, StateNoData, err
	}
	if refined != "" {
		return nil, StateDone, nil
	}

	item := &models.WorkItem{RowIndex: row}
	if item.Name, err = p.ds.Cell(row, colProviderName); err != nil {
		return nil, StateNoData, err
	}
	if item.City, err = p.ds.Cell(row, colSellerCity); err != nil {
		return nil, StateNoData, err
	}
	if item.State, err = p.ds.Cell(row, colState); err != nil {
		return nil, StateNoData, err
	}
	if item.Pincode, err = p.ds.Cell(row, colSellerPincode); err != nil {
		return nil, StateNoData, err
	}

	latStr, err := p.ds.Cell(row, colNetworkLat)
	if err != nil {
		return nil, StateNoData, err
	}
	lonStr, err := p.ds.Cell(row, colNetworkLong)
	if err != nil {
		return nil, StateNoData, err
	}

	if !item.HasIdentity() {
		p.logger.Debug("row lacks name or city", "row", row)
		return nil, StateNoData, nil
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil || !spatial.ValidCoordinate(lat, lon) {
		p.logger.Debug("row lacks usable network coordinates",
			"row", row, "lat", latStr, "lon", lonStr)
		return nil, StateNoData, nil
	}
	item.Lat, item.Lon, item.HasCoords = lat, lon, true

	return item, StatePending, nil
}

// Process tries each query formulation in turn and accepts the first
// candidate that survives validation. Search failures on one formulation
// fall through to the next.
func (p *GeocodePipeline) Process(ctx context.Context, item *models.WorkItem) *models.EnrichmentResult {
	start := time.Now()

	expected := validate.Expected{
		Name:    item.Name,
		City:    item.City,
		State:   item.State,
		Pincode: item.Pincode,
		Lat:     item.Lat,
		Lon:     item.Lon,
	}

	lastReject := ""
	for _, query := range geocode.Queries(item.Name, item.City, item.State) {
		place, err := p.searcher.Search(ctx, query, item.Lat, item.Lon)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if !errors.Is(err, geocode.ErrNoResults) {
				p.logger.Warn("search failed", "row", item.RowIndex, "query", query, "error", err)
			}
			continue
		}

		outcome := p.validator.Validate(validate.Candidate{
			Name:    place.Name,
			Address: place.Address,
			Lat:     place.Lat,
			Lon:     place.Lon,
		}, expected)

		if !outcome.Accepted {
			lastReject = outcome.RejectReason
			p.logger.Debug("candidate rejected",
				"row", item.RowIndex, "query", query, "reason", outcome.RejectReason)
			continue
		}

		return &models.EnrichmentResult{
			RowIndex:       item.RowIndex,
			Status:         models.StatusSuccess,
			Lat:            models.Float64Ptr(place.Lat),
			Lon:            models.Float64Ptr(place.Lon),
			Address:        place.Address,
			BusinessStatus: place.BusinessStatus,
			StoreTimings:   place.OpeningHours,
			MapsLink:       place.MapsLink,
			DistanceMeters: models.Float64Ptr(outcome.DistanceMeters),
			FoundPincode:   outcome.FoundPincode,
			FoundName:      place.Name,
			NameScore:      outcome.NameScore,
			Elapsed:        time.Since(start),
		}
	}

	reason := "no candidate passed validation"
	if lastReject != "" {
		reason = lastReject
	}
	return &models.EnrichmentResult{
		RowIndex:      item.RowIndex,
		Status:        models.StatusFailed,
		FailureReason: reason,
		Elapsed:       time.Since(start),
	}
}

// Merge writes one outcome back. Failed rows get only a status so their
// refined fields stay empty for a later rerun.
func (p *GeocodePipeline) Merge(res *models.EnrichmentResult) error {
	if res.Status != models.StatusSuccess {
		return p.ds.SetCell(res.RowIndex, colProcessingStatus, "Failed: "+res.FailureReason)
	}

	cells := []struct {
		column string
		value  any
	}{
		{colRefinedLat, round6(*res.Lat)},
		{colRefinedLong, round6(*res.Lon)},
		{colRestaurantStatus, res.BusinessStatus},
		{colStoreTimings, res.StoreTimings},
		{colAddress, res.Address},
		{colMapsLink, res.MapsLink},
		{colDistanceMeters, math.Round(*res.DistanceMeters*100) / 100},
		{colFoundPincode, res.FoundPincode},
		{colFoundName, res.FoundName},
		{colProcessingStatus, "Success"},
	}
	for _, c := range cells {
		if err := p.ds.SetCell(res.RowIndex, c.column, c.value); err != nil {
			return fmt.Errorf("row %d: %w", res.RowIndex, err)
		}
	}
	return nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
