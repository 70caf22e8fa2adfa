package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/models"
	"github.com/ondc-data/geo-enricher/internal/spatial"
	"github.com/ondc-data/geo-enricher/internal/zones"
)

const (
	colProviderID      = "Provider ID"
	colLatitude        = "Latitude"
	colLongitude       = "Longitude"
	colBppID           = "bpp id"
	colZonesGeoJSON    = "zones_geojson"
	colZonesFile       = "zones_file"
	colZonesCount      = "zones_count"
	colTrafficAdjusted = "traffic_adjusted"
)

// ZonesPipeline generates a composite zone document per location. The
// traffic context is fixed once at construction so every row in a run is
// generated under the same conditions.
type ZonesPipeline struct {
	ds        *dataset.Store
	gen       *zones.Generator
	outputDir string
	distances []float64
	durations []int
	mode      string
	hour      int
	dayOfWeek int
	date      time.Time
	logger    *slog.Logger
}

// NewZonesPipeline creates the zone flow. at fixes the traffic context;
// dayOfWeek is derived Monday-first to line up with the day factor table.
func NewZonesPipeline(ds *dataset.Store, gen *zones.Generator, outputDir string, distances []float64, durations []int, mode string, at time.Time, logger *slog.Logger) *ZonesPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZonesPipeline{
		ds:        ds,
		gen:       gen,
		outputDir: outputDir,
		distances: distances,
		durations: durations,
		mode:      mode,
		hour:      at.Hour(),
		dayOfWeek: (int(at.Weekday()) + 6) % 7,
		date:      at,
		logger:    logger,
	}
}

func (p *ZonesPipeline) Flow() string { return models.FlowZones }

// LearnedPatterns reports the traffic model's learned pattern count for the
// run summary.
func (p *ZonesPipeline) LearnedPatterns() int { return p.gen.LearnedPatterns() }

func (p *ZonesPipeline) RequiredColumns() []string {
	return []string{colProviderName, colProviderID, colLatitude, colLongitude, colBppID, colSellerPincode}
}

func (p *ZonesPipeline) OutputColumns() []string {
	return []string{colZonesGeoJSON, colZonesFile, colZonesCount, colProcessingStatus, colTrafficAdjusted}
}

// LoadItem treats a row as done only when both the status column says so and
// the artifact is still on disk, so deleted files regenerate on rerun.
func (p *ZonesPipeline) LoadItem(row int) (*models.WorkItem, ItemState, error) {
	status, err := p.ds.Cell(row, colProcessingStatus)
	if err != nil {
		return nil, StateNoData, err
	}
	if status == "success" {
		if path, err := p.ds.Cell(row, colZonesFile); err == nil && path != "" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, StateDone, nil
			}
		}
	}

	item := &models.WorkItem{
		RowIndex:  row,
		Distances: p.distances,
		Durations: p.durations,
		Mode:      p.mode,
	}
	if item.Name, err = p.ds.Cell(row, colProviderName); err != nil {
		return nil, StateNoData, err
	}
	if item.ProviderID, err = p.ds.Cell(row, colProviderID); err != nil {
		return nil, StateNoData, err
	}
	if item.BppID, err = p.ds.Cell(row, colBppID); err != nil {
		return nil, StateNoData, err
	}
	if item.Pincode, err = p.ds.Cell(row, colSellerPincode); err != nil {
		return nil, StateNoData, err
	}

	latStr, err := p.ds.Cell(row, colLatitude)
	if err != nil {
		return nil, StateNoData, err
	}
	lonStr, err := p.ds.Cell(row, colLongitude)
	if err != nil {
		return nil, StateNoData, err
	}

	if item.Name == "" || item.Pincode == "" {
		p.logger.Debug("row lacks name or pincode", "row", row)
		return nil, StateNoData, nil
	}

	lat, latErr := strconv.ParseFloat(latStr, 64)
	lon, lonErr := strconv.ParseFloat(lonStr, 64)
	if latErr != nil || lonErr != nil || !spatial.ValidCoordinate(lat, lon) {
		p.logger.Debug("row lacks usable coordinates", "row", row, "lat", latStr, "lon", lonStr)
		return nil, StateNoData, nil
	}
	item.Lat, item.Lon, item.HasCoords = lat, lon, true

	return item, StatePending, nil
}

func (p *ZonesPipeline) Process(ctx context.Context, item *models.WorkItem) *models.EnrichmentResult {
	start := time.Now()

	doc, err := p.gen.Generate(ctx, zones.Request{
		Name:      item.Name,
		Lat:       item.Lat,
		Lon:       item.Lon,
		Pincode:   item.Pincode,
		Distances: item.Distances,
		Durations: item.Durations,
		Mode:      item.Mode,
		Hour:      p.hour,
		DayOfWeek: p.dayOfWeek,
		Date:      p.date,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return &models.EnrichmentResult{
			RowIndex:      item.RowIndex,
			Status:        models.StatusFailed,
			FailureReason: err.Error(),
			Elapsed:       time.Since(start),
		}
	}

	path, err := zones.WriteDocument(p.outputDir, doc, item.BppID, item.ProviderID)
	if err != nil {
		return &models.EnrichmentResult{
			RowIndex:      item.RowIndex,
			Status:        models.StatusFailed,
			FailureReason: err.Error(),
			Elapsed:       time.Since(start),
		}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return &models.EnrichmentResult{
			RowIndex:      item.RowIndex,
			Status:        models.StatusFailed,
			FailureReason: fmt.Sprintf("failed to encode document: %v", err),
			Elapsed:       time.Since(start),
		}
	}

	return &models.EnrichmentResult{
		RowIndex:     item.RowIndex,
		Status:       models.StatusSuccess,
		ArtifactPath: path,
		DocumentJSON: string(payload),
		ZoneCount:    doc.Metadata.TotalZones,
		Elapsed:      time.Since(start),
	}
}

func (p *ZonesPipeline) Merge(res *models.EnrichmentResult) error {
	if res.Status != models.StatusSuccess {
		return p.ds.SetCell(res.RowIndex, colProcessingStatus, "failed: "+res.FailureReason)
	}

	cells := []struct {
		column string
		value  any
	}{
		{colZonesGeoJSON, res.DocumentJSON},
		{colZonesFile, res.ArtifactPath},
		{colZonesCount, res.ZoneCount},
		{colProcessingStatus, "success"},
		{colTrafficAdjusted, "yes"},
	}
	for _, c := range cells {
		if err := p.ds.SetCell(res.RowIndex, c.column, c.value); err != nil {
			return fmt.Errorf("row %d: %w", res.RowIndex, err)
		}
	}
	return nil
}

// EnsureOutputDir creates the artifact directory if needed.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}
