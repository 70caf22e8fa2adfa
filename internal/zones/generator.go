package zones

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ondc-data/geo-enricher/internal/traffic"
)

// ErrNoZones means every requested band failed: an empty document is a
// generation failure, not an empty success.
var ErrNoZones = errors.New("no zones generated")

// Metadata is the aggregate block at the top of a zone document.
type Metadata struct {
	ProviderName         string           `json:"provider_name"`
	CenterLat            float64          `json:"center_lat"`
	CenterLon            float64          `json:"center_lon"`
	Pincode              string           `json:"pincode"`
	Mode                 string           `json:"mode"`
	TotalZones           int              `json:"total_zones"`
	DistanceZones        []float64        `json:"distance_zones"`
	TimeZones            []int            `json:"time_zones"`
	GeneratedAt          time.Time        `json:"generated_at"`
	GenerationConditions traffic.Metadata `json:"generation_conditions"`
}

// Document is the composite geometry output for one location.
type Document struct {
	Type     string    `json:"type"`
	Metadata Metadata  `json:"metadata"`
	Features []Feature `json:"features"`
}

// Request describes one location's zone generation.
type Request struct {
	Name      string
	Lat       float64
	Lon       float64
	Pincode   string
	Distances []float64 // km bands, traffic-adjusted before the isochrone call
	Durations []int     // minute bands, sent as requested
	Mode      string
	Hour      int
	DayOfWeek int
	Date      time.Time
}

// Generator produces composite zone documents, shrinking distance bands
// under congestion so the polygons keep realistic travel-time coverage.
type Generator struct {
	valhalla *Valhalla
	model    *traffic.Model
	logger   *slog.Logger
}

// NewGenerator creates a zone generator.
func NewGenerator(valhalla *Valhalla, model *traffic.Model, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{valhalla: valhalla, model: model, logger: logger}
}

// LearnedPatterns reports how many learned congestion patterns back the
// traffic model.
func (g *Generator) LearnedPatterns() int { return g.model.PatternCount() }

// Generate issues one isochrone request per band and merges the tagged
// geometries into a single document. A band that fails after client-level
// retries is logged and omitted; only a fully empty document is an error.
func (g *Generator) Generate(ctx context.Context, req Request) (*Document, error) {
	meta := g.model.Metadata(req.Pincode, req.Hour, req.DayOfWeek, req.Date)

	var features []Feature

	for _, distance := range req.Distances {
		adjusted := g.model.AdjustDistance(distance, req.Pincode, req.Hour, req.DayOfWeek, req.Date)

		band, err := g.valhalla.DistanceIsochrone(ctx, req.Lat, req.Lon, adjusted, req.Mode)
		if err != nil {
			g.logger.Warn("distance zone failed",
				"name", req.Name, "distance_km", distance, "error", err)
			continue
		}
		for _, f := range band {
			tagFeature(f, meta, map[string]any{
				"provider_name":         req.Name,
				"zone_type":             "distance",
				"label":                 fmt.Sprintf("%gkm", distance),
				"requested_distance_km": distance,
				"adjusted_distance_km":  adjusted,
				"traffic_aware":         true,
			})
			features = append(features, f)
		}
	}

	for _, minutes := range req.Durations {
		band, err := g.valhalla.TimeIsochrone(ctx, req.Lat, req.Lon, minutes, req.Mode)
		if err != nil {
			g.logger.Warn("time zone failed",
				"name", req.Name, "time_minutes", minutes, "error", err)
			continue
		}
		for _, f := range band {
			tagFeature(f, meta, map[string]any{
				"provider_name": req.Name,
				"zone_type":     "time",
				"label":         fmt.Sprintf("%dmin", minutes),
				"time_minutes":  minutes,
				"traffic_aware": false,
			})
			features = append(features, f)
		}
	}

	if len(features) == 0 {
		return nil, ErrNoZones
	}

	return &Document{
		Type: "FeatureCollection",
		Metadata: Metadata{
			ProviderName:         req.Name,
			CenterLat:            req.Lat,
			CenterLon:            req.Lon,
			Pincode:              req.Pincode,
			Mode:                 req.Mode,
			TotalZones:           len(features),
			DistanceZones:        req.Distances,
			TimeZones:            req.Durations,
			GeneratedAt:          time.Now().UTC(),
			GenerationConditions: meta,
		},
		Features: features,
	}, nil
}

func tagFeature(f Feature, meta traffic.Metadata, tags map[string]any) {
	f.Properties["api"] = "valhalla"
	f.Properties["traffic_model"] = "historical"
	f.Properties["city"] = meta.City
	f.Properties["area_type"] = meta.AreaType
	f.Properties["season"] = meta.Season
	f.Properties["traffic_factor"] = meta.TrafficFactor
	f.Properties["traffic_condition"] = meta.TrafficCondition
	for k, v := range tags {
		f.Properties[k] = v
	}
}

var separatorPattern = regexp.MustCompile(`[ ,/:?]+`)

// Filename builds the deterministic artifact name for one location.
func Filename(bppID, name, providerID, pincode string) string {
	clean := func(s string) string {
		return separatorPattern.ReplaceAllString(s, "_")
	}
	return fmt.Sprintf("%s+%s+%s+%s.geojson",
		clean(bppID), clean(name), clean(providerID), clean(pincode))
}

// WriteDocument persists a document under dir using the deterministic
// filename, returning the full path.
func WriteDocument(dir string, doc *Document, bppID, providerID string) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal zone document: %w", err)
	}

	path := filepath.Join(dir, Filename(bppID, doc.Metadata.ProviderName, providerID, doc.Metadata.Pincode))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write zone document: %w", err)
	}
	return path, nil
}
