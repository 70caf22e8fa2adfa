package zones

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ondc-data/geo-enricher/internal/apiclient"
)

// Feature is one tagged member geometry of a zone document.
type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type featureCollection struct {
	Features []Feature `json:"features"`
}

// CostingFromMode maps a travel mode label to a Valhalla costing profile.
// Unrecognized modes fall back to motorcycle, the common delivery vehicle.
func CostingFromMode(mode string) string {
	switch strings.ToLower(mode) {
	case "walk", "walking", "pedestrian":
		return "pedestrian"
	case "bike", "bicycle":
		return "bicycle"
	case "motorcycle":
		return "motorcycle"
	case "car", "auto":
		return "auto"
	default:
		return "motorcycle"
	}
}

// Valhalla issues isochrone requests against a Valhalla routing instance.
type Valhalla struct {
	client *apiclient.Client
	url    string
}

// NewValhalla creates an isochrone client.
func NewValhalla(client *apiclient.Client, url string) *Valhalla {
	return &Valhalla{client: client, url: url}
}

type isochroneRequest struct {
	Locations  []isochroneLocation `json:"locations"`
	Costing    string              `json:"costing"`
	Contours   []map[string]any    `json:"contours"`
	Polygons   bool                `json:"polygons"`
	Denoise    float64             `json:"denoise"`
	Generalize float64             `json:"generalize"`
}

type isochroneLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceIsochrone requests one distance-contour polygon (km).
func (v *Valhalla) DistanceIsochrone(ctx context.Context, lat, lon, distanceKm float64, mode string) ([]Feature, error) {
	return v.isochrone(ctx, lat, lon, mode, map[string]any{"distance": distanceKm})
}

// TimeIsochrone requests one time-contour polygon (minutes).
func (v *Valhalla) TimeIsochrone(ctx context.Context, lat, lon float64, minutes int, mode string) ([]Feature, error) {
	return v.isochrone(ctx, lat, lon, mode, map[string]any{"time": minutes})
}

func (v *Valhalla) isochrone(ctx context.Context, lat, lon float64, mode string, contour map[string]any) ([]Feature, error) {
	req := isochroneRequest{
		Locations:  []isochroneLocation{{Lat: lat, Lon: lon}},
		Costing:    CostingFromMode(mode),
		Contours:   []map[string]any{contour},
		Polygons:   true,
		Denoise:    0.3,
		Generalize: 50,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal isochrone request: %w", err)
	}

	resp, err := v.client.PostJSON(ctx, v.url, nil, payload)
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(resp.Body, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse isochrone response: %w", err)
	}

	for i := range fc.Features {
		if fc.Features[i].Properties == nil {
			fc.Features[i].Properties = make(map[string]any)
		}
	}
	return fc.Features, nil
}
