package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ondc-data/geo-enricher/internal/apiclient"
)

// Nominatim searches the free OSM geocoder. It has no business metadata, so
// status comes back Unknown; useful as a no-key fallback provider.
type Nominatim struct {
	client    *apiclient.Client
	baseURL   string
	userAgent string
}

// NewNominatim creates a searcher against a Nominatim instance. The service
// requires an identifying User-Agent.
func NewNominatim(client *apiclient.Client, baseURL, userAgent string) *Nominatim {
	if userAgent == "" {
		userAgent = "geo-enricher/1.0"
	}
	return &Nominatim{client: client, baseURL: baseURL, userAgent: userAgent}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns the top candidate for the query. The bias coordinate is
// accepted for interface compatibility; Nominatim ranks globally.
func (n *Nominatim) Search(ctx context.Context, query string, biasLat, biasLon float64) (*Place, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1",
		n.baseURL, url.QueryEscape(query))

	resp, err := n.client.GetJSON(ctx, endpoint, map[string]string{"User-Agent": n.userAgent})
	if err != nil {
		return nil, err
	}

	var results []nominatimResult
	if err := json.Unmarshal(resp.Body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	top := results[0]
	lat, err := strconv.ParseFloat(top.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", top.Lat, err)
	}
	lon, err := strconv.ParseFloat(top.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", top.Lon, err)
	}

	return &Place{
		Name:           top.DisplayName,
		Address:        top.DisplayName,
		Lat:            lat,
		Lon:            lon,
		BusinessStatus: BusinessStatusLabel(""),
	}, nil
}
