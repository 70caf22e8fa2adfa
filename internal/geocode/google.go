package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ondc-data/geo-enricher/internal/apiclient"
)

const googleFieldMask = "places.id," +
	"places.displayName," +
	"places.formattedAddress," +
	"places.location," +
	"places.businessStatus," +
	"places.currentOpeningHours," +
	"places.googleMapsUri"

// GooglePlaces searches the Places text-search API.
type GooglePlaces struct {
	client     *apiclient.Client
	endpoint   string
	apiKey     string
	biasRadius float64
}

// NewGooglePlaces creates a searcher against the given endpoint. biasRadius
// is the locationBias circle radius in meters.
func NewGooglePlaces(client *apiclient.Client, endpoint, apiKey string, biasRadius float64) *GooglePlaces {
	return &GooglePlaces{
		client:     client,
		endpoint:   endpoint,
		apiKey:     apiKey,
		biasRadius: biasRadius,
	}
}

type googleSearchRequest struct {
	TextQuery    string `json:"textQuery"`
	LanguageCode string `json:"languageCode"`
	LocationBias struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationBias"`
}

type googleSearchResponse struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		Location         struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		BusinessStatus      string `json:"businessStatus"`
		CurrentOpeningHours struct {
			WeekdayDescriptions []string `json:"weekdayDescriptions"`
		} `json:"currentOpeningHours"`
		GoogleMapsURI string `json:"googleMapsUri"`
	} `json:"places"`
}

// Search returns the first (best) candidate for the query.
func (g *GooglePlaces) Search(ctx context.Context, query string, biasLat, biasLon float64) (*Place, error) {
	var req googleSearchRequest
	req.TextQuery = query
	req.LanguageCode = "en"
	req.LocationBias.Circle.Center.Latitude = biasLat
	req.LocationBias.Circle.Center.Longitude = biasLon
	req.LocationBias.Circle.Radius = g.biasRadius

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	headers := map[string]string{
		"X-Goog-Api-Key":   g.apiKey,
		"X-Goog-FieldMask": googleFieldMask,
	}

	resp, err := g.client.PostJSON(ctx, g.endpoint, headers, payload)
	if err != nil {
		return nil, err
	}

	var out googleSearchResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if len(out.Places) == 0 {
		return nil, ErrNoResults
	}

	top := out.Places[0]
	return &Place{
		Name:           top.DisplayName.Text,
		Address:        top.FormattedAddress,
		Lat:            top.Location.Latitude,
		Lon:            top.Location.Longitude,
		BusinessStatus: BusinessStatusLabel(top.BusinessStatus),
		OpeningHours:   strings.Join(top.CurrentOpeningHours.WeekdayDescriptions, " | "),
		MapsLink:       top.GoogleMapsURI,
	}, nil
}
