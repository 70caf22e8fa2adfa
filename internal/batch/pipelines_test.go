package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ondc-data/geo-enricher/internal/apiclient"
	"github.com/ondc-data/geo-enricher/internal/checkpoint"
	"github.com/ondc-data/geo-enricher/internal/dataset"
	"github.com/ondc-data/geo-enricher/internal/geocode"
	"github.com/ondc-data/geo-enricher/internal/spatial"
	"github.com/ondc-data/geo-enricher/internal/traffic"
	"github.com/ondc-data/geo-enricher/internal/validate"
	"github.com/ondc-data/geo-enricher/internal/zones"
)

const (
	puneLat = 18.5204
	puneLon = 73.8567
)

// placesMock serves a fixed candidate per provider name found in textQuery.
func placesMock(t *testing.T, candidates map[string]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TextQuery string `json:"textQuery"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		for name, place := range candidates {
			if len(req.TextQuery) >= len(name) && req.TextQuery[:len(name)] == name {
				json.NewEncoder(w).Encode(map[string]any{"places": []any{place}})
				return
			}
		}
		w.Write([]byte(`{}`))
	}))
}

func googlePlace(name, address string, lat, lon float64) map[string]any {
	return map[string]any{
		"displayName":      map[string]any{"text": name},
		"formattedAddress": address,
		"location":         map[string]any{"latitude": lat, "longitude": lon},
		"businessStatus":   "OPERATIONAL",
		"currentOpeningHours": map[string]any{
			"weekdayDescriptions": []string{"Monday: 9 AM - 10 PM"},
		},
		"googleMapsUri": "https://maps.google.com/?cid=1",
	}
}

func runGeocode(t *testing.T, path, endpoint string) *Summary {
	t.Helper()
	ds, err := dataset.Open(path)
	require.NoError(t, err)
	defer ds.Close()

	client := apiclient.New(5*time.Second, 0, 0, nil)
	searcher := geocode.NewGooglePlaces(client, endpoint, "test-key", 2000)
	pipe := NewGeocodePipeline(ds, searcher, validate.New(10000, nil), nil)

	orch := New(ds, checkpoint.NewStore(nil), pipe, Options{Workers: 2}, nil, nil)
	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	return summary
}

func geocodeHeaders() []string {
	return []string{"Provider Name", "Seller City", "Seller Pincode", "State", "network_lat", "network_long"}
}

func TestGeocodeFlowAcceptsNearbyCandidate(t *testing.T) {
	nearLat, nearLon := spatial.DestinationPoint(puneLat, puneLon, 90, 50)
	srv := placesMock(t, map[string]map[string]any{
		"Cafe Leaf": googlePlace("Cafe Leaf Koregaon",
			"Cafe Leaf, MG Road, Pune, Maharashtra 411001, India", nearLat, nearLon),
	})
	defer srv.Close()

	path := writeTestWorkbook(t, geocodeHeaders(), [][]any{
		{"Cafe Leaf", "Pune", "411001", "Maharashtra", puneLat, puneLon},
	})

	summary := runGeocode(t, path, srv.URL)
	assert.Equal(t, 1, summary.Succeeded)

	out, err := dataset.Open(path)
	require.NoError(t, err)
	defer out.Close()

	latStr, err := out.Cell(2, "refined_lat")
	require.NoError(t, err)
	lat, err := strconv.ParseFloat(latStr, 64)
	require.NoError(t, err)
	assert.InDelta(t, nearLat, lat, 1e-5)

	distStr, err := out.Cell(2, "Distance_Meters")
	require.NoError(t, err)
	dist, err := strconv.ParseFloat(distStr, 64)
	require.NoError(t, err)
	assert.InDelta(t, 50, dist, 2)

	for column, want := range map[string]string{
		"Restaurant_Status":     "Open",
		"Store_Timings":         "Monday: 9 AM - 10 PM",
		"Found_Pincode":         "411001",
		"Found_Restaurant_Name": "Cafe Leaf Koregaon",
		"processing_status":     "Success",
	} {
		got, err := out.Cell(2, column)
		require.NoError(t, err)
		assert.Equal(t, want, got, column)
	}
}

func TestGeocodeFlowRejectsDistantCandidate(t *testing.T) {
	farLat, farLon := spatial.DestinationPoint(puneLat, puneLon, 0, 15000)
	srv := placesMock(t, map[string]map[string]any{
		"Far Diner": googlePlace("Far Diner",
			"Far Diner, Pune, Maharashtra 411001, India", farLat, farLon),
	})
	defer srv.Close()

	path := writeTestWorkbook(t, geocodeHeaders(), [][]any{
		{"Far Diner", "Pune", "411001", "Maharashtra", puneLat, puneLon},
	})

	summary := runGeocode(t, path, srv.URL)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	out, err := dataset.Open(path)
	require.NoError(t, err)
	defer out.Close()

	refined, err := out.Cell(2, "refined_lat")
	require.NoError(t, err)
	assert.Empty(t, refined, "rejected rows keep empty refined fields")

	status, err := out.Cell(2, "processing_status")
	require.NoError(t, err)
	assert.Contains(t, status, "Failed: distance")
}

func TestGeocodeFlowSkipsRowsWithoutInputs(t *testing.T) {
	srv := placesMock(t, nil)
	defer srv.Close()

	path := writeTestWorkbook(t, geocodeHeaders(), [][]any{
		{"No City Cafe", "", "411001", "Maharashtra", puneLat, puneLon},
		{"Zero Coords", "Pune", "411001", "Maharashtra", 0, 0},
	})

	summary := runGeocode(t, path, srv.URL)
	assert.Equal(t, 2, summary.NoData)
	assert.Equal(t, 0, summary.Dispatched)
}

// flatZoneTables leaves only the morning rush multiplier active, so hour 8
// gives a factor of exactly 0.5.
func flatZoneTables() *traffic.Tables {
	tab := traffic.DefaultTables()
	tab.CityBaseFactors = map[string]float64{"default": 1.0}
	tab.AreaTypeFactors = map[string]float64{"flat": 1.0}
	tab.SeasonFactors = map[string]float64{}
	tab.AreaClassifier = func(*traffic.Tables, string) string { return "flat" }
	for i := range tab.HourlyFactors {
		tab.HourlyFactors[i] = 1.0
	}
	tab.HourlyFactors[8] = 0.5
	for i := range tab.DayFactors {
		tab.DayFactors[i] = 1.0
	}
	return tab
}

func valhallaMock(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var mu sync.Mutex
	var contours []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contours []map[string]any `json:"contours"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		contours = append(contours, req.Contours...)
		mu.Unlock()
		fmt.Fprint(w, `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[73.85,18.52],[73.86,18.52],[73.86,18.53],[73.85,18.52]]]}}]}`)
	}))
	return srv, &contours
}

func runZones(t *testing.T, path, endpoint, outputDir string) *Summary {
	t.Helper()
	ds, err := dataset.Open(path)
	require.NoError(t, err)
	defer ds.Close()

	client := apiclient.New(5*time.Second, 0, 0, nil)
	gen := zones.NewGenerator(zones.NewValhalla(client, endpoint), traffic.NewModel(flatZoneTables(), nil), nil)

	// Monday 08:00, the rush hour the flat tables key on
	at := time.Date(2026, time.January, 12, 8, 0, 0, 0, time.UTC)
	pipe := NewZonesPipeline(ds, gen, outputDir, []float64{5}, []int{20}, "motorcycle", at, nil)

	orch := New(ds, checkpoint.NewStore(nil), pipe, Options{Workers: 1}, nil, nil)
	summary, err := orch.Run(context.Background())
	require.NoError(t, err)
	return summary
}

func zonesHeaders() []string {
	return []string{"Provider Name", "Provider ID", "Latitude", "Longitude", "bpp id", "Seller Pincode"}
}

func TestZonesFlowAdjustsDistanceAndWritesArtifact(t *testing.T) {
	srv, contours := valhallaMock(t)
	defer srv.Close()

	outputDir := t.TempDir()
	path := writeTestWorkbook(t, zonesHeaders(), [][]any{
		{"Cafe Leaf", "P42", puneLat, puneLon, "bpp1", "411001"},
	})

	summary := runZones(t, path, srv.URL, outputDir)
	assert.Equal(t, 1, summary.Succeeded)

	// 5km band halved by the 0.5 rush factor; time band sent unadjusted
	require.Len(t, *contours, 2)
	assert.InDelta(t, 2.5, (*contours)[0]["distance"], 1e-9)
	assert.InDelta(t, 20, (*contours)[1]["time"], 1e-9)

	out, err := dataset.Open(path)
	require.NoError(t, err)
	defer out.Close()

	artifact, err := out.Cell(2, "zones_file")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputDir, "bpp1+Cafe_Leaf+P42+411001.geojson"), artifact)
	_, statErr := os.Stat(artifact)
	require.NoError(t, statErr)

	count, err := out.Cell(2, "zones_count")
	require.NoError(t, err)
	assert.Equal(t, "2", count)

	adjusted, err := out.Cell(2, "traffic_adjusted")
	require.NoError(t, err)
	assert.Equal(t, "yes", adjusted)

	payload, err := out.Cell(2, "zones_geojson")
	require.NoError(t, err)
	var doc zones.Document
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))
	assert.Equal(t, 2, doc.Metadata.TotalZones)
}

func TestZonesFlowSkipsExistingArtifact(t *testing.T) {
	srv, contours := valhallaMock(t)
	defer srv.Close()

	outputDir := t.TempDir()
	path := writeTestWorkbook(t, zonesHeaders(), [][]any{
		{"Cafe Leaf", "P42", puneLat, puneLon, "bpp1", "411001"},
	})

	runZones(t, path, srv.URL, outputDir)
	calls := len(*contours)

	summary := runZones(t, path, srv.URL, outputDir)
	assert.Equal(t, 1, summary.AlreadyPopulated)
	assert.Equal(t, 0, summary.Dispatched)
	assert.Len(t, *contours, calls, "no new isochrone calls")
}

func TestZonesFlowRegeneratesDeletedArtifact(t *testing.T) {
	srv, _ := valhallaMock(t)
	defer srv.Close()

	outputDir := t.TempDir()
	path := writeTestWorkbook(t, zonesHeaders(), [][]any{
		{"Cafe Leaf", "P42", puneLat, puneLon, "bpp1", "411001"},
	})

	runZones(t, path, srv.URL, outputDir)

	artifact := filepath.Join(outputDir, "bpp1+Cafe_Leaf+P42+411001.geojson")
	require.NoError(t, os.Remove(artifact))

	summary := runZones(t, path, srv.URL, outputDir)
	assert.Equal(t, 1, summary.Dispatched, "missing artifact forces regeneration")
	_, statErr := os.Stat(artifact)
	require.NoError(t, statErr)
}
