package validate

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ondc-data/geo-enricher/internal/spatial"
)

var puneAnchor = Expected{
	Name:    "Cafe Leaf",
	City:    "Pune",
	State:   "Maharashtra",
	Pincode: "411001",
	Lat:     18.5204,
	Lon:     73.8567,
}

// candidateAt places a candidate at a given distance (meters) from the anchor.
func candidateAt(t *testing.T, e Expected, meters float64) Candidate {
	t.Helper()
	lat, lon := spatial.DestinationPoint(e.Lat, e.Lon, 45, meters)
	return Candidate{
		Name:    e.Name,
		Address: "MG Road, Pune, Maharashtra 411001, India",
		Lat:     lat,
		Lon:     lon,
	}
}

func TestValidateAcceptsNearbyMatch(t *testing.T) {
	v := New(10000, nil)

	out := v.Validate(candidateAt(t, puneAnchor, 50), puneAnchor)

	assert.True(t, out.Accepted)
	assert.InDelta(t, 50, out.DistanceMeters, 1)
	assert.Equal(t, "411001", out.FoundPincode)
	assert.Equal(t, 1.0, out.NameScore)
}

func TestDistanceRejectsDespiteExactName(t *testing.T) {
	v := New(10000, nil)

	out := v.Validate(candidateAt(t, puneAnchor, 15000), puneAnchor)

	assert.False(t, out.Accepted)
	assert.Equal(t, 1.0, out.NameScore, "name score is still reported")
	assert.Contains(t, out.RejectReason, "distance")
}

func TestZeroNameScoreStillAccepted(t *testing.T) {
	v := New(10000, nil)

	c := candidateAt(t, puneAnchor, 100)
	c.Name = "Zzz Qqq"

	out := v.Validate(c, puneAnchor)

	assert.True(t, out.Accepted, "name similarity is informational only")
	assert.Less(t, out.NameScore, 0.5)
}

func TestPincodeRegionalPrefixAccepted(t *testing.T) {
	v := New(10000, nil)

	c := candidateAt(t, puneAnchor, 100)
	c.Address = "FC Road, Pune, Maharashtra 411004, India"

	out := v.Validate(c, puneAnchor)
	assert.True(t, out.Accepted)
	assert.Equal(t, "411004", out.FoundPincode)
}

func TestPincodeMismatchRejected(t *testing.T) {
	v := New(10000, nil)

	c := candidateAt(t, puneAnchor, 100)
	c.Address = "Some Road, Pune, Maharashtra 412105, India"

	out := v.Validate(c, puneAnchor)
	assert.False(t, out.Accepted)
	assert.Contains(t, out.RejectReason, "pincode")
}

func TestMissingFoundPincodeSkipsCheckWithWarning(t *testing.T) {
	var buf bytes.Buffer
	v := New(10000, slog.New(slog.NewTextHandler(&buf, nil)))

	c := candidateAt(t, puneAnchor, 100)
	c.Address = "MG Road, Pune, Maharashtra, India"

	out := v.Validate(c, puneAnchor)
	assert.True(t, out.Accepted)
	assert.Empty(t, out.FoundPincode)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "skipping check")
}

func TestCityAliasAccepted(t *testing.T) {
	e := puneAnchor
	e.City = "Bangalore"
	e.State = "Karnataka"
	e.Pincode = "560001"
	e.Lat, e.Lon = 12.9716, 77.5946

	v := New(10000, nil)
	c := candidateAt(t, e, 100)
	c.Address = "Church Street, Bengaluru, Karnataka 560001, India"

	out := v.Validate(c, e)
	assert.True(t, out.Accepted)
}

func TestCityMissingRejected(t *testing.T) {
	v := New(10000, nil)

	c := candidateAt(t, puneAnchor, 100)
	c.Address = "Link Road, Mumbai, Maharashtra 411001, India"

	out := v.Validate(c, puneAnchor)
	assert.False(t, out.Accepted)
	assert.Contains(t, out.RejectReason, "city")
}

func TestStateAbbreviationAccepted(t *testing.T) {
	e := puneAnchor
	e.City = "Chennai"
	e.State = "Tamil Nadu"
	e.Pincode = "600001"
	e.Lat, e.Lon = 13.0827, 80.2707

	v := New(10000, nil)
	c := candidateAt(t, e, 100)
	c.Address = "Anna Salai, Chennai, Tamilnadu 600001, India"

	out := v.Validate(c, e)
	assert.True(t, out.Accepted)
}

func TestStateMissingRejected(t *testing.T) {
	v := New(10000, nil)

	c := candidateAt(t, puneAnchor, 100)
	c.Address = "MG Road, Pune, 411001, India"

	out := v.Validate(c, puneAnchor)
	assert.False(t, out.Accepted)
	assert.Contains(t, out.RejectReason, "state")
}

func TestExtractPincode(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"at end", "MG Road, Pune, Maharashtra 411001, India", "411001"},
		{"multiple takes last", "Plot 560001, Bengaluru 560025", "560025"},
		{"none", "MG Road, Pune, Maharashtra", ""},
		{"too short", "Sector 12345", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPincode(tt.address))
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		found    string
		expected string
		min, max float64
	}{
		{"exact", "Cafe Leaf", "Cafe Leaf", 1.0, 1.0},
		{"case insensitive", "CAFE LEAF", "cafe leaf", 1.0, 1.0},
		{"containment", "Cafe Leaf Koregaon Park", "Cafe Leaf", 0.3, 0.99},
		{"stop words ignored", "Leaf Restaurant", "The Leaf", 0.9, 1.0},
		{"unrelated", "Dominos Pizza", "Udupi Grand", 0, 0.4},
		{"empty", "", "Cafe Leaf", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameSimilarity(tt.found, tt.expected)
			assert.GreaterOrEqual(t, got, tt.min)
			assert.LessOrEqual(t, got, tt.max)
		})
	}
}
