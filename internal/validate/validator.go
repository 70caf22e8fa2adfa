package validate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ondc-data/geo-enricher/internal/spatial"
)

// Expected bundles the anchor data a candidate is validated against.
type Expected struct {
	Name    string
	City    string
	State   string
	Pincode string
	Lat     float64
	Lon     float64
}

// Candidate is one place result returned by the search service.
type Candidate struct {
	Name    string
	Address string
	Lat     float64
	Lon     float64
}

// Outcome carries the verdict and the evidence behind it.
type Outcome struct {
	Accepted       bool
	NameScore      float64
	DistanceMeters float64
	FoundPincode   string
	RejectReason   string
}

// Known alternate names for major cities.
var cityAliases = map[string]string{
	"bangalore": "bengaluru",
	"bengaluru": "bangalore",
	"bombay":    "mumbai",
	"mumbai":    "bombay",
	"calcutta":  "kolkata",
	"kolkata":   "calcutta",
	"madras":    "chennai",
	"chennai":   "madras",
	"pune":      "poona",
	"poona":     "pune",
}

// Common abbreviations found in formatted addresses, keyed by full state name.
var stateAbbreviations = map[string][]string{
	"andhra pradesh":    {"ap", "a.p."},
	"arunachal pradesh": {"arunachal"},
	"himachal pradesh":  {"hp", "h.p."},
	"madhya pradesh":    {"mp", "m.p."},
	"tamil nadu":        {"tn", "t.n.", "tamilnadu"},
	"uttar pradesh":     {"up", "u.p."},
	"west bengal":       {"wb", "w.b.", "bengal"},
	"delhi":             {"new delhi", "ncr"},
	"jammu and kashmir": {"j&k", "jk", "jammu"},
	"puducherry":        {"pondicherry", "pondy"},
}

var pincodePattern = regexp.MustCompile(`\b(\d{6})\b`)

// ExtractPincode pulls the 6-digit postal code out of a formatted address.
// The last match wins since pincodes usually close out an address.
func ExtractPincode(address string) string {
	matches := pincodePattern.FindAllString(address, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// Validator applies the acceptance chain to place candidates.
type Validator struct {
	maxDistanceMeters float64
	logger            *slog.Logger
}

// New creates a validator. maxDistanceMeters bounds how far a candidate may
// sit from the search anchor.
func New(maxDistanceMeters float64, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{maxDistanceMeters: maxDistanceMeters, logger: logger}
}

// Validate runs the checks in fixed precedence order: name similarity is
// scored first but never rejects on its own; then distance, pincode, city
// and state each short-circuit on failure. A candidate passing the hard
// checks is accepted regardless of its name score.
func (v *Validator) Validate(c Candidate, e Expected) Outcome {
	out := Outcome{
		NameScore:    NameSimilarity(c.Name, e.Name),
		FoundPincode: ExtractPincode(c.Address),
	}

	out.DistanceMeters = spatial.HaversineDistance(e.Lat, e.Lon, c.Lat, c.Lon)
	if out.DistanceMeters > v.maxDistanceMeters {
		out.RejectReason = fmt.Sprintf("distance %.0fm exceeds %.0fm limit",
			out.DistanceMeters, v.maxDistanceMeters)
		return out
	}

	if out.FoundPincode != "" && e.Pincode != "" {
		if !pincodeMatches(out.FoundPincode, e.Pincode) {
			out.RejectReason = fmt.Sprintf("pincode %s does not match %s",
				out.FoundPincode, e.Pincode)
			return out
		}
	} else {
		v.logger.Warn("no pincode in found address, skipping check",
			"name", e.Name, "address", c.Address)
	}

	if !CityMatches(c.Address, e.City) {
		out.RejectReason = fmt.Sprintf("city %q not found in address", e.City)
		return out
	}

	if !StateMatches(c.Address, e.State) {
		out.RejectReason = fmt.Sprintf("state %q not found in address", e.State)
		return out
	}

	out.Accepted = true
	return out
}

// pincodeMatches accepts an exact match or a shared 3-digit regional prefix.
func pincodeMatches(found, expected string) bool {
	if found == expected {
		return true
	}
	return len(found) >= 3 && len(expected) >= 3 && found[:3] == expected[:3]
}

// CityMatches checks whether the expected city, or a known alternate name
// for it, appears in the formatted address.
func CityMatches(address, city string) bool {
	if address == "" || city == "" {
		return false
	}

	cityClean := strings.ToLower(strings.TrimSpace(city))
	addressLower := strings.ToLower(address)

	if strings.Contains(addressLower, cityClean) {
		return true
	}
	if alt, ok := cityAliases[cityClean]; ok {
		return strings.Contains(addressLower, alt)
	}
	return false
}

// StateMatches checks whether the expected state, or a known abbreviation
// for it, appears in the formatted address.
func StateMatches(address, state string) bool {
	if address == "" || state == "" {
		return false
	}

	stateClean := strings.ToLower(strings.TrimSpace(state))
	addressLower := strings.ToLower(address)

	if strings.Contains(addressLower, stateClean) {
		return true
	}
	for _, abbrev := range stateAbbreviations[stateClean] {
		if strings.Contains(addressLower, abbrev) {
			return true
		}
	}
	return false
}
