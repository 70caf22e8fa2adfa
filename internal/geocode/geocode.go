package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Place is one candidate returned by a place-search service.
type Place struct {
	Name           string
	Address        string
	Lat            float64
	Lon            float64
	BusinessStatus string
	OpeningHours   string
	MapsLink       string
}

// ErrNoResults signals a well-formed search that matched nothing.
var ErrNoResults = errors.New("no places found")

// Searcher is a place-search service. Search returns the top candidate for
// a free-text query biased around a coordinate, or ErrNoResults.
type Searcher interface {
	Search(ctx context.Context, query string, biasLat, biasLon float64) (*Place, error)
}

// Queries builds the search formulations for one location in increasing
// specificity: name alone, name with city, name with city and state. The
// first formulation whose result validates wins.
func Queries(name, city, state string) []string {
	name = strings.TrimSpace(name)
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)

	queries := []string{name}
	if city != "" {
		queries = append(queries, fmt.Sprintf("%s, %s", name, city))
		if state != "" {
			queries = append(queries, fmt.Sprintf("%s, %s, %s", name, city, state))
		}
	}
	return queries
}

// BusinessStatusLabel translates a raw provider status into a readable one.
func BusinessStatusLabel(status string) string {
	switch status {
	case "OPERATIONAL":
		return "Open"
	case "CLOSED_TEMPORARILY":
		return "Temporarily Closed"
	case "CLOSED_PERMANENTLY":
		return "Permanently Closed"
	case "":
		return "Unknown"
	default:
		return status
	}
}
