// Package geocode converts free-text addresses into coordinates with an
// area name and zip code. Two interchangeable resolvers exist: a fixed
// demo lookup table and a live Nominatim client.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/stadtmeldung/report-server/internal/models"
)

// ErrNotFound means the query resolved to no location. It is informational,
// not fatal — callers surface it as a miss and keep prior state.
var ErrNotFound = errors.New("geocode: address not found")

// Resolver resolves a free-text address or district name to a location.
type Resolver interface {
	Resolve(ctx context.Context, query string) (models.Location, error)
}

// demoTable maps lowercased Berlin district names to fixed locations,
// matching the demo geocoder of the frontend.
var demoTable = map[string]models.Location{
	"mitte":           {Lat: 52.520008, Lng: 13.404954, Area: "Mitte", Zip: "10115"},
	"kreuzberg":       {Lat: 52.4986, Lng: 13.4033, Area: "Kreuzberg", Zip: "10997"},
	"prenzlauer berg": {Lat: 52.539, Lng: 13.424, Area: "Prenzlauer Berg", Zip: "10405"},
	"charlottenburg":  {Lat: 52.5046, Lng: 13.2907, Area: "Charlottenburg", Zip: "10623"},
	"neukölln":        {Lat: 52.48, Lng: 13.4376, Area: "Neukölln", Zip: "12043"},
	"friedrichshain":  {Lat: 52.5155, Lng: 13.4546, Area: "Friedrichshain", Zip: "10245"},
}

// TableResolver resolves against the fixed district table, case-insensitively.
type TableResolver struct{}

// NewTableResolver returns the demo resolver.
func NewTableResolver() *TableResolver {
	return &TableResolver{}
}

// Resolve looks the query up in the district table.
func (r *TableResolver) Resolve(_ context.Context, query string) (models.Location, error) {
	loc, ok := demoTable[strings.ToLower(strings.TrimSpace(query))]
	if !ok {
		return models.Location{}, ErrNotFound
	}
	return loc, nil
}

// KnownAreas returns the area names of the demo table, for filter dropdowns.
func KnownAreas() []string {
	areas := make([]string, 0, len(demoTable))
	for _, loc := range demoTable {
		areas = append(areas, loc.Area)
	}
	return areas
}
