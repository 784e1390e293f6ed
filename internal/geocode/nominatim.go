package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/stadtmeldung/report-server/internal/models"
)

const (
	// DefaultNominatimURL is the public Nominatim endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	// userAgent is required by the Nominatim usage policy.
	userAgent = "StadtMeldung/1.0 (https://stadtmeldung.example)"
	// Nominatim allows at most one request per second.
	minRequestInterval = time.Second
)

// NominatimResolver forward-geocodes via the Nominatim search API, taking
// the best-effort first match. Requests are serialized and rate-limited.
type NominatimResolver struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

// NewNominatimResolver returns a live resolver against baseURL
// (DefaultNominatimURL when empty).
func NewNominatimResolver(baseURL string) *NominatimResolver {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &NominatimResolver{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// nominatimHit is one result of the Nominatim search API.
type nominatimHit struct {
	Lat     string           `json:"lat"`
	Lon     string           `json:"lon"`
	Address nominatimAddress `json:"address"`
}

type nominatimAddress struct {
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	CityDistrict  string `json:"city_district"`
	Town          string `json:"town"`
	City          string `json:"city"`
	Postcode      string `json:"postcode"`
}

// area picks the most specific available address component.
func (a nominatimAddress) area() string {
	for _, v := range []string{a.Suburb, a.Neighbourhood, a.CityDistrict, a.Town, a.City} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *NominatimResolver) waitForSlot() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if elapsed := time.Since(r.lastRequest); elapsed < minRequestInterval {
		time.Sleep(minRequestInterval - elapsed)
	}
	r.lastRequest = time.Now()
}

// Resolve queries Nominatim and extracts coordinates, area and zip from the
// first hit. An empty result set maps to ErrNotFound.
func (r *NominatimResolver) Resolve(ctx context.Context, query string) (models.Location, error) {
	r.waitForSlot()

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("addressdetails", "1")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return models.Location{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("nominatim status %d", resp.StatusCode)
	}

	var hits []nominatimHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return models.Location{}, fmt.Errorf("decode response: %w", err)
	}
	if len(hits) == 0 {
		return models.Location{}, ErrNotFound
	}

	hit := hits[0]
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("parse lat %q: %w", hit.Lat, err)
	}
	lng, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("parse lon %q: %w", hit.Lon, err)
	}

	return models.Location{
		Lat:  lat,
		Lng:  lng,
		Area: hit.Address.area(),
		Zip:  hit.Address.Postcode,
	}, nil
}
