package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// MapboxProvider geocodes via Mapbox's v5 places endpoint, constrained to
// Argentina and the Mendoza bbox.
type MapboxProvider struct {
	AccessToken string
	Client      *http.Client
}

func NewMapboxProvider(token string) *MapboxProvider {
	return &MapboxProvider{AccessToken: token, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *MapboxProvider) Name() string { return "mapbox" }

type mapboxResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Relevance float64  `json:"relevance"`
		PlaceName string   `json:"place_name"`
		PlaceType []string `json:"place_type"`
	} `json:"features"`
}

func (p *MapboxProvider) Geocode(ctx context.Context, addr string) (*Result, error) {
	encoded := url.PathEscape(fmt.Sprintf("%s, Mendoza, Argentina", addr))
	q := url.Values{}
	q.Set("access_token", p.AccessToken)
	q.Set("country", "ar")
	q.Set("bbox", "-69.5,-33.5,-68.0,-32.0")
	q.Set("limit", "1")
	q.Set("types", "address")

	reqURL := fmt.Sprintf("https://api.mapbox.com/geocoding/v5/mapbox.places/%s.json?%s", encoded, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mapbox geocode: status %d", resp.StatusCode)
	}

	var parsed mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Features) == 0 {
		return nil, nil
	}
	f := parsed.Features[0]
	return &Result{
		Lat:              f.Geometry.Coordinates[1],
		Lng:              f.Geometry.Coordinates[0],
		FormattedAddress: f.PlaceName,
		HasStreetNumber:  slices.Contains(f.PlaceType, "address"),
		Confidence:       f.Relevance,
		Provider:         "mapbox",
	}, nil
}
