package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ORSProvider geocodes via OpenRouteService's /geocode/search endpoint,
// constrained to the Mendoza bounding box.
type ORSProvider struct {
	APIKey string
	Client *http.Client
}

func NewORSProvider(apiKey string) *ORSProvider {
	return &ORSProvider{APIKey: apiKey, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *ORSProvider) Name() string { return "ors" }

type orsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [2]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Confidence *float64 `json:"confidence"`
			Housenumber string  `json:"housenumber"`
			Label       string  `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

func (p *ORSProvider) Geocode(ctx context.Context, addr string) (*Result, error) {
	q := url.Values{}
	q.Set("api_key", p.APIKey)
	q.Set("text", fmt.Sprintf("%s, Mendoza, Argentina", addr))
	q.Set("boundary.rect.min_lng", "-69.5")
	q.Set("boundary.rect.min_lat", "-33.5")
	q.Set("boundary.rect.max_lng", "-68.0")
	q.Set("boundary.rect.max_lat", "-32.0")
	q.Set("size", "1")
	q.Set("layers", "address")

	reqURL := "https://api.openrouteservice.org/geocode/search?" + q.Encode()
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
		return nil, fmt.Errorf("ors geocode: status %d", resp.StatusCode)
	}

	var parsed orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Features) == 0 {
		return nil, nil
	}
	f := parsed.Features[0]
	confidence := 0.5
	if f.Properties.Confidence != nil {
		confidence = *f.Properties.Confidence
	}
	return &Result{
		Lat:              f.Geometry.Coordinates[1],
		Lng:              f.Geometry.Coordinates[0],
		FormattedAddress: f.Properties.Label,
		HasStreetNumber:  f.Properties.Housenumber != "",
		Confidence:       confidence,
		Provider:         "ors",
	}, nil
}
