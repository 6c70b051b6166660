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

// GoogleProvider geocodes via the Google Maps Geocoding API.
type GoogleProvider struct {
	APIKey string
	Client *http.Client
}

func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{APIKey: apiKey, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleGeocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
		AddressComponents []struct {
			Types []string `json:"types"`
		} `json:"address_components"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

// googleConfidenceByLocationType approximates a confidence score since the
// API exposes no raw confidence field, only a location_type.
var googleConfidenceByLocationType = map[string]float64{
	"ROOFTOP":            0.99,
	"RANGE_INTERPOLATED": 0.8,
	"GEOMETRIC_CENTER":   0.6,
	"APPROXIMATE":        0.3,
}

func (p *GoogleProvider) Geocode(ctx context.Context, addr string) (*Result, error) {
	q := url.Values{}
	q.Set("address", fmt.Sprintf("%s, Mendoza, Argentina", addr))
	q.Set("key", p.APIKey)
	q.Set("components", "country:AR|administrative_area:Mendoza")

	reqURL := "https://maps.googleapis.com/maps/api/geocode/json?" + q.Encode()
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
		return nil, fmt.Errorf("google geocode: status %d", resp.StatusCode)
	}

	var parsed googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Results) == 0 {
		return nil, nil
	}
	r := parsed.Results[0]

	hasNum := false
	for _, c := range r.AddressComponents {
		if slices.Contains(c.Types, "street_number") {
			hasNum = true
			break
		}
	}

	locationType := r.Geometry.LocationType
	if locationType == "" {
		locationType = "APPROXIMATE"
	}
	confidence, ok := googleConfidenceByLocationType[locationType]
	if !ok {
		confidence = 0.5
	}

	return &Result{
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		HasStreetNumber:  hasNum,
		Confidence:       confidence,
		Provider:         "google",
	}, nil
}
