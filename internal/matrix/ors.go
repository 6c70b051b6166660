package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ORSProvider computes driving durations via OpenRouteService's matrix API.
type ORSProvider struct {
	APIKey string
	Client *http.Client
}

func NewORSProvider(apiKey string) *ORSProvider {
	return &ORSProvider{APIKey: apiKey, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *ORSProvider) Name() string { return "ors" }

type orsMatrixRequest struct {
	Locations    [][2]float64 `json:"locations"`
	Sources      []int        `json:"sources"`
	Destinations []int        `json:"destinations"`
	Metrics      []string     `json:"metrics"`
}

type orsMatrixResponse struct {
	Durations [][]*float64 `json:"durations"`
}

func (p *ORSProvider) Call(ctx context.Context, origins, dests []Point) ([][]*int, error) {
	locations := make([][2]float64, 0, len(origins)+len(dests))
	for _, pt := range origins {
		locations = append(locations, [2]float64{pt.Lng, pt.Lat})
	}
	for _, pt := range dests {
		locations = append(locations, [2]float64{pt.Lng, pt.Lat})
	}
	sources := make([]int, len(origins))
	for i := range sources {
		sources[i] = i
	}
	destinations := make([]int, len(dests))
	for i := range destinations {
		destinations[i] = len(origins) + i
	}

	body, err := json.Marshal(orsMatrixRequest{
		Locations: locations, Sources: sources, Destinations: destinations,
		Metrics: []string{"duration"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.openrouteservice.org/v2/matrix/driving-car", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", p.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ors matrix: status %d", resp.StatusCode)
	}

	var parsed orsMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([][]*int, len(parsed.Durations))
	for i, row := range parsed.Durations {
		out[i] = make([]*int, len(row))
		for j, v := range row {
			if v != nil {
				sec := int(*v)
				out[i][j] = &sec
			}
		}
	}
	return out, nil
}
