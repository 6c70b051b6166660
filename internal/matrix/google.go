package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoogleProvider computes driving durations via the Google Distance Matrix API.
type GoogleProvider struct {
	APIKey string
	Client *http.Client
}

func NewGoogleProvider(apiKey string) *GoogleProvider {
	return &GoogleProvider{APIKey: apiKey, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleMatrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func (p *GoogleProvider) Call(ctx context.Context, origins, dests []Point) ([][]*int, error) {
	originParts := make([]string, len(origins))
	for i, pt := range origins {
		originParts[i] = fmt.Sprintf("%f,%f", pt.Lat, pt.Lng)
	}
	destParts := make([]string, len(dests))
	for i, pt := range dests {
		destParts[i] = fmt.Sprintf("%f,%f", pt.Lat, pt.Lng)
	}

	q := url.Values{}
	q.Set("origins", strings.Join(originParts, "|"))
	q.Set("destinations", strings.Join(destParts, "|"))
	q.Set("mode", "driving")
	q.Set("key", p.APIKey)

	reqURL := "https://maps.googleapis.com/maps/api/distancematrix/json?" + q.Encode()
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
		return nil, fmt.Errorf("google matrix: status %d", resp.StatusCode)
	}

	var parsed googleMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([][]*int, len(parsed.Rows))
	for i, row := range parsed.Rows {
		out[i] = make([]*int, len(row.Elements))
		for j, elem := range row.Elements {
			if elem.Status == "OK" {
				v := elem.Duration.Value
				out[i][j] = &v
			}
		}
	}
	return out, nil
}
