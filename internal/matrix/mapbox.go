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

// MapboxProvider computes driving durations via Mapbox's Matrix API.
type MapboxProvider struct {
	AccessToken string
	Client      *http.Client
}

func NewMapboxProvider(token string) *MapboxProvider {
	return &MapboxProvider{AccessToken: token, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (p *MapboxProvider) Name() string { return "mapbox" }

type mapboxMatrixResponse struct {
	Durations [][]*float64 `json:"durations"`
}

func (p *MapboxProvider) Call(ctx context.Context, origins, dests []Point) ([][]*int, error) {
	all := append(append([]Point{}, origins...), dests...)
	coords := make([]string, len(all))
	for i, pt := range all {
		coords[i] = fmt.Sprintf("%f,%f", pt.Lng, pt.Lat)
	}
	sourcesIdx := make([]string, len(origins))
	for i := range origins {
		sourcesIdx[i] = fmt.Sprintf("%d", i)
	}
	destsIdx := make([]string, len(dests))
	for i := range dests {
		destsIdx[i] = fmt.Sprintf("%d", len(origins)+i)
	}

	q := url.Values{}
	q.Set("access_token", p.AccessToken)
	q.Set("sources", strings.Join(sourcesIdx, ";"))
	q.Set("destinations", strings.Join(destsIdx, ";"))
	q.Set("annotations", "duration")

	reqURL := fmt.Sprintf("https://api.mapbox.com/directions-matrix/v1/mapbox/driving/%s?%s",
		strings.Join(coords, ";"), q.Encode())
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
		return nil, fmt.Errorf("mapbox matrix: status %d", resp.StatusCode)
	}

	var parsed mapboxMatrixResponse
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
