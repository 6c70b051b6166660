package matrix

import (
	"context"
	"errors"
	"testing"
)

type memCache struct {
	pairs map[string]float64
	saved int
}

func newMemCache() *memCache { return &memCache{pairs: map[string]float64{}} }

func key(o, d Point) string {
	return o.Label + "->" + d.Label
}

func (c *memCache) LookupPair(ctx context.Context, o, d Point) (float64, bool, error) {
	v, ok := c.pairs[key(o, d)]
	return v, ok, nil
}

func (c *memCache) SavePair(ctx context.Context, o, d Point, durationSec int, provider string) error {
	c.pairs[key(o, d)] = float64(durationSec) / 60.0
	c.saved++
	return nil
}

type stubProvider struct {
	name string
	rows [][]*int
	err  error
}

func (p stubProvider) Name() string { return p.name }
func (p stubProvider) Call(ctx context.Context, origins, dests []Point) ([][]*int, error) {
	return p.rows, p.err
}

func intPtr(v int) *int { return &v }

func TestGetMatrixNxN_DiagonalIsZero(t *testing.T) {
	points := []Point{{Lat: -32.9, Lng: -68.8, Label: "a"}, {Lat: -32.91, Lng: -68.81, Label: "b"}}
	m := GetMatrixNxN(context.Background(), newMemCache(), nil, points, 25)
	if m[0][0] != 0 || m[1][1] != 0 {
		t.Errorf("diagonal = %v/%v, want 0/0", m[0][0], m[1][1])
	}
}

func TestGetMatrixNxN_UsesCacheBeforeProvider(t *testing.T) {
	points := []Point{{Lat: -32.9, Lng: -68.8, Label: "a"}, {Lat: -32.91, Lng: -68.81, Label: "b"}}
	cache := newMemCache()
	cache.pairs[key(points[0], points[1])] = 5.0
	cache.pairs[key(points[1], points[0])] = 5.0

	provider := stubProvider{name: "ors", err: errors.New("should not be called")}
	m := GetMatrixNxN(context.Background(), cache, provider, points, 25)
	if m[0][1] != 5.0 {
		t.Errorf("m[0][1] = %v, want 5.0 from cache", m[0][1])
	}
}

func TestGetMatrixNxN_FallsBackToHaversineOnProviderError(t *testing.T) {
	points := []Point{{Lat: -32.9, Lng: -68.8, Label: "a"}, {Lat: -32.91, Lng: -68.81, Label: "b"}}
	provider := stubProvider{name: "ors", err: errors.New("timeout")}
	m := GetMatrixNxN(context.Background(), newMemCache(), provider, points, 25)
	if m[0][1] <= 0 {
		t.Errorf("m[0][1] = %v, want a positive haversine fallback", m[0][1])
	}
}

func TestGetMatrixNxN_FillsFromProviderAndCaches(t *testing.T) {
	points := []Point{{Lat: -32.9, Lng: -68.8, Label: "a"}, {Lat: -32.91, Lng: -68.81, Label: "b"}}
	provider := stubProvider{name: "ors", rows: [][]*int{
		{intPtr(0), intPtr(600)},
		{intPtr(600), intPtr(0)},
	}}
	cache := newMemCache()
	m := GetMatrixNxN(context.Background(), cache, provider, points, 25)
	if m[0][1] != 10.0 {
		t.Errorf("m[0][1] = %v, want 10 minutes", m[0][1])
	}
	if cache.saved == 0 {
		t.Error("expected provider results to be cached")
	}
}

func TestGetMatrix1xN(t *testing.T) {
	origin := Point{Lat: -32.9, Lng: -68.8, Label: "depot"}
	dests := []Point{{Lat: -32.91, Lng: -68.81, Label: "a"}, {Lat: -32.92, Lng: -68.82, Label: "b"}}
	row := GetMatrix1xN(context.Background(), newMemCache(), nil, origin, dests, 25)
	if len(row) != 2 {
		t.Fatalf("len(row) = %v, want 2", len(row))
	}
	for _, v := range row {
		if v <= 0 {
			t.Errorf("expected positive haversine estimate, got %v", v)
		}
	}
}
