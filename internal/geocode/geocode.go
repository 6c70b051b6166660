// Package geocode resolves a free-text address to coordinates via a
// cache-then-provider cascade: a DB-backed cache keyed on the normalized
// address, falling through an ordered list of geocoding providers
// (OpenRouteService, Mapbox, Google) until one returns a result that
// passes validation.
package geocode

import (
	"context"

	"logistics/internal/address"
	"logistics/internal/geo"
	"logistics/pkg/logger"
)

// Result is a resolved coordinate plus provenance.
type Result struct {
	Lat               float64
	Lng               float64
	FormattedAddress  string
	HasStreetNumber   bool
	Source            string // "cache", or a provider name
	Confidence        float64
	Provider          string
}

// Provider geocodes a single normalized address string.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Cache is the write-through store backing the gateway. A miss is not an
// error: it is reported via the bool return.
type Cache interface {
	Lookup(ctx context.Context, cacheKey string) (*Result, bool, error)
	Save(ctx context.Context, cacheKey, original string, result *Result) error
}

// Gateway resolves addresses through the cache-then-provider cascade.
type Gateway struct {
	cache     Cache
	providers map[string]Provider
	order     []string
}

// NewGateway builds a Gateway. order lists provider names to try, in
// priority order; providers not present in the map (e.g. missing API key)
// are silently skipped.
func NewGateway(cache Cache, providers []Provider, order []string) *Gateway {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Gateway{cache: cache, providers: m, order: order}
}

// Geocode resolves addr to coordinates. A nil, nil result means every
// cache and provider lookup came up empty or invalid — not a hard error.
func (g *Gateway) Geocode(ctx context.Context, addr string, providerOverride string) (*Result, error) {
	if addr == "" {
		return nil, nil
	}

	normalized := address.Normalize(addr)
	cacheKey := address.NormalizeKey(addr)

	if cached, ok, err := g.cache.Lookup(ctx, cacheKey); err == nil && ok {
		return cached, nil
	}

	order := g.order
	if providerOverride != "" {
		order = []string{providerOverride}
	}

	for _, name := range order {
		provider, ok := g.providers[name]
		if !ok {
			continue
		}
		result, err := provider.Geocode(ctx, normalized)
		if err != nil {
			logger.Warn("geocode provider error", "provider", name, "address", addr, "error", err)
			continue
		}
		if result == nil || !validate(result) {
			continue
		}
		result.Source = name
		if err := g.cache.Save(ctx, cacheKey, addr, result); err != nil {
			logger.Warn("geocode cache save failed", "error", err)
		}
		return result, nil
	}

	logger.Warn("geocoding exhausted with no result", "address", addr)
	return nil, nil
}

// validate rejects null-island results, results outside the province, and
// results that collapsed onto a known locality centroid instead of a real
// street address.
func validate(r *Result) bool {
	if r == nil {
		return false
	}
	if r.Lat == 0 && r.Lng == 0 {
		return false
	}
	if !geo.IsInMendoza(r.Lat, r.Lng) {
		return false
	}
	if geo.IsKnownCityCenter(r.Lat, r.Lng) {
		return false
	}
	return true
}
