// Package matrix builds an NxN travel-time matrix (minutes) across a set of
// stops, backed by a DB cache of previously-computed pairs and an ordered
// fallback to a distance-matrix provider (OpenRouteService, Mapbox,
// Google), with a haversine estimate as the last resort.
package matrix

import (
	"context"

	"logistics/internal/geo"
	"logistics/pkg/logger"
)

// Point is one matrix node: a coordinate plus a human label for logging.
type Point struct {
	Lat   float64
	Lng   float64
	Label string
}

// Cache looks up and stores previously-computed pairwise durations. A miss
// is reported via the bool return, not an error.
type Cache interface {
	LookupPair(ctx context.Context, origin, dest Point) (durationMin float64, ok bool, err error)
	SavePair(ctx context.Context, origin, dest Point, durationSec int, provider string) error
}

// Provider computes a block of origins x destinations. Returned durations
// are in seconds; a nil entry means the provider couldn't resolve that pair.
type Provider interface {
	Name() string
	Call(ctx context.Context, origins, dests []Point) ([][]*int, error)
}

const missingDuration = 9e9

// GetMatrixNxN builds the full travel-time matrix in minutes, processing
// origins x destinations in blockSize x blockSize chunks to respect
// provider request-size limits. Pairs found in cache skip the provider
// call entirely; pairs left unresolved after a provider error fall back to
// a haversine estimate at the urban speed constant.
func GetMatrixNxN(ctx context.Context, cache Cache, provider Provider, points []Point, blockSize int) [][]float64 {
	n := len(points)
	result := make([][]float64, n)
	for i := range result {
		result[i] = make([]float64, n)
		for j := range result[i] {
			result[i][j] = missingDuration
		}
		result[i][i] = 0
	}
	if blockSize <= 0 {
		blockSize = 25
	}

	for i := 0; i < n; i += blockSize {
		originsIdx := indexRange(i, blockSize, n)
		for j := 0; j < n; j += blockSize {
			destsIdx := indexRange(j, blockSize, n)
			origins := sliceBy(points, originsIdx)
			dests := sliceBy(points, destsIdx)

			durations := lookupBlockCache(ctx, cache, origins, dests)
			fillBlockFromProvider(ctx, provider, origins, dests, cache, durations)

			for oi, gi := range originsIdx {
				for di, gj := range destsIdx {
					if durations[oi][di] != nil {
						result[gi][gj] = *durations[oi][di]
					} else {
						result[gi][gj] = geo.HaversineMinutes(points[gi].Lat, points[gi].Lng, points[gj].Lat, points[gj].Lng, geo.UrbanSpeedKmh)
					}
				}
			}
		}
	}

	return result
}

// GetMatrix1xN is a convenience wrapper for one origin against N
// destinations.
func GetMatrix1xN(ctx context.Context, cache Cache, provider Provider, origin Point, dests []Point, blockSize int) []float64 {
	all := append([]Point{origin}, dests...)
	full := GetMatrixNxN(ctx, cache, provider, all, blockSize)
	out := make([]float64, len(dests))
	for i := range dests {
		out[i] = full[0][i+1]
	}
	return out
}

func indexRange(start, size, n int) []int {
	end := start + size
	if end > n {
		end = n
	}
	idx := make([]int, 0, end-start)
	for k := start; k < end; k++ {
		idx = append(idx, k)
	}
	return idx
}

func sliceBy(points []Point, idx []int) []Point {
	out := make([]Point, len(idx))
	for i, k := range idx {
		out[i] = points[k]
	}
	return out
}

func lookupBlockCache(ctx context.Context, cache Cache, origins, dests []Point) [][]*float64 {
	durations := make([][]*float64, len(origins))
	for oi, o := range origins {
		durations[oi] = make([]*float64, len(dests))
		for di, d := range dests {
			if o.Lat == d.Lat && o.Lng == d.Lng {
				zero := 0.0
				durations[oi][di] = &zero
				continue
			}
			if min, ok, err := cache.LookupPair(ctx, o, d); err == nil && ok {
				v := min
				durations[oi][di] = &v
			}
		}
	}
	return durations
}

func fillBlockFromProvider(ctx context.Context, provider Provider, origins, dests []Point, cache Cache, durations [][]*float64) {
	if provider == nil {
		return
	}
	needsCall := false
	for oi := range origins {
		for di := range dests {
			if durations[oi][di] == nil {
				needsCall = true
				break
			}
		}
	}
	if !needsCall {
		return
	}

	apiResult, err := provider.Call(ctx, origins, dests)
	if err != nil {
		logger.Warn("distance matrix provider error", "provider", provider.Name(), "error", err)
		return
	}
	for oi, row := range apiResult {
		for di, durSec := range row {
			if durSec == nil {
				continue
			}
			min := float64(*durSec) / 60.0
			durations[oi][di] = &min
			if err := cache.SavePair(ctx, origins[oi], dests[di], *durSec, provider.Name()); err != nil {
				logger.Warn("distance matrix cache save failed", "error", err)
			}
		}
	}
}
