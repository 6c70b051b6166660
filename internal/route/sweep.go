package route

import (
	"math"
	"sort"

	"logistics/internal/geo"
)

// sweepOrder returns a permutation of 0..len(points)-1 sorted by the polar
// angle of each point around the depot, ascending. This gives a cheap,
// non-crossing initial tour for a bucket of same-priority stops.
func sweepOrder(depot geo.Point, points []geo.Point) []int {
	type angled struct {
		idx   int
		angle float64
	}
	entries := make([]angled, len(points))
	for i, p := range points {
		entries[i] = angled{idx: i, angle: math.Atan2(p.Lat-depot.Lat, p.Lng-depot.Lng)}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].angle < entries[j].angle })

	order := make([]int, len(entries))
	for i, e := range entries {
		order[i] = e.idx
	}
	return order
}
