// Package route builds the daily delivery route: it buckets candidate
// stops by urgency/priority/time-window, orders each bucket by a polar
// sweep around the depot, 2-opts the urgent bucket, concatenates the
// buckets in a fixed priority order, then repeatedly drops the single
// worst "jump" edge whose destination isn't urgent or priority until no
// edge exceeds the configured threshold.
package route

import "logistics/internal/window"

// Stop is one candidate delivery point going into route optimization.
type Stop struct {
	Idx           int // stable identity for reporting exclusions back to the caller
	Lat           float64
	Lng           float64
	RemitoID      int64
	Numero        string
	Urgente       bool
	Prioridad     bool
	VentanaTipo   window.Tag
	VentanaDesde  int
	VentanaHasta  int
	LlamarAntes   bool
}

// Optimized is the result of building a route over a set of active stops.
type Optimized struct {
	OrderedIdx       []int          // Stop.Idx values, in delivery order
	ExcludedIdx      []int          // Stop.Idx values dropped by the jump filter
	ExclusionReasons map[int]string // Stop.Idx -> human-readable reason
}
