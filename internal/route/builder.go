package route

import (
	"logistics/internal/geo"
	"logistics/internal/window"
)

const jumpFilterMaxIterations = 10

// Optimize orders a set of active stops into a single delivery route.
// Stops are bucketed by urgency, priority, and AM/PM/unspecified window,
// each bucket is ordered by a polar sweep around the depot (the urgent
// bucket additionally gets a 2-opt pass once it has 4+ stops), the
// buckets are concatenated in a fixed priority order, and the combined
// order is passed through the jump filter to drop any single stop whose
// approach edge is disproportionately long.
//
// Bucket concatenation order: urgent, priority-AM, priority-NONE,
// normal-AM, normal-NONE, priority-PM, normal-PM. PM buckets go last
// because afternoon deliveries tolerate being reached later in the run.
func Optimize(points []Stop, matrix [][]float64, depot geo.Point, evitarSaltosMin float64) Optimized {
	var urgentes, priAM, priPM, priSin, normAM, normPM, normSin []int

	for i, p := range points {
		switch {
		case p.Urgente:
			urgentes = append(urgentes, i)
		case p.Prioridad:
			switch p.VentanaTipo {
			case window.TagAM:
				priAM = append(priAM, i)
			case window.TagPM:
				priPM = append(priPM, i)
			default:
				priSin = append(priSin, i)
			}
		default:
			switch p.VentanaTipo {
			case window.TagAM:
				normAM = append(normAM, i)
			case window.TagPM:
				normPM = append(normPM, i)
			default:
				normSin = append(normSin, i)
			}
		}
	}

	sortGroup := func(idxs []int) []int {
		if len(idxs) == 0 {
			return idxs
		}
		coords := make([]geo.Point, len(idxs))
		for j, gi := range idxs {
			coords[j] = geo.Point{Lat: points[gi].Lat, Lng: points[gi].Lng}
		}
		order := sweepOrder(depot, coords)
		out := make([]int, len(idxs))
		for j, o := range order {
			out[j] = idxs[o]
		}
		return out
	}

	urgentSorted := sortGroup(urgentes)
	if len(urgentSorted) >= 4 {
		sub := subMatrix(matrix, urgentSorted)
		local := make([]int, len(urgentSorted))
		for i := range local {
			local[i] = i
		}
		local = twoOpt(local, sub)
		reordered := make([]int, len(urgentSorted))
		for i, lo := range local {
			reordered[i] = urgentSorted[lo]
		}
		urgentSorted = reordered
	}

	priAMSorted := sortGroup(priAM)
	priSinSorted := sortGroup(priSin)
	normAMSorted := sortGroup(normAM)
	normSinSorted := sortGroup(normSin)
	priPMSorted := sortGroup(priPM)
	normPMSorted := sortGroup(normPM)

	finalOrder := make([]int, 0, len(points))
	finalOrder = append(finalOrder, urgentSorted...)
	finalOrder = append(finalOrder, priAMSorted...)
	finalOrder = append(finalOrder, priSinSorted...)
	finalOrder = append(finalOrder, normAMSorted...)
	finalOrder = append(finalOrder, normSinSorted...)
	finalOrder = append(finalOrder, priPMSorted...)
	finalOrder = append(finalOrder, normPMSorted...)

	filteredOrder, excludedIdx, reasons := fixpointFilterJumps(points, finalOrder, matrix, evitarSaltosMin, jumpFilterMaxIterations)

	orderedStopIdx := make([]int, len(filteredOrder))
	for i, gi := range filteredOrder {
		orderedStopIdx[i] = points[gi].Idx
	}

	return Optimized{
		OrderedIdx:       orderedStopIdx,
		ExcludedIdx:      excludedIdx,
		ExclusionReasons: reasons,
	}
}
