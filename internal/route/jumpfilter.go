package route

import "fmt"

// fixpointFilterJumps repeatedly finds the single worst edge exceeding
// thresholdMin whose destination point is neither urgent nor priority,
// drops that destination from the order, and repeats — up to
// maxIterations rounds — until no such edge remains. This turns one
// badly-placed stop into an exclusion rather than letting it drag the
// whole route's duration estimate.
func fixpointFilterJumps(points []Stop, order []int, matrix [][]float64, thresholdMin float64, maxIterations int) (filtered []int, excludedIdx []int, reasons map[int]string) {
	cur := append([]int{}, order...)
	reasons = make(map[int]string)

	for iter := 0; iter < maxIterations; iter++ {
		worstPos := -1
		worstJump := 0.0
		found := false

		for pos := 0; pos < len(cur)-1; pos++ {
			a, b := cur[pos], cur[pos+1]
			d := matrix[a][b]
			if d <= thresholdMin {
				continue
			}
			dest := points[b]
			if dest.Urgente || dest.Prioridad {
				continue
			}
			if !found || d > worstJump {
				found = true
				worstJump = d
				worstPos = pos + 1
			}
		}

		if !found {
			break
		}

		droppedGlobal := cur[worstPos]
		excludedIdx = append(excludedIdx, points[droppedGlobal].Idx)
		reasons[points[droppedGlobal].Idx] = fmt.Sprintf("salto_excesivo (%.1f min > %.1f min)", worstJump, thresholdMin)
		cur = append(cur[:worstPos], cur[worstPos+1:]...)
	}

	return cur, excludedIdx, reasons
}
