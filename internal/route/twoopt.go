package route

// twoOpt improves order (a permutation of matrix indices) in place by
// applying the first segment reversal found that shortens total travel
// time, rescanning until no improving reversal remains. It never touches the first and last
// edge together, which would just reverse the whole bucket. Buckets
// smaller than 4 stops are returned untouched — there's no edge pair left
// to usefully swap.
func twoOpt(order []int, matrix [][]float64) []int {
	n := len(order)
	if n < 4 {
		return order
	}

	improved := true
	for improved {
		improved = false
		for i := 0; i < n-1; i++ {
			for k := i + 2; k < n; k++ {
				if i == 0 && k == n-1 {
					continue
				}
				a, b, c, d := order[i], order[i+1], order[k-1], order[k]
				delta := (matrix[a][c] + matrix[b][d]) - (matrix[a][b] + matrix[c][d])
				if delta < -1e-6 {
					reverseSegment(order, i+1, k-1)
					improved = true
				}
			}
		}
	}
	return order
}

func reverseSegment(order []int, lo, hi int) {
	for lo < hi {
		order[lo], order[hi] = order[hi], order[lo]
		lo++
		hi--
	}
}

// subMatrix extracts the submatrix of full for the given global indices,
// in the order given, for 2-opting a single bucket in isolation.
func subMatrix(full [][]float64, globalIdxs []int) [][]float64 {
	n := len(globalIdxs)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = full[globalIdxs[i]][globalIdxs[j]]
		}
	}
	return out
}
