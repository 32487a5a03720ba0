package split

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SMOTE oversamples the minority class of a training set until both classes
// have the same size. Each synthetic row is placed on the segment between a
// random minority row and one of its k nearest minority neighbours.
// The original rows come first in the result, followed by the synthetic ones.
// It must only be applied to training data.
func SMOTE(X [][]float64, y []int, k int, seed int64) ([][]float64, []int, error) {
	neg, pos := ClassCounts(y)
	if neg == pos {
		return X, y, nil
	}

	minorityLabel, deficit := 1, neg-pos
	if pos > neg {
		minorityLabel, deficit = 0, pos-neg
	}

	var minority [][]float64
	for i, label := range y {
		if (label != 0) == (minorityLabel != 0) {
			minority = append(minority, X[i])
		}
	}
	if len(minority) < 2 {
		return nil, nil, fmt.Errorf("smote: minority class has %d sample(s), need at least 2", len(minority))
	}
	if k > len(minority)-1 {
		k = len(minority) - 1
	}
	if k < 1 {
		return nil, nil, fmt.Errorf("smote: k must be positive, got %d", k)
	}

	neighbours := &neighbourCache{rows: minority, k: k, known: make(map[int][]int)}
	rng := rand.New(rand.NewSource(seed))

	outX := make([][]float64, len(X), len(X)+deficit)
	copy(outX, X)
	outY := make([]int, len(y), len(y)+deficit)
	copy(outY, y)

	for s := 0; s < deficit; s++ {
		i := rng.Intn(len(minority))
		nb := minority[neighbours.of(i)[rng.Intn(k)]]
		gap := rng.Float64()

		row := make([]float64, len(minority[i]))
		for f := range row {
			row[f] = minority[i][f] + gap*(nb[f]-minority[i][f])
		}
		outX = append(outX, row)
		outY = append(outY, minorityLabel)
	}
	return outX, outY, nil
}

// neighbourCache computes the k nearest neighbours of a row the first time
// the row is drawn.
type neighbourCache struct {
	rows  [][]float64
	k     int
	known map[int][]int
}

func (c *neighbourCache) of(i int) []int {
	if nb, ok := c.known[i]; ok {
		return nb
	}
	nb := kNearest(c.rows, i, c.k)
	c.known[i] = nb
	return nb
}

// kNearest returns the indices of the k rows closest to rows[i] by Euclidean
// distance, nearest first. Equal distances keep index order.
func kNearest(rows [][]float64, i, k int) []int {
	idx := make([]int, 0, k)
	dist := make([]float64, 0, k)
	for j := range rows {
		if j == i {
			continue
		}
		d := floats.Distance(rows[i], rows[j], 2)
		if len(idx) == k && !(d < dist[k-1]) {
			continue
		}
		pos := sort.Search(len(dist), func(p int) bool { return dist[p] > d })
		if pos >= k {
			continue
		}
		if len(idx) < k {
			idx = append(idx, 0)
			dist = append(dist, 0)
		}
		copy(idx[pos+1:], idx[pos:])
		copy(dist[pos+1:], dist[pos:])
		idx[pos] = j
		dist[pos] = d
	}
	return idx
}
