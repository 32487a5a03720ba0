// Package split partitions labelled data into train and test sets and
// rebalances the training set.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Indices holds row indices of a train/test partition.
type Indices struct {
	Train []int
	Test  []int
}

// Stratified returns a shuffled train/test partition of n = len(y) rows where
// each class keeps its share of the test set. The test set has
// ceil(testSize*n) rows, allocated to classes by largest remainder.
// The same seed always yields the same partition.
func Stratified(y []int, testSize float64, seed int64) (Indices, error) {
	n := len(y)
	if testSize <= 0 || testSize >= 1 {
		return Indices{}, fmt.Errorf("split: test size must be in (0, 1), got %v", testSize)
	}

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	if len(byClass) < 2 {
		return Indices{}, fmt.Errorf("split: need at least two classes, got %d", len(byClass))
	}
	classes := make([]int, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return Indices{}, fmt.Errorf("split: class %d has only %d sample(s)", c, len(idx))
		}
		classes = append(classes, c)
	}
	sort.Ints(classes)

	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest > n-len(classes) {
		return Indices{}, fmt.Errorf("split: test size %v leaves a class with no training rows", testSize)
	}
	alloc := allocate(classes, byClass, nTest, n)

	rng := rand.New(rand.NewSource(seed))
	var out Indices
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		out.Test = append(out.Test, idx[:alloc[c]]...)
		out.Train = append(out.Train, idx[alloc[c]:]...)
	}
	rng.Shuffle(len(out.Train), func(i, j int) { out.Train[i], out.Train[j] = out.Train[j], out.Train[i] })
	rng.Shuffle(len(out.Test), func(i, j int) { out.Test[i], out.Test[j] = out.Test[j], out.Test[i] })
	return out, nil
}

// allocate distributes nTest rows over classes proportionally to class size.
// Each class keeps at least one training row.
func allocate(classes []int, byClass map[int][]int, nTest, n int) map[int]int {
	type share struct {
		class int
		rem   float64
	}
	alloc := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	total := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(n)
		alloc[c] = int(math.Floor(exact))
		total += alloc[c]
		shares = append(shares, share{c, exact - math.Floor(exact)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].rem > shares[j].rem })
	for i := 0; total < nTest; i = (i + 1) % len(shares) {
		c := shares[i].class
		if alloc[c] < len(byClass[c])-1 {
			alloc[c]++
			total++
		}
	}
	return alloc
}

// Take gathers the rows of X and y at idx. Rows are shared, not copied.
func Take(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}
	return outX, outY
}

// ClassCounts returns the number of negative (0) and positive (non-zero) labels.
func ClassCounts(y []int) (neg, pos int) {
	for _, label := range y {
		if label == 0 {
			neg++
		} else {
			pos++
		}
	}
	return neg, pos
}

// ScalePosWeight is negatives / positives, with the denominator clamped to 1.
func ScalePosWeight(y []int) float64 {
	neg, pos := ClassCounts(y)
	if pos < 1 {
		pos = 1
	}
	return float64(neg) / float64(pos)
}
