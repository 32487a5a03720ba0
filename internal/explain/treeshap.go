package explain

import "github.com/FlavioCFOliveira/HeartRisk/internal/boost"

// TreeSHAP computes exact path-dependent Shapley values for a boosted
// ensemble, weighting unseen branches by their training cover.
// Values are in margin (log-odds) space and satisfy
// ExpectedValue() + sum(Values(x)) == Margin(x).
type TreeSHAP struct {
	model    *boost.Model
	expected float64
}

// NewTreeSHAP binds the attribution to m.
func NewTreeSHAP(m *boost.Model) *TreeSHAP {
	expected := m.BaseMargin
	for i := range m.Trees {
		expected += treeExpectation(&m.Trees[i], 0)
	}
	return &TreeSHAP{model: m, expected: expected}
}

// ExpectedValue is the cover-weighted mean margin of the ensemble.
func (t *TreeSHAP) ExpectedValue() float64 {
	return t.expected
}

// Values returns one signed contribution per feature of x.
func (t *TreeSHAP) Values(x []float64) []float64 {
	phi := make([]float64, t.model.NumFeatures)
	for i := range t.model.Trees {
		tree := &t.model.Trees[i]
		recurse(tree, x, phi, 0, nil, 1, 1, -1)
	}
	return phi
}

func treeExpectation(t *boost.Tree, i int) float64 {
	n := t.Nodes[i]
	if n.IsLeaf() {
		return n.Value
	}
	if n.Cover == 0 {
		return 0
	}
	l, r := t.Nodes[n.Left], t.Nodes[n.Right]
	return (l.Cover*treeExpectation(t, n.Left) + r.Cover*treeExpectation(t, n.Right)) / n.Cover
}

// pathElem is one feature on the current root-to-node path.
type pathElem struct {
	feature      int
	zeroFraction float64
	oneFraction  float64
	weight       float64
}

// recurse walks the tree from node, extending a copy of the parent path.
func recurse(t *boost.Tree, x, phi []float64, node int, parent []pathElem, zero, one float64, feature int) {
	depth := len(parent)
	path := make([]pathElem, depth+1)
	copy(path, parent)
	extendPath(path, depth, zero, one, feature)

	n := t.Nodes[node]
	if n.IsLeaf() {
		for i := 1; i <= depth; i++ {
			w := unwoundPathSum(path, depth, i)
			el := path[i]
			phi[el.feature] += w * (el.oneFraction - el.zeroFraction) * n.Value
		}
		return
	}

	hot, cold := n.Right, n.Left
	if x[n.Feature] < n.Threshold {
		hot, cold = n.Left, n.Right
	}
	hotZero, coldZero := 0.0, 0.0
	if n.Cover > 0 {
		hotZero = t.Nodes[hot].Cover / n.Cover
		coldZero = t.Nodes[cold].Cover / n.Cover
	}

	incomingZero, incomingOne := 1.0, 1.0
	// undo an earlier split on the same feature
	for k := 1; k <= depth; k++ {
		if path[k].feature == n.Feature {
			incomingZero = path[k].zeroFraction
			incomingOne = path[k].oneFraction
			unwindPath(path, depth, k)
			path = path[:depth]
			break
		}
	}

	recurse(t, x, phi, hot, path, hotZero*incomingZero, incomingOne, n.Feature)
	recurse(t, x, phi, cold, path, coldZero*incomingZero, 0, n.Feature)
}

// extendPath appends a feature to the path at index depth and updates the
// permutation weights of every element.
func extendPath(path []pathElem, depth int, zero, one float64, feature int) {
	path[depth] = pathElem{feature: feature, zeroFraction: zero, oneFraction: one}
	if depth == 0 {
		path[depth].weight = 1
	}
	d := float64(depth)
	for i := depth - 1; i >= 0; i-- {
		path[i+1].weight += one * path[i].weight * float64(i+1) / (d + 1)
		path[i].weight = zero * path[i].weight * (d - float64(i)) / (d + 1)
	}
}

// unwindPath removes element k from a path of length depth+1.
func unwindPath(path []pathElem, depth, k int) {
	one := path[k].oneFraction
	zero := path[k].zeroFraction
	next := path[depth].weight
	d := float64(depth)

	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].weight
			path[i].weight = next * (d + 1) / (float64(i+1) * one)
			next = tmp - path[i].weight*zero*(d-float64(i))/(d+1)
		} else {
			path[i].weight = path[i].weight * (d + 1) / (zero * (d - float64(i)))
		}
	}
	for i := k; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zeroFraction = path[i+1].zeroFraction
		path[i].oneFraction = path[i+1].oneFraction
	}
}

// unwoundPathSum is the total permutation weight of the path with element k removed.
func unwoundPathSum(path []pathElem, depth, k int) float64 {
	one := path[k].oneFraction
	zero := path[k].zeroFraction
	next := path[depth].weight
	d := float64(depth)

	var total float64
	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := next * (d + 1) / (float64(i+1) * one)
			total += tmp
			next = path[i].weight - tmp*zero*(d-float64(i))/(d+1)
		} else if zero != 0 {
			total += path[i].weight / zero / ((d - float64(i)) / (d + 1))
		}
	}
	return total
}
