// Package boost implements a gradient-boosted tree ensemble for binary
// classification on the logistic loss.
package boost

// Node is one node of a regression tree. Leaves have Feature == -1.
// A row goes left when x[Feature] < Threshold; NaN always goes right.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	// Value is the leaf output in margin space, already scaled by the learning rate.
	Value float64
	// Cover is the hessian sum of the training rows that reached the node.
	Cover float64
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a regression tree stored as a flat node slice; Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Leaf returns the index of the leaf x falls into.
func (t *Tree) Leaf(x []float64) int {
	i := 0
	for !t.Nodes[i].IsLeaf() {
		n := t.Nodes[i]
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return i
}

// Predict returns the tree's margin contribution for x.
func (t *Tree) Predict(x []float64) float64 {
	return t.Nodes[t.Leaf(x)].Value
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// Model is a trained ensemble. It is immutable after Train returns and
// safe for concurrent use.
type Model struct {
	Trees       []Tree
	BaseMargin  float64
	NumFeatures int
	Params      Params
}

// Margin returns the raw log-odds score for x.
func (m *Model) Margin(x []float64) float64 {
	sum := m.BaseMargin
	for i := range m.Trees {
		sum += m.Trees[i].Predict(x)
	}
	return sum
}

// PredictProba returns the positive-class probability for x.
func (m *Model) PredictProba(x []float64) float64 {
	return sigmoid(m.Margin(x))
}

// Predict returns 1 when the positive-class probability is above 0.5.
func (m *Model) Predict(x []float64) int {
	if m.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}
