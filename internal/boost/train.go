package boost

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// minSplitGain is the smallest loss reduction accepted for a split.
const minSplitGain = 1e-6

// Params are the booster hyperparameters.
type Params struct {
	NEstimators     int
	MaxDepth        int
	LearningRate    float64
	MinChildWeight  float64
	Subsample       float64
	ColsampleByTree float64
	// ScalePosWeight multiplies the gradient and hessian of positive rows.
	ScalePosWeight float64
	Lambda         float64
	Gamma          float64
	EvalMetric     string
	Seed           int64
}

// DefaultParams returns the production hyperparameters.
func DefaultParams() Params {
	return Params{
		NEstimators:     600,
		MaxDepth:        7,
		LearningRate:    0.025,
		MinChildWeight:  4,
		Subsample:       0.85,
		ColsampleByTree: 0.85,
		ScalePosWeight:  1,
		Lambda:          1,
		Gamma:           0,
		EvalMetric:      "logloss",
		Seed:            42,
	}
}

// Validate checks that p describes a trainable booster.
func (p Params) Validate() error {
	if p.NEstimators < 1 {
		return fmt.Errorf("boost: n_estimators must be positive, got %d", p.NEstimators)
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("boost: max_depth must be positive, got %d", p.MaxDepth)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("boost: learning_rate must be positive, got %v", p.LearningRate)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("boost: subsample must be in (0, 1], got %v", p.Subsample)
	}
	if p.ColsampleByTree <= 0 || p.ColsampleByTree > 1 {
		return fmt.Errorf("boost: colsample_bytree must be in (0, 1], got %v", p.ColsampleByTree)
	}
	if p.ScalePosWeight <= 0 {
		return fmt.Errorf("boost: scale_pos_weight must be positive, got %v", p.ScalePosWeight)
	}
	if p.Lambda < 0 || p.Gamma < 0 || p.MinChildWeight < 0 {
		return fmt.Errorf("boost: lambda, gamma and min_child_weight must not be negative")
	}
	return nil
}

// Train fits an ensemble to X and binary labels y.
// Callbacks observe every boosting round; training stops early only when ctx is done.
func Train(ctx context.Context, X [][]float64, y []int, p Params, callbacks ...Callback) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("boost: need matching non-empty X and y, got %d rows and %d labels", len(X), len(y))
	}
	numFeatures := len(X[0])
	for i, row := range X {
		if len(row) != numFeatures {
			return nil, fmt.Errorf("boost: row %d has %d features, want %d", i, len(row), numFeatures)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("boost: label at row %d must be 0 or 1, got %d", i, y[i])
		}
	}

	m := &Model{
		// base_score 0.5 is a zero margin
		BaseMargin:  0,
		NumFeatures: numFeatures,
		Params:      p,
		Trees:       make([]Tree, 0, p.NEstimators),
	}

	n := len(X)
	margins := make([]float64, n)
	for i := range margins {
		margins[i] = m.BaseMargin
	}
	g := make([]float64, n)
	h := make([]float64, n)
	weight := func(label int) float64 {
		if label == 1 {
			return p.ScalePosWeight
		}
		return 1
	}
	rng := rand.New(rand.NewSource(p.Seed))
	sorted := presort(X)

	for _, cb := range callbacks {
		cb.OnTrainBegin(m)
	}

	for round := 1; round <= p.NEstimators; round++ {
		if err := ctx.Err(); err != nil {
			for _, cb := range callbacks {
				cb.OnTrainEnd(m)
			}
			return nil, fmt.Errorf("boost: training cancelled at round %d: %w", round, err)
		}

		logisticGradients(margins, y, weight, g, h)

		cols := sampleColumns(rng, numFeatures, p.ColsampleByTree)
		rows := sampleRows(rng, n, p.Subsample)
		b := newBuilder(X, sorted, g, h, p, cols, rows)
		b.grow(0, len(rows), 0)
		tree := Tree{Nodes: b.nodes}
		m.Trees = append(m.Trees, tree)

		for i, row := range X {
			margins[i] += tree.Predict(row)
		}

		metric := Eval(p.EvalMetric, y, margins)
		for _, cb := range callbacks {
			cb.OnRoundEnd(round, metric, m)
		}
	}

	for _, cb := range callbacks {
		cb.OnTrainEnd(m)
	}
	return m, nil
}

// sampleRows draws each row with probability rate. It never returns an empty set.
func sampleRows(rng *rand.Rand, n int, rate float64) []int {
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if rate >= 1 || rng.Float64() < rate {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.Intn(n))
	}
	return rows
}

// sampleColumns picks max(1, int(rate*n)) distinct features in ascending order.
func sampleColumns(rng *rand.Rand, n int, rate float64) []int {
	k := int(rate * float64(n))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)
	cols := append([]int(nil), perm[:k]...)
	sort.Ints(cols)
	return cols
}

// presort orders every row index by each feature value, NaN last.
// Equal values keep their row order.
func presort(X [][]float64) [][]int {
	out := make([][]int, len(X[0]))
	for f := range out {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			return nanLastLess(X[idx[i]][f], X[idx[j]][f])
		})
		out[f] = idx
	}
	return out
}

func nanLastLess(a, c float64) bool {
	if math.IsNaN(a) {
		return false
	}
	return math.IsNaN(c) || a < c
}

// builder grows one tree with exact greedy split search.
//
// order[k] lists the sampled rows sorted by feature cols[k]. Every node owns
// the same [lo, hi) segment in each list; a split partitions the segments in
// place, keeping them sorted.
type builder struct {
	X      [][]float64
	g, h   []float64
	params Params
	cols   []int
	order  [][]int
	goLeft []bool
	spare  []int
	nodes  []Node
}

func newBuilder(X [][]float64, sorted [][]int, g, h []float64, p Params, cols, rows []int) *builder {
	inSample := make([]bool, len(X))
	for _, r := range rows {
		inSample[r] = true
	}
	order := make([][]int, len(cols))
	for k, f := range cols {
		o := make([]int, 0, len(rows))
		for _, r := range sorted[f] {
			if inSample[r] {
				o = append(o, r)
			}
		}
		order[k] = o
	}
	return &builder{
		X:      X,
		g:      g,
		h:      h,
		params: p,
		cols:   cols,
		order:  order,
		goLeft: inSample,
		spare:  make([]int, 0, len(rows)),
	}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// grow appends the subtree for the rows in [lo, hi) and returns its root index.
func (b *builder) grow(lo, hi, depth int) int {
	var G, H float64
	for _, r := range b.order[0][lo:hi] {
		G += b.g[r]
		H += b.h[r]
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Cover: H})

	if depth >= b.params.MaxDepth || hi-lo < 2 {
		b.nodes[idx].Value = b.leafValue(G, H)
		return idx
	}

	best, ok := b.bestSplit(lo, hi, G, H)
	if !ok {
		b.nodes[idx].Value = b.leafValue(G, H)
		return idx
	}

	mid := b.partition(lo, hi, best)
	left := b.grow(lo, mid, depth+1)
	right := b.grow(mid, hi, depth+1)
	b.nodes[idx] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      left,
		Right:     right,
		Cover:     H,
	}
	return idx
}

func (b *builder) leafValue(G, H float64) float64 {
	return -G / (H + b.params.Lambda) * b.params.LearningRate
}

func (b *builder) score(G, H float64) float64 {
	return G * G / (H + b.params.Lambda)
}

// bestSplit scans every sampled feature for the split with the largest gain.
func (b *builder) bestSplit(lo, hi int, G, H float64) (split, bool) {
	best := split{gain: minSplitGain}
	found := false
	parent := b.score(G, H)

	for k, f := range b.cols {
		sorted := b.order[k][lo:hi]

		var GL, HL float64
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			GL += b.g[r]
			HL += b.h[r]

			cur, next := b.X[r][f], b.X[sorted[i+1]][f]
			if math.IsNaN(cur) || math.IsNaN(next) || cur == next {
				continue
			}
			GR, HR := G-GL, H-HL
			if HL < b.params.MinChildWeight || HR < b.params.MinChildWeight {
				continue
			}
			gain := 0.5*(b.score(GL, HL)+b.score(GR, HR)-parent) - b.params.Gamma
			if gain > best.gain {
				thr := (cur + next) / 2
				if thr <= cur {
					thr = next
				}
				best = split{feature: f, threshold: thr, gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// partition moves the rows of [lo, hi) that go left to the front of every
// sorted list and returns the first right-hand position. NaN goes right.
func (b *builder) partition(lo, hi int, s split) int {
	mid := lo
	for _, r := range b.order[0][lo:hi] {
		left := b.X[r][s.feature] < s.threshold
		b.goLeft[r] = left
		if left {
			mid++
		}
	}
	for k := range b.order {
		seg := b.order[k][lo:hi]
		right := b.spare[:0]
		w := 0
		for _, r := range seg {
			if b.goLeft[r] {
				seg[w] = r
				w++
			} else {
				right = append(right, r)
			}
		}
		copy(seg[w:], right)
	}
	return mid
}
