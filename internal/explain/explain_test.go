package explain

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/HeartRisk/internal/boost"
	"github.com/FlavioCFOliveira/HeartRisk/internal/scaler"
)

func stumpModel() *boost.Model {
	return &boost.Model{
		NumFeatures: 2,
		Trees: []boost.Tree{{Nodes: []boost.Node{
			{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, Cover: 4},
			{Feature: -1, Value: -1, Cover: 1},
			{Feature: -1, Value: 1, Cover: 3},
		}}},
	}
}

func TestTreeSHAPStump(t *testing.T) {
	s := NewTreeSHAP(stumpModel())
	assert.InDelta(t, 0.5, s.ExpectedValue(), 1e-12)

	phi := s.Values([]float64{0.2, 7})
	assert.InDelta(t, -1.5, phi[0], 1e-12)
	assert.Equal(t, 0.0, phi[1])

	phi = s.Values([]float64{0.9, 7})
	assert.InDelta(t, 0.5, phi[0], 1e-12)
}

func randomData(n, nf int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		X[i] = make([]float64, nf)
		for f := range X[i] {
			X[i][f] = rng.Float64()
		}
		if X[i][0]+0.5*X[i][1]*X[i][2] > 0.7 {
			y[i] = 1
		}
	}
	return X, y
}

func trainSmall(t *testing.T, X [][]float64, y []int, rounds, depth int) *boost.Model {
	t.Helper()
	p := boost.DefaultParams()
	p.NEstimators = rounds
	p.MaxDepth = depth
	p.LearningRate = 0.3
	p.MinChildWeight = 1
	m, err := boost.Train(context.Background(), X, y, p)
	require.NoError(t, err)
	return m
}

func TestTreeSHAPAdditivity(t *testing.T) {
	X, y := randomData(200, 3, 1)
	m := trainSmall(t, X, y, 20, 5)
	s := NewTreeSHAP(m)

	for _, x := range X[:25] {
		phi := s.Values(x)
		sum := s.ExpectedValue()
		for _, v := range phi {
			sum += v
		}
		assert.InDelta(t, m.Margin(x), sum, 1e-9)
	}
}

// condExpectation follows x on features in set and averages by cover elsewhere.
func condExpectation(tree *boost.Tree, x []float64, set map[int]bool, i int) float64 {
	n := tree.Nodes[i]
	if n.IsLeaf() {
		return n.Value
	}
	if set[n.Feature] {
		if x[n.Feature] < n.Threshold {
			return condExpectation(tree, x, set, n.Left)
		}
		return condExpectation(tree, x, set, n.Right)
	}
	l, r := tree.Nodes[n.Left], tree.Nodes[n.Right]
	return (l.Cover*condExpectation(tree, x, set, n.Left) + r.Cover*condExpectation(tree, x, set, n.Right)) / n.Cover
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// bruteShapley enumerates every coalition of features.
func bruteShapley(m *boost.Model, x []float64) []float64 {
	nf := m.NumFeatures
	phi := make([]float64, nf)
	value := func(mask int) float64 {
		set := map[int]bool{}
		for f := 0; f < nf; f++ {
			if mask&(1<<f) != 0 {
				set[f] = true
			}
		}
		var v float64
		for i := range m.Trees {
			v += condExpectation(&m.Trees[i], x, set, 0)
		}
		return v
	}
	for f := 0; f < nf; f++ {
		for mask := 0; mask < 1<<nf; mask++ {
			if mask&(1<<f) != 0 {
				continue
			}
			size := 0
			for g := 0; g < nf; g++ {
				if mask&(1<<g) != 0 {
					size++
				}
			}
			w := factorial(size) * factorial(nf-size-1) / factorial(nf)
			phi[f] += w * (value(mask|1<<f) - value(mask))
		}
	}
	return phi
}

func TestTreeSHAPMatchesBruteForce(t *testing.T) {
	X, y := randomData(150, 3, 2)
	// deep trees revisit features along a path
	m := trainSmall(t, X, y, 5, 6)
	s := NewTreeSHAP(m)

	for _, x := range X[:10] {
		got := s.Values(x)
		want := bruteShapley(m, x)
		for f := range want {
			assert.InDelta(t, want[f], got[f], 1e-9, "feature %d", f)
		}
	}
}

func TestLocalPicksDrivingFeature(t *testing.T) {
	X, _ := randomData(400, 3, 3)
	names := []string{"alpha", "beta", "gamma"}
	l, err := NewLocal(X, names, 2000, 8, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, l.NumFeatures())

	predict := func(x []float64) float64 {
		if x[0] > 0.5 {
			return 0.9
		}
		return 0.1
	}
	exp, err := l.Explain(context.Background(), []float64{0.95, 0.5, 0.5}, predict)
	require.NoError(t, err)

	require.Len(t, exp.Weights, 3)
	assert.Equal(t, 0, exp.Weights[0].Feature)
	assert.Greater(t, exp.Weights[0].Weight, 0.1)
	assert.True(t, strings.HasPrefix(exp.Weights[0].Label, "alpha > "), exp.Weights[0].Label)
	for i := 1; i < len(exp.Weights); i++ {
		assert.GreaterOrEqual(t, math.Abs(exp.Weights[i-1].Weight), math.Abs(exp.Weights[i].Weight))
	}
}

func TestLocalDeterministic(t *testing.T) {
	X, _ := randomData(100, 4, 4)
	l, err := NewLocal(X, []string{"a", "b", "c", "d"}, 300, 2, 7)
	require.NoError(t, err)
	predict := func(x []float64) float64 { return x[1] }

	first, err := l.Explain(context.Background(), X[0], predict)
	require.NoError(t, err)
	second, err := l.Explain(context.Background(), X[0], predict)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first.Weights, 2)
}

func TestLocalErrors(t *testing.T) {
	_, err := NewLocal(nil, nil, 100, 8, 1)
	assert.Error(t, err)
	_, err = NewLocal([][]float64{{1, 2}}, []string{"a"}, 100, 8, 1)
	assert.Error(t, err)
	_, err = NewLocal([][]float64{{1, 2}}, []string{"a", "b"}, 1, 8, 1)
	assert.Error(t, err)

	l, err := NewLocal([][]float64{{1, 2}, {3, 4}}, []string{"a", "b"}, 50, 8, 1)
	require.NoError(t, err)
	_, err = l.Explain(context.Background(), []float64{1}, func([]float64) float64 { return 0 })
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Explain(ctx, []float64{1, 2}, func([]float64) float64 { return 0 })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuartileLabels(t *testing.T) {
	q := fitBins([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	require.Len(t, q.cuts, 3)
	assert.Equal(t, 0, q.bin(q.cuts[0]))
	assert.Equal(t, 3, q.bin(100))
	assert.Equal(t, "x <= "+format2(q.cuts[0]), q.label("x", 0))
	assert.Equal(t, format2(q.cuts[0])+" < x <= "+format2(q.cuts[1]), q.label("x", 1))
	assert.Equal(t, "x > "+format2(q.cuts[2]), q.label("x", 3))

	constant := fitBins([]float64{2, 2, 2, 2})
	assert.Len(t, constant.cuts, 1)
	assert.Equal(t, 2.0, constant.undiscretize(0, rand.New(rand.NewSource(1))))
}

func format2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func newExplainer(t *testing.T, nf int) (*Explainer, *boost.Model, [][]float64) {
	t.Helper()
	raw, y := randomData(200, nf, 5)
	sc := scaler.New()
	require.NoError(t, sc.Fit(raw))
	X, err := sc.TransformAll(raw)
	require.NoError(t, err)

	m := trainSmall(t, X, y, 15, 4)
	names := make([]string, nf)
	for i := range names {
		names[i] = string(rune('a' + i))
	}
	e, err := New(m, sc, X, names, Options{NumSamples: 500, Seed: 42})
	require.NoError(t, err)
	return e, m, raw
}

func TestExplainInstance(t *testing.T) {
	e, m, raw := newExplainer(t, 12)
	assert.Equal(t, 8, e.LocalFeatures())

	exp, err := e.ExplainInstance(context.Background(), raw[0])
	require.NoError(t, err)

	x, _ := e.scaler.Transform(raw[0])
	assert.InDelta(t, m.PredictProba(x)*100, exp.Probability, 1e-9)
	assert.True(t, exp.Probability >= 0 && exp.Probability <= 100)
	assert.Len(t, exp.SHAP, 12)
	assert.Len(t, exp.Local.Weights, 8)
	assert.True(t, bytes.HasPrefix(exp.GlobalPNG, []byte("\x89PNG")))
	assert.True(t, bytes.HasPrefix(exp.LocalPNG, []byte("\x89PNG")))

	sum := exp.ExpectedValue
	for _, v := range exp.SHAP {
		sum += v
	}
	assert.InDelta(t, m.Margin(x), sum, 1e-9)
}

func TestExplainInstanceFewFeatures(t *testing.T) {
	e, _, raw := newExplainer(t, 3)
	assert.Equal(t, 3, e.LocalFeatures())
	exp, err := e.ExplainInstance(context.Background(), raw[1])
	require.NoError(t, err)
	assert.Len(t, exp.Local.Weights, 3)
}

func TestExplainInstanceConcurrent(t *testing.T) {
	e, _, raw := newExplainer(t, 3)
	want, err := e.ExplainInstance(context.Background(), raw[2])
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Explanation, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.ExplainInstance(context.Background(), raw[2])
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, want.Local, got.Local)
		assert.Equal(t, want.SHAP, got.SHAP)
	}
}

func TestExplainInstanceErrors(t *testing.T) {
	e, _, _ := newExplainer(t, 3)
	_, err := e.ExplainInstance(context.Background(), []float64{1})
	assert.Error(t, err)

	_, err = New(stumpModel(), scaler.New(), [][]float64{{0, 0}}, []string{"a", "b"}, Options{NumSamples: 10})
	var orderErr *scaler.FitOrderError
	assert.ErrorAs(t, err, &orderErr)
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, 0.0, clampPercent(-3))
	assert.Equal(t, 100.0, clampPercent(100.0000001))
	assert.Equal(t, 42.5, clampPercent(42.5))
}
