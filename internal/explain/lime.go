package explain

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	selectionAlpha = 0.01
	surrogateAlpha = 1.0
	stdEpsilon     = 1e-11
	maxRejections  = 100
)

// quartileBins describes the quartile discretisation of one feature.
type quartileBins struct {
	// cuts are the distinct 25th, 50th and 75th percentiles, ascending.
	cuts []float64
	// mean, std, lo and hi are indexed by bin.
	mean, std, lo, hi []float64
	// present lists the bins seen in training with their frequencies.
	present []int
	freq    []float64
}

// bin returns the number of cuts strictly below v.
func (q *quartileBins) bin(v float64) int {
	return sort.SearchFloat64s(q.cuts, v)
}

func (q *quartileBins) label(name string, b int) string {
	switch {
	case b == 0:
		return fmt.Sprintf("%s <= %.2f", name, q.cuts[0])
	case b == len(q.cuts):
		return fmt.Sprintf("%s > %.2f", name, q.cuts[b-1])
	default:
		return fmt.Sprintf("%.2f < %s <= %.2f", q.cuts[b-1], name, q.cuts[b])
	}
}

// sample draws a bin according to the training frequencies.
func (q *quartileBins) sample(rng *rand.Rand) int {
	u := rng.Float64()
	acc := 0.0
	for i, f := range q.freq {
		acc += f
		if u < acc {
			return q.present[i]
		}
	}
	return q.present[len(q.present)-1]
}

// undiscretize draws a value inside bin b from a normal truncated to the
// bin's range.
func (q *quartileBins) undiscretize(b int, rng *rand.Rand) float64 {
	lo, hi := q.lo[b], q.hi[b]
	if hi <= lo {
		return lo
	}
	for i := 0; i < maxRejections; i++ {
		v := q.mean[b] + q.std[b]*rng.NormFloat64()
		if v >= lo && v <= hi {
			return v
		}
	}
	return math.Min(math.Max(q.mean[b], lo), hi)
}

// Local fits LIME-style weighted linear surrogates around single instances.
// It is read-only after construction; each call draws from its own source.
type Local struct {
	names       []string
	bins        []quartileBins
	scale       []float64
	kernelWidth float64
	numSamples  int
	numFeatures int
	seed        int64
}

// FeatureWeight is one term of a local surrogate.
type FeatureWeight struct {
	Feature int
	Label   string
	Weight  float64
}

// LocalExplanation is a surrogate fitted around one instance.
// Weights are sorted by decreasing magnitude.
type LocalExplanation struct {
	Weights   []FeatureWeight
	Intercept float64
	// Score is the weighted R² of the surrogate on the sampled neighbourhood.
	Score float64
	// Prediction is the surrogate's output at the instance.
	Prediction float64
}

// NewLocal learns the discretisation of trainX. numFeatures is the size of
// each explanation and is capped at the number of columns.
func NewLocal(trainX [][]float64, names []string, numSamples, numFeatures int, seed int64) (*Local, error) {
	if len(trainX) == 0 {
		return nil, fmt.Errorf("explain: empty training matrix")
	}
	nf := len(trainX[0])
	if len(names) != nf {
		return nil, fmt.Errorf("explain: %d names for %d features", len(names), nf)
	}
	if numSamples < 2 {
		return nil, fmt.Errorf("explain: need at least 2 samples, got %d", numSamples)
	}
	if numFeatures < 1 || numFeatures > nf {
		numFeatures = nf
	}

	l := &Local{
		names:       names,
		bins:        make([]quartileBins, nf),
		scale:       make([]float64, nf),
		kernelWidth: 0.75 * math.Sqrt(float64(nf)),
		numSamples:  numSamples,
		numFeatures: numFeatures,
		seed:        seed,
	}

	col := make([]float64, len(trainX))
	for f := 0; f < nf; f++ {
		for i, row := range trainX {
			col[i] = row[f]
		}
		l.bins[f] = fitBins(col)

		discrete := make([]float64, len(col))
		for i, v := range col {
			discrete[i] = float64(l.bins[f].bin(v))
		}
		_, std := stat.PopMeanStdDev(discrete, nil)
		if std == 0 {
			std = 1
		}
		l.scale[f] = std
	}
	return l, nil
}

func fitBins(col []float64) quartileBins {
	sorted := append([]float64(nil), col...)
	sort.Float64s(sorted)

	var q quartileBins
	for _, p := range []float64{0.25, 0.5, 0.75} {
		v := stat.Quantile(p, stat.LinInterp, sorted, nil)
		if len(q.cuts) == 0 || v > q.cuts[len(q.cuts)-1] {
			q.cuts = append(q.cuts, v)
		}
	}

	bounds := append(append([]float64{sorted[0]}, q.cuts...), sorted[len(sorted)-1])
	nBins := len(q.cuts) + 1
	q.mean = make([]float64, nBins)
	q.std = make([]float64, nBins)
	q.lo = bounds[:nBins]
	q.hi = bounds[1:]

	members := make([][]float64, nBins)
	for _, v := range col {
		b := q.bin(v)
		members[b] = append(members[b], v)
	}
	for b, vals := range members {
		if len(vals) == 0 {
			q.std[b] = stdEpsilon
			continue
		}
		q.mean[b], q.std[b] = stat.PopMeanStdDev(vals, nil)
		q.std[b] += stdEpsilon
		q.present = append(q.present, b)
		q.freq = append(q.freq, float64(len(vals))/float64(len(col)))
	}
	return q
}

// NumFeatures is the number of terms in each explanation.
func (l *Local) NumFeatures() int {
	return l.numFeatures
}

// Explain fits a surrogate of predict around x.
func (l *Local) Explain(ctx context.Context, x []float64, predict func([]float64) float64) (*LocalExplanation, error) {
	nf := len(l.bins)
	if len(x) != nf {
		return nil, fmt.Errorf("explain: got %d features, want %d", len(x), nf)
	}
	rng := rand.New(rand.NewSource(l.seed))

	instanceBins := make([]int, nf)
	for f := range x {
		instanceBins[f] = l.bins[f].bin(x[f])
	}

	// binary[i][f] is 1 when sample i falls in the instance's bin of f.
	binary := mat.NewDense(l.numSamples, nf, nil)
	labels := make([]float64, l.numSamples)
	weights := make([]float64, l.numSamples)
	row := make([]float64, nf)

	for i := 0; i < l.numSamples; i++ {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var dist2 float64
		for f := 0; f < nf; f++ {
			if i == 0 {
				binary.Set(0, f, 1)
				row[f] = x[f]
				continue
			}
			b := l.bins[f].sample(rng)
			if b == instanceBins[f] {
				binary.Set(i, f, 1)
			} else {
				d := 1 / l.scale[f]
				dist2 += d * d
			}
			row[f] = l.bins[f].undiscretize(b, rng)
		}
		labels[i] = predict(row)
		weights[i] = math.Sqrt(math.Exp(-dist2 / (l.kernelWidth * l.kernelWidth)))
	}

	all := make([]int, nf)
	for f := range all {
		all[f] = f
	}
	coef, _, err := weightedRidge(binary, all, labels, weights, selectionAlpha)
	if err != nil {
		return nil, err
	}
	order := make([]int, nf)
	copy(order, all)
	sort.SliceStable(order, func(a, b int) bool { return math.Abs(coef[order[a]]) > math.Abs(coef[order[b]]) })
	selected := order[:l.numFeatures]

	coef, intercept, err := weightedRidge(binary, selected, labels, weights, surrogateAlpha)
	if err != nil {
		return nil, err
	}

	out := &LocalExplanation{Intercept: intercept, Prediction: intercept}
	for j, f := range selected {
		out.Weights = append(out.Weights, FeatureWeight{
			Feature: f,
			Label:   l.bins[f].label(l.names[f], instanceBins[f]),
			Weight:  coef[j],
		})
		// the instance has 1 in every binary column
		out.Prediction += coef[j]
	}
	sort.SliceStable(out.Weights, func(a, b int) bool {
		return math.Abs(out.Weights[a].Weight) > math.Abs(out.Weights[b].Weight)
	})
	out.Score = weightedR2(binary, selected, coef, intercept, labels, weights)
	return out, nil
}

// weightedRidge solves a ridge regression with intercept on the given
// columns of X, centring with weighted means. It returns one coefficient
// per column in cols.
func weightedRidge(X *mat.Dense, cols []int, y, w []float64, alpha float64) ([]float64, float64, error) {
	n := len(y)
	k := len(cols)
	sumW := floats.Sum(w)
	if sumW == 0 {
		return nil, 0, fmt.Errorf("explain: all sample weights are zero")
	}

	xMean := make([]float64, k)
	for j, c := range cols {
		for i := 0; i < n; i++ {
			xMean[j] += w[i] * X.At(i, c)
		}
		xMean[j] /= sumW
	}
	yMean := floats.Dot(w, y) / sumW

	A := mat.NewSymDense(k, nil)
	b := mat.NewVecDense(k, nil)
	xc := make([]float64, k)
	for i := 0; i < n; i++ {
		for j, c := range cols {
			xc[j] = X.At(i, c) - xMean[j]
		}
		yc := y[i] - yMean
		for j := 0; j < k; j++ {
			b.SetVec(j, b.AtVec(j)+w[i]*xc[j]*yc)
			for m := j; m < k; m++ {
				A.SetSym(j, m, A.At(j, m)+w[i]*xc[j]*xc[m])
			}
		}
	}
	for j := 0; j < k; j++ {
		A.SetSym(j, j, A.At(j, j)+alpha)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return nil, 0, fmt.Errorf("explain: ridge system is not positive definite")
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, b); err != nil {
		return nil, 0, fmt.Errorf("explain: ridge solve: %w", err)
	}

	coef := make([]float64, k)
	intercept := yMean
	for j := range coef {
		coef[j] = beta.AtVec(j)
		intercept -= coef[j] * xMean[j]
	}
	return coef, intercept, nil
}

func weightedR2(X *mat.Dense, cols []int, coef []float64, intercept float64, y, w []float64) float64 {
	yMean := floats.Dot(w, y) / floats.Sum(w)
	var ssRes, ssTot float64
	for i := range y {
		pred := intercept
		for j, c := range cols {
			pred += coef[j] * X.At(i, c)
		}
		ssRes += w[i] * (y[i] - pred) * (y[i] - pred)
		ssTot += w[i] * (y[i] - yMean) * (y[i] - yMean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
