// Package explain attributes single predictions to their features, globally
// with TreeSHAP and locally with a LIME-style linear surrogate.
package explain

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/FlavioCFOliveira/HeartRisk/internal/boost"
	"github.com/FlavioCFOliveira/HeartRisk/internal/chart"
	"github.com/FlavioCFOliveira/HeartRisk/internal/scaler"
)

// DefaultLocalFeatures is the maximum number of terms in a local explanation.
const DefaultLocalFeatures = 8

// Options tune the local surrogate.
type Options struct {
	NumSamples  int
	NumFeatures int
	Seed        int64
}

// Explainer is built once from a trained model and its training matrix and
// is safe for concurrent use.
type Explainer struct {
	model  *boost.Model
	scaler *scaler.MinMax
	names  []string
	shap   *TreeSHAP
	local  *Local
}

// Explanation is the full explanation of one raw feature row.
type Explanation struct {
	// Probability is the positive-class probability in percent, within [0, 100].
	Probability float64
	// SHAP holds one margin-space contribution per feature.
	SHAP          []float64
	ExpectedValue float64
	Local         *LocalExplanation
	GlobalPNG     []byte
	LocalPNG      []byte
}

// New binds an explainer to model. trainX must be the scaled training matrix.
func New(model *boost.Model, sc *scaler.MinMax, trainX [][]float64, names []string, opts Options) (*Explainer, error) {
	if !sc.Fitted() {
		return nil, &scaler.FitOrderError{Op: "explain"}
	}
	if len(names) != model.NumFeatures {
		return nil, fmt.Errorf("explain: %d names for a model with %d features", len(names), model.NumFeatures)
	}
	if opts.NumFeatures <= 0 {
		opts.NumFeatures = DefaultLocalFeatures
	}
	local, err := NewLocal(trainX, names, opts.NumSamples, opts.NumFeatures, opts.Seed)
	if err != nil {
		return nil, err
	}
	return &Explainer{
		model:  model,
		scaler: sc,
		names:  names,
		shap:   NewTreeSHAP(model),
		local:  local,
	}, nil
}

// LocalFeatures is the number of terms in each local explanation.
func (e *Explainer) LocalFeatures() int {
	return e.local.NumFeatures()
}

// ExplainInstance scales raw, predicts it and explains the prediction.
// The global and local parts are computed concurrently.
func (e *Explainer) ExplainInstance(ctx context.Context, raw []float64) (*Explanation, error) {
	x, err := e.scaler.Transform(raw)
	if err != nil {
		return nil, err
	}

	out := &Explanation{
		Probability:   clampPercent(e.model.PredictProba(x) * 100),
		ExpectedValue: e.shap.ExpectedValue(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.SHAP = e.shap.Values(x)
		png, err := e.globalChart(out.SHAP)
		if err != nil {
			return fmt.Errorf("global chart: %w", err)
		}
		out.GlobalPNG = png
		return nil
	})
	g.Go(func() error {
		local, err := e.local.Explain(ctx, x, e.model.PredictProba)
		if err != nil {
			return err
		}
		out.Local = local
		png, err := localChart(local)
		if err != nil {
			return fmt.Errorf("local chart: %w", err)
		}
		out.LocalPNG = png
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// globalChart draws |phi| per feature, smallest at the bottom.
func (e *Explainer) globalChart(phi []float64) ([]byte, error) {
	idx := make([]int, len(phi))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return math.Abs(phi[idx[a]]) < math.Abs(phi[idx[b]]) })

	labels := make([]string, len(idx))
	values := make([]float64, len(idx))
	for i, f := range idx {
		labels[i] = e.names[f]
		values[i] = math.Abs(phi[f])
	}
	return chart.HorizontalBars("Global feature importance (SHAP)", "|SHAP value|", labels, values)
}

// localChart draws the surrogate weights with the largest at the top.
func localChart(l *LocalExplanation) ([]byte, error) {
	n := len(l.Weights)
	labels := make([]string, n)
	values := make([]float64, n)
	for i, w := range l.Weights {
		labels[n-1-i] = w.Label
		values[n-1-i] = w.Weight
	}
	return chart.SignedBars("Local explanation", "weight", labels, values)
}

func clampPercent(p float64) float64 {
	return math.Min(100, math.Max(0, p))
}
