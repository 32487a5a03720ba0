package boost

import (
	"math"

	"github.com/FlavioCFOliveira/HeartRisk/internal/metrics"
)

// minHessian keeps near-saturated rows from producing zero-cover nodes.
const minHessian = 1e-16

// sigmoid computes 1 / (1 + exp(-x)) without overflowing for large |x|.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// logisticGradients fills g and h with the first and second derivatives of
// the weighted logistic loss at the current margins.
// g = w(p - y), h = w p (1 - p)
func logisticGradients(margins []float64, y []int, weight func(label int) float64, g, h []float64) {
	for i, mg := range margins {
		p := sigmoid(mg)
		w := weight(y[i])
		g[i] = w * (p - float64(y[i]))
		h[i] = math.Max(w*p*(1.0-p), minHessian)
	}
}

// logLoss is the mean binary cross entropy of probabilities against labels.
func logLoss(y []int, proba []float64) float64 {
	const eps = 1e-15
	var sum float64
	for i, p := range proba {
		// Clip predictions to avoid log(0)
		if p < eps {
			p = eps
		}
		if p > 1-eps {
			p = 1 - eps
		}
		t := float64(y[i])
		sum += t*math.Log(p) + (1.0-t)*math.Log(1.0-p)
	}
	return -sum / float64(len(proba))
}

// errorRate is the fraction of rows misclassified at the 0.5 threshold.
func errorRate(y []int, proba []float64) float64 {
	wrong := 0
	for i, p := range proba {
		pred := 0
		if p > 0.5 {
			pred = 1
		}
		if pred != y[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(len(proba))
}

// Eval computes the named metric ("logloss", "error" or "auc") from margins.
// AUC on a single-class label set is NaN.
func Eval(metric string, y []int, margins []float64) float64 {
	proba := make([]float64, len(margins))
	for i, mg := range margins {
		proba[i] = sigmoid(mg)
	}
	switch metric {
	case "error":
		return errorRate(y, proba)
	case "auc":
		auc, err := metrics.ROCAUC(proba, y)
		if err != nil {
			return math.NaN()
		}
		return auc
	default:
		return logLoss(y, proba)
	}
}
