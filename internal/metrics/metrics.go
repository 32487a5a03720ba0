// Package metrics evaluates a binary classifier on held-out data.
package metrics

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/HeartRisk/internal/chart"
)

// ErrSingleClass is returned by ROCAUC when the labels hold only one class.
var ErrSingleClass = errors.New("metrics: ROC AUC is undefined when only one class is present")

// Classifier scores a feature row with a positive-class probability.
type Classifier interface {
	PredictProba(x []float64) float64
}

// Evaluation is the result of scoring a classifier on a labelled set.
type Evaluation struct {
	Accuracy float64
	AUC      float64
	// Confusion is indexed [actual][predicted].
	Confusion [2][2]int
	Report    Report
}

// Evaluate scores every row of X with c and compares against y.
// A row is predicted positive when its probability is above 0.5.
func Evaluate(c Classifier, X [][]float64, y []int) (*Evaluation, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("metrics: need matching non-empty X and y, got %d rows and %d labels", len(X), len(y))
	}

	scores := make([]float64, len(X))
	pred := make([]int, len(X))
	for i, row := range X {
		scores[i] = c.PredictProba(row)
		if scores[i] > 0.5 {
			pred[i] = 1
		}
	}

	auc, err := ROCAUC(scores, y)
	if err != nil {
		return nil, err
	}
	cm := Confusion(y, pred)
	return &Evaluation{
		Accuracy:  Accuracy(y, pred),
		AUC:       auc,
		Confusion: cm,
		Report:    NewReport(cm),
	}, nil
}

// Accuracy is the fraction of predictions equal to the labels.
func Accuracy(y, pred []int) float64 {
	if len(y) == 0 {
		return 0
	}
	correct := 0
	for i := range y {
		if y[i] == pred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(y))
}

// Confusion counts predictions as [actual][predicted].
func Confusion(y, pred []int) [2][2]int {
	var cm [2][2]int
	for i := range y {
		cm[clamp(y[i])][clamp(pred[i])]++
	}
	return cm
}

func clamp(label int) int {
	if label != 0 {
		return 1
	}
	return 0
}

// ROCAUC is the area under the ROC curve of scores against binary labels.
func ROCAUC(scores []float64, y []int) (float64, error) {
	if len(scores) != len(y) {
		return 0, fmt.Errorf("metrics: %d scores for %d labels", len(scores), len(y))
	}

	type pair struct {
		score float64
		pos   bool
	}
	pairs := make([]pair, len(scores))
	var nPos int
	for i, s := range scores {
		pairs[i] = pair{s, y[i] != 0}
		if pairs[i].pos {
			nPos++
		}
	}
	if nPos == 0 || nPos == len(pairs) {
		return 0, ErrSingleClass
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	sorted := make([]float64, len(pairs))
	classes := make([]bool, len(pairs))
	for i, p := range pairs {
		sorted[i] = p.score
		classes[i] = p.pos
	}

	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// ConfusionPNG renders the confusion matrix as an annotated heatmap.
func (e *Evaluation) ConfusionPNG() ([]byte, error) {
	z := [][]float64{
		{float64(e.Confusion[0][0]), float64(e.Confusion[0][1])},
		{float64(e.Confusion[1][0]), float64(e.Confusion[1][1])},
	}
	return chart.Heatmap("Confusion Matrix", "Predicted", "Actual",
		ClassNames[:], ClassNames[:], z)
}
