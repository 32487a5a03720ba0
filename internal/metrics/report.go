package metrics

import (
	"bytes"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// ClassNames label the negative and positive class in reports and charts.
var ClassNames = [2]string{"No Disease", "Disease"}

// ClassScores are the per-class precision, recall and F1.
type ClassScores struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a per-class classification report for the two labels.
// Undefined ratios (zero denominators) are reported as 0.
type Report struct {
	Classes  [2]ClassScores
	Accuracy float64
	Macro    ClassScores
	Weighted ClassScores
}

// NewReport derives the classification report from a confusion matrix.
func NewReport(cm [2][2]int) Report {
	var r Report
	total := 0
	for c := 0; c < 2; c++ {
		tp := cm[c][c]
		predicted := cm[0][c] + cm[1][c]
		actual := cm[c][0] + cm[c][1]
		total += actual

		s := ClassScores{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.Classes[c] = s
	}

	r.Accuracy = ratio(cm[0][0]+cm[1][1], total)
	r.Macro.Support = total
	r.Weighted.Support = total
	for _, s := range r.Classes {
		r.Macro.Precision += s.Precision / 2
		r.Macro.Recall += s.Recall / 2
		r.Macro.F1 += s.F1 / 2
		if total > 0 {
			w := float64(s.Support) / float64(total)
			r.Weighted.Precision += s.Precision * w
			r.Weighted.Recall += s.Recall * w
			r.Weighted.F1 += s.F1 * w
		}
	}
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Render writes the report as a text table.
func (r Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"", "precision", "recall", "f1-score", "support"})

	row := func(name string, s ClassScores) []string {
		return []string{name, f2(s.Precision), f2(s.Recall), f2(s.F1), fmt.Sprint(s.Support)}
	}
	for c, name := range ClassNames {
		table.Append(row(name, r.Classes[c]))
	}
	table.Append([]string{"accuracy", "", "", f2(r.Accuracy), fmt.Sprint(r.Macro.Support)})
	table.Append(row("macro avg", r.Macro))
	table.Append(row("weighted avg", r.Weighted))
	table.Render()
}

// String renders the report table.
func (r Report) String() string {
	var buf bytes.Buffer
	r.Render(&buf)
	return buf.String()
}

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
