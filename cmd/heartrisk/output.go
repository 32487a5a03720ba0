package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/FlavioCFOliveira/HeartRisk/internal/metrics"
)

func printEvaluation(w io.Writer, ev *metrics.Evaluation) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %.4f\n", bold("Accuracy:"), ev.Accuracy)
	fmt.Fprintf(w, "%s %.4f\n", bold("AUC:"), ev.AUC)
	fmt.Fprintln(w, bold("Classification report:"))
	ev.Report.Render(w)
}
