package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the model and save the confusion matrix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		res, err := runPipeline(ctx)
		if err != nil {
			return err
		}
		ev, err := res.Evaluate()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printEvaluation(out, ev)

		png, err := ev.ConfusionPNG()
		if err != nil {
			return err
		}
		if err := os.WriteFile(outPath, png, 0o644); err != nil {
			return fmt.Errorf("write confusion matrix: %w", err)
		}
		fmt.Fprintf(out, "Saved confusion matrix to %s\n", outPath)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().String("out", "confusion_matrix.png", "Confusion matrix image path")
	rootCmd.AddCommand(evaluateCmd)
}
