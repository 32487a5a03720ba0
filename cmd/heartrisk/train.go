package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model and print held-out metrics",
	Long: `Run the full pipeline: load, engineer features, split, scale,
optionally oversample, train, then evaluate on the held-out split.

Examples:
  heartrisk train
  heartrisk train --save model.gob`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		savePath, _ := cmd.Flags().GetString("save")

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		res, err := runPipeline(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, color.New(color.FgGreen, color.Bold).Sprint("Training complete."))

		ev, err := res.Evaluate()
		if err != nil {
			return err
		}
		printEvaluation(out, ev)

		if savePath != "" {
			if err := res.Artifacts().Save(savePath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved model bundle to %s\n", savePath)
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().String("save", "", "Write the trained model bundle to this file")
	rootCmd.AddCommand(trainCmd)
}
