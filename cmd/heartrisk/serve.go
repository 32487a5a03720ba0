package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/HeartRisk/internal/assess"
	"github.com/FlavioCFOliveira/HeartRisk/internal/log"
	"github.com/FlavioCFOliveira/HeartRisk/internal/pipeline"
	"github.com/FlavioCFOliveira/HeartRisk/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive risk assessment",
	Long: `Train (or load a bundle written by "train --save") and serve the
assessment form, the JSON API and Prometheus metrics.

Examples:
  heartrisk serve
  heartrisk serve --host 0.0.0.0 --port 8080 --bundle model.gob`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		bundle, _ := cmd.Flags().GetString("bundle")

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		var art *pipeline.Artifacts
		if bundle != "" {
			a, err := pipeline.LoadArtifacts(bundle)
			if err != nil {
				return err
			}
			art = a
			log.WithFields(log.Fields{"bundle": bundle}).Info("model bundle loaded")
		} else {
			res, err := runPipeline(ctx)
			if err != nil {
				return err
			}
			art = res.Artifacts()
		}

		explainer, err := art.Explainer()
		if err != nil {
			return err
		}
		srv := server.New(assess.New(explainer, art.FeatureOptions()), log.WithFields(log.Fields{"component": "server"}))

		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		cmd.Printf("%s http://%s\n", color.New(color.FgCyan, color.Bold).Sprint("Serving on"), ln.Addr())
		return srv.Serve(ctx, ln)
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "Listen host")
	serveCmd.Flags().Int("port", 7860, "Listen port")
	serveCmd.Flags().String("bundle", "", "Serve a model bundle instead of training at startup")
	rootCmd.AddCommand(serveCmd)
}
