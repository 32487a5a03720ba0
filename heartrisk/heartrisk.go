// Package heartrisk is the public entry point for embedding the risk model
// in another program.
package heartrisk

import (
	"context"

	"github.com/FlavioCFOliveira/HeartRisk/internal/advice"
	"github.com/FlavioCFOliveira/HeartRisk/internal/assess"
	"github.com/FlavioCFOliveira/HeartRisk/internal/config"
	"github.com/FlavioCFOliveira/HeartRisk/internal/log"
	"github.com/FlavioCFOliveira/HeartRisk/internal/metrics"
	"github.com/FlavioCFOliveira/HeartRisk/internal/pipeline"
	"github.com/FlavioCFOliveira/HeartRisk/internal/server"
)

// Re-export the types callers need.
type (
	Config     = config.Config
	Input      = assess.Input
	Assessment = assess.Assessment
	Assessor   = assess.Assessor
	Bundle     = pipeline.Artifacts
	Evaluation = metrics.Evaluation
	Server     = server.Server
)

// Risk buckets.
const (
	Low      = advice.Low
	Moderate = advice.Moderate
	High     = advice.High
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// ConfigFromEnv reads XAI_* variables, after loading envFile if it exists.
func ConfigFromEnv(envFile string) (Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return Config{}, err
	}
	return config.FromEnv()
}

// Train runs the pipeline and returns the servable bundle with its held-out evaluation.
func Train(ctx context.Context, cfg Config) (*Bundle, *Evaluation, error) {
	res, err := pipeline.Run(ctx, cfg, log.WithFields(log.Fields{"seed": cfg.Seed}))
	if err != nil {
		return nil, nil, err
	}
	ev, err := res.Evaluate()
	if err != nil {
		return nil, nil, err
	}
	return res.Artifacts(), ev, nil
}

// LoadBundle reads a bundle written by Bundle.Save.
func LoadBundle(filename string) (*Bundle, error) {
	return pipeline.LoadArtifacts(filename)
}

// NewAssessor builds an assessor over a bundle.
func NewAssessor(b *Bundle) (*Assessor, error) {
	e, err := b.Explainer()
	if err != nil {
		return nil, err
	}
	return assess.New(e, b.FeatureOptions()), nil
}

// NewServer wraps an assessor in the HTTP server.
func NewServer(a *Assessor) *Server {
	return server.New(a, log.WithFields(log.Fields{"component": "server"}))
}
