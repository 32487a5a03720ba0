// Package assess turns one set of form measurements into a complete risk
// assessment: probability, explanation charts and rule-based feedback.
package assess

import (
	"context"
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/HeartRisk/internal/advice"
	"github.com/FlavioCFOliveira/HeartRisk/internal/explain"
	"github.com/FlavioCFOliveira/HeartRisk/internal/features"
)

// Input is one set of form measurements.
type Input struct {
	Age         float64 `json:"age"`
	Height      float64 `json:"height"`
	Weight      float64 `json:"weight"`
	Systolic    float64 `json:"systolic"`
	Diastolic   float64 `json:"diastolic"`
	Cholesterol float64 `json:"cholesterol"`
	Glucose     float64 `json:"glucose"`
	Male        bool    `json:"male"`
	Smoker      bool    `json:"smoker"`
	Alcohol     bool    `json:"alcohol"`
	Active      bool    `json:"active"`
}

// ValidationError reports a form field that cannot be assessed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks that every number is finite and height is positive.
func (in Input) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"age", in.Age},
		{"height", in.Height},
		{"weight", in.Weight},
		{"systolic", in.Systolic},
		{"diastolic", in.Diastolic},
		{"cholesterol", in.Cholesterol},
		{"glucose", in.Glucose},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		}
	}
	if in.Height <= 0 {
		return &ValidationError{Field: "height", Reason: "must be greater than zero"}
	}
	return nil
}

// Features converts the form booleans to the 0/1 encoding of the model.
func (in Input) Features() features.Input {
	return features.Input{
		Age:         in.Age,
		Height:      in.Height,
		Weight:      in.Weight,
		Systolic:    in.Systolic,
		Diastolic:   in.Diastolic,
		Cholesterol: in.Cholesterol,
		Glucose:     in.Glucose,
		Gender:      flag(in.Male),
		Smoke:       flag(in.Smoker),
		Alcohol:     flag(in.Alcohol),
		Active:      flag(in.Active),
	}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Assessment is the result shown for one prediction. It is not persisted.
type Assessment struct {
	BMI             float64
	Probability     float64
	Risk            string
	ConfidenceLow   float64
	ConfidenceHigh  float64
	GlobalPNG       []byte
	LocalPNG        []byte
	Local           []explain.FeatureWeight
	Warnings        []string
	Recommendations []string
}

// Explainer explains one raw feature row.
type Explainer interface {
	ExplainInstance(ctx context.Context, raw []float64) (*explain.Explanation, error)
}

// Assessor assembles assessments. It is safe for concurrent use.
type Assessor struct {
	explainer Explainer
	opts      features.Options
}

// New returns an Assessor that builds model rows with opts.
func New(e Explainer, opts features.Options) *Assessor {
	return &Assessor{explainer: e, opts: opts}
}

// Assess predicts and explains in and applies the feedback rules.
// The rules always see raw, unweighted measurements.
func (a *Assessor) Assess(ctx context.Context, in Input) (*Assessment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	fin := in.Features()
	modelRow := features.FromInput(fin, a.opts)
	rawRow := features.FromInput(fin, features.Options{})

	exp, err := a.explainer.ExplainInstance(ctx, modelRow.Slice())
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}

	low, high := advice.ConfidenceBand(exp.Probability)
	out := &Assessment{
		BMI:             rawRow[features.BMI],
		Probability:     exp.Probability,
		Risk:            advice.RiskBucket(exp.Probability),
		ConfidenceLow:   low,
		ConfidenceHigh:  high,
		GlobalPNG:       exp.GlobalPNG,
		LocalPNG:        exp.LocalPNG,
		Warnings:        advice.Warnings(rawRow),
		Recommendations: advice.Recommendations(rawRow),
	}
	if exp.Local != nil {
		out.Local = exp.Local.Weights
	}
	return out, nil
}
