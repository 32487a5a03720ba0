package assess

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/HeartRisk/internal/advice"
	"github.com/FlavioCFOliveira/HeartRisk/internal/explain"
	"github.com/FlavioCFOliveira/HeartRisk/internal/features"
)

// fixedExplainer returns a constant probability and records the last row.
type fixedExplainer struct {
	probability float64
	err         error
	last        []float64
}

func (f *fixedExplainer) ExplainInstance(_ context.Context, raw []float64) (*explain.Explanation, error) {
	f.last = raw
	if f.err != nil {
		return nil, f.err
	}
	return &explain.Explanation{
		Probability: f.probability,
		GlobalPNG:   []byte("g"),
		LocalPNG:    []byte("l"),
		Local: &explain.LocalExplanation{Weights: []explain.FeatureWeight{
			{Feature: features.Systolic, Label: "systolic > 0.60", Weight: 0.3},
		}},
	}, nil
}

func healthyInput() Input {
	return Input{
		Age: 40, Height: 180, Weight: 81, Systolic: 120, Diastolic: 80,
		Cholesterol: 180, Glucose: 90, Male: true, Active: true,
	}
}

func TestAssessHealthy(t *testing.T) {
	a := assert.New(t)
	fe := &fixedExplainer{probability: 12.5}
	got, err := New(fe, features.Options{}).Assess(context.Background(), healthyInput())
	require.NoError(t, err)

	a.InDelta(25, got.BMI, 1e-9)
	a.Equal(12.5, got.Probability)
	a.Equal(advice.Low, got.Risk)
	a.Equal(7.5, got.ConfidenceLow)
	a.Equal(17.5, got.ConfidenceHigh)
	a.Equal([]string{advice.HealthyWarnings}, got.Warnings)
	a.Equal([]string{advice.HealthyRecommendation}, got.Recommendations)
	a.Len(got.Local, 1)
	a.Equal([]byte("g"), got.GlobalPNG)

	a.Len(fe.last, features.NumFeatures)
	a.Equal(1.0, fe.last[features.Gender])
	a.Equal(0.0, fe.last[features.Smoke])
	a.Equal(1.0, fe.last[features.Active])
	a.Equal(40.0, fe.last[features.PulsePressure])
}

func TestAssessHighRisk(t *testing.T) {
	in := healthyInput()
	in.Systolic = 160
	in.Smoker = true
	in.Active = false

	got, err := New(&fixedExplainer{probability: 98}, features.Options{}).Assess(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, advice.High, got.Risk)
	assert.Equal(t, 100.0, got.ConfidenceHigh)
	assert.Len(t, got.Warnings, 3)
	assert.Len(t, got.Recommendations, 3)
}

func TestAssessWeightingOnlyAffectsModelRow(t *testing.T) {
	in := healthyInput()
	in.Cholesterol = 190 // 190 * 1.5 would trip the cholesterol rules
	fe := &fixedExplainer{probability: 50}

	got, err := New(fe, features.Options{ApplyWeighting: true}).Assess(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 285.0, fe.last[features.Cholesterol])
	assert.Equal(t, []string{advice.HealthyWarnings}, got.Warnings)
	assert.Equal(t, []string{advice.HealthyRecommendation}, got.Recommendations)
	assert.Equal(t, advice.Moderate, got.Risk)
}

func TestAssessValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(in *Input)
		field string
	}{
		{"zero height", func(in *Input) { in.Height = 0 }, "height"},
		{"negative height", func(in *Input) { in.Height = -170 }, "height"},
		{"nan glucose", func(in *Input) { in.Glucose = math.NaN() }, "glucose"},
		{"inf weight", func(in *Input) { in.Weight = math.Inf(1) }, "weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := healthyInput()
			tt.edit(&in)
			fe := &fixedExplainer{}
			_, err := New(fe, features.Options{}).Assess(context.Background(), in)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Nil(t, fe.last, "explainer must not run on invalid input")
		})
	}
}

func TestAssessExplainerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&fixedExplainer{err: boom}, features.Options{}).Assess(context.Background(), healthyInput())
	assert.ErrorIs(t, err, boom)
}
