// Package scaler provides the min-max feature scaler shared by training and inference.
package scaler

import (
	"fmt"
	"math"
)

// FitOrderError reports a scaler used out of order: Transform before Fit,
// or Fit on an already fitted scaler.
type FitOrderError struct {
	Op string
}

func (e *FitOrderError) Error() string {
	if e.Op == "fit" {
		return "scaler: fit called on an already fitted scaler"
	}
	return fmt.Sprintf("scaler: %s called before fit", e.Op)
}

// MinMax scales each feature to [0, 1] over the range seen by Fit.
// A constant feature (max == min) scales to 0. Fit ignores NaN; a feature
// that is NaN in every row keeps NaN bounds and scales to NaN.
type MinMax struct {
	min    []float64
	max    []float64
	fitted bool
}

// New returns an unfitted scaler.
func New() *MinMax {
	return &MinMax{}
}

// FromState rebuilds a fitted scaler from saved per-feature bounds.
func FromState(min, max []float64) (*MinMax, error) {
	if len(min) != len(max) || len(min) == 0 {
		return nil, fmt.Errorf("scaler: invalid state (%d mins, %d maxs)", len(min), len(max))
	}
	s := &MinMax{
		min:    append([]float64(nil), min...),
		max:    append([]float64(nil), max...),
		fitted: true,
	}
	return s, nil
}

// Fit learns per-feature min and max. It may only be called once.
func (s *MinMax) Fit(X [][]float64) error {
	if s.fitted {
		return &FitOrderError{Op: "fit"}
	}
	if len(X) == 0 {
		return fmt.Errorf("scaler: cannot fit on an empty matrix")
	}

	numFeatures := len(X[0])
	s.min = make([]float64, numFeatures)
	s.max = make([]float64, numFeatures)
	for i := range s.min {
		s.min[i] = math.Inf(1)
		s.max[i] = math.Inf(-1)
	}

	for r, row := range X {
		if len(row) != numFeatures {
			return fmt.Errorf("scaler: row %d has %d features, want %d", r, len(row), numFeatures)
		}
		for i, val := range row {
			if math.IsNaN(val) {
				continue
			}
			if val < s.min[i] {
				s.min[i] = val
			}
			if val > s.max[i] {
				s.max[i] = val
			}
		}
	}
	for i := range s.min {
		if s.min[i] > s.max[i] {
			s.min[i], s.max[i] = math.NaN(), math.NaN()
		}
	}
	s.fitted = true
	return nil
}

// Fitted reports whether Fit has been called.
func (s *MinMax) Fitted() bool {
	return s.fitted
}

// State returns copies of the learned bounds.
func (s *MinMax) State() (min, max []float64) {
	return append([]float64(nil), s.min...), append([]float64(nil), s.max...)
}

// Transform scales one row. The input is not modified.
func (s *MinMax) Transform(x []float64) ([]float64, error) {
	if !s.fitted {
		return nil, &FitOrderError{Op: "transform"}
	}
	if len(x) != len(s.min) {
		return nil, fmt.Errorf("scaler: got %d features, want %d", len(x), len(s.min))
	}

	out := make([]float64, len(x))
	for i, val := range x {
		diff := s.max[i] - s.min[i]
		if diff != 0 {
			out[i] = (val - s.min[i]) / diff
		} else {
			out[i] = 0
		}
	}
	return out, nil
}

// TransformAll scales every row of X.
func (s *MinMax) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
