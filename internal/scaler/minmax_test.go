package scaler

import (
	"errors"
	"math"
	"testing"
)

func TestMinMaxTransform(t *testing.T) {
	s := New()
	X := [][]float64{
		{10, 0, 7},
		{20, 5, 7},
		{30, 10, 7},
	}
	if err := s.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	expected := [][]float64{
		{0.0, 0.0, 0.0},
		{0.5, 0.5, 0.0},
		{1.0, 1.0, 0.0},
	}
	got, err := s.TransformAll(X)
	if err != nil {
		t.Fatalf("TransformAll failed: %v", err)
	}
	for i := range expected {
		for j := range expected[i] {
			if got[i][j] != expected[i][j] {
				t.Errorf("at [%d][%d] expected %f, got %f", i, j, expected[i][j], got[i][j])
			}
		}
	}

	// the input matrix is untouched
	if X[1][0] != 20 {
		t.Errorf("TransformAll modified its input")
	}
}

func TestMinMaxOutOfRangeAndRepeatable(t *testing.T) {
	s := New()
	if err := s.Fit([][]float64{{0}, {10}}); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Transform([]float64{15})
	b, _ := s.Transform([]float64{15})
	if a[0] != 1.5 || b[0] != a[0] {
		t.Errorf("Transform(15) = %v then %v, want 1.5 twice", a[0], b[0])
	}

	nan, _ := s.Transform([]float64{math.NaN()})
	if !math.IsNaN(nan[0]) {
		t.Errorf("NaN should propagate, got %v", nan[0])
	}
}

func TestMinMaxFitOrder(t *testing.T) {
	s := New()
	_, err := s.Transform([]float64{1, 2})
	var orderErr *FitOrderError
	if !errors.As(err, &orderErr) || orderErr.Op != "transform" {
		t.Fatalf("expected FitOrderError for transform before fit, got %v", err)
	}

	if err := s.Fit([][]float64{{1, 2}}); err != nil {
		t.Fatal(err)
	}
	err = s.Fit([][]float64{{1, 2}})
	if !errors.As(err, &orderErr) || orderErr.Op != "fit" {
		t.Fatalf("expected FitOrderError for second fit, got %v", err)
	}
}

func TestMinMaxShapeErrors(t *testing.T) {
	s := New()
	if err := s.Fit(nil); err == nil {
		t.Error("expected error fitting empty matrix")
	}
	if err := s.Fit([][]float64{{1, 2}, {3}}); err == nil {
		t.Error("expected error for ragged matrix")
	}

	s = New()
	_ = s.Fit([][]float64{{1, 2}})
	if _, err := s.Transform([]float64{1}); err == nil {
		t.Error("expected error for wrong feature count")
	}
}

func TestMinMaxState(t *testing.T) {
	s := New()
	_ = s.Fit([][]float64{{1, 5}, {3, 9}})
	min, max := s.State()

	restored, err := FromState(min, max)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := s.Transform([]float64{2, 6})
	b, _ := restored.Transform([]float64{2, 6})
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("restored scaler differs at %d: %v vs %v", i, a[i], b[i])
		}
	}

	if _, err := FromState([]float64{1}, nil); err == nil {
		t.Error("expected error for mismatched state")
	}
}

func TestMinMaxFitSkipsNaNInAnyRow(t *testing.T) {
	orders := [][][]float64{
		{{math.NaN()}, {0}, {10}},
		{{0}, {math.NaN()}, {10}},
		{{10}, {0}, {math.NaN()}},
	}
	for _, X := range orders {
		s := New()
		if err := s.Fit(X); err != nil {
			t.Fatal(err)
		}
		min, max := s.State()
		if min[0] != 0 || max[0] != 10 {
			t.Errorf("Fit(%v) learned [%v, %v], want [0, 10]", X, min[0], max[0])
		}
		got, _ := s.Transform([]float64{5})
		if got[0] != 0.5 {
			t.Errorf("Fit(%v): Transform(5) = %v, want 0.5", X, got[0])
		}
	}
}

func TestMinMaxAllNaNFeature(t *testing.T) {
	s := New()
	if err := s.Fit([][]float64{{1, math.NaN()}, {3, math.NaN()}}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Transform([]float64{2, 4})
	if got[0] != 0.5 || !math.IsNaN(got[1]) {
		t.Errorf("Transform = %v, want [0.5 NaN]", got)
	}
}
