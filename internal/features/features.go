// Package features derives the model's feature vector from health records.
//
// The column order of Vector is a positional contract shared by the scaler,
// the model, the explainers and the recommendation rules.
package features

import "github.com/FlavioCFOliveira/HeartRisk/internal/dataset"

// Feature indices into a Vector.
const (
	Age = iota
	Systolic
	Diastolic
	Cholesterol
	Glucose
	Gender
	Smoke
	Alcohol
	Active
	BMI
	PulsePressure
	BMIAgeInteraction

	NumFeatures
)

// Names are the feature names in Vector order.
var Names = []string{
	"age", "systolic", "diastolic", "cholesterol", "glucose", "gender",
	"smoke", "alcohol", "active", "bmi", "pulse_pressure", "bmi_age_interaction",
}

// Target is the label column.
const Target = "heart_disease"

// legacyWeights are the multipliers of the legacy weighting stage.
// Features without an entry are left untouched.
var legacyWeights = map[int]float64{
	Age:               1.1,
	Systolic:          1.2,
	Diastolic:         1.1,
	Cholesterol:       1.5,
	Glucose:           1.4,
	Smoke:             1.3,
	Alcohol:           1.2,
	Active:            -0.8,
	BMI:               1.4,
	PulsePressure:     1.2,
	BMIAgeInteraction: 1.3,
}

// Options control optional transform stages.
type Options struct {
	// ApplyWeighting multiplies features by fixed legacy constants.
	// This distorts the feature distributions; it is off by default.
	ApplyWeighting bool
}

// Vector is one engineered feature row.
type Vector [NumFeatures]float64

// Slice returns a copy of v as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// Input is the raw measurement set collected for a single live prediction.
type Input struct {
	Age         float64
	Height      float64
	Weight      float64
	Systolic    float64
	Diastolic   float64
	Cholesterol float64
	Glucose     float64
	Gender      float64
	Smoke       float64
	Alcohol     float64
	Active      float64
}

// BodyMassIndex returns weight(kg) / height(m)^2 with height in centimetres.
func BodyMassIndex(weight, height float64) float64 {
	m := height / 100.0
	return weight / (m * m)
}

// FromInput builds the feature vector of a live input.
// It shares the derivation with Engineer so batch and live rows agree.
func FromInput(in Input, opts Options) Vector {
	return derive(in, opts)
}

// Engineer builds the feature vector of a record.
func Engineer(r dataset.Record, opts Options) Vector {
	return derive(Input{
		Age:         r.Age,
		Height:      r.Height,
		Weight:      r.Weight,
		Systolic:    r.Systolic,
		Diastolic:   r.Diastolic,
		Cholesterol: r.Cholesterol,
		Glucose:     r.Glucose,
		Gender:      r.Gender,
		Smoke:       r.Smoke,
		Alcohol:     r.Alcohol,
		Active:      r.Active,
	}, opts)
}

func derive(in Input, opts Options) Vector {
	bmi := BodyMassIndex(in.Weight, in.Height)

	v := Vector{
		Age:               in.Age,
		Systolic:          in.Systolic,
		Diastolic:         in.Diastolic,
		Cholesterol:       in.Cholesterol,
		Glucose:           in.Glucose,
		Gender:            in.Gender,
		Smoke:             in.Smoke,
		Alcohol:           in.Alcohol,
		Active:            in.Active,
		BMI:               bmi,
		PulsePressure:     in.Systolic - in.Diastolic,
		BMIAgeInteraction: bmi * in.Age,
	}

	if opts.ApplyWeighting {
		for i, w := range legacyWeights {
			v[i] *= w
		}
	}
	return v
}

// Matrix engineers every record and returns the feature matrix and binary labels.
// A record is positive when heart_disease == 1.
func Matrix(records []dataset.Record, opts Options) ([][]float64, []int) {
	X := make([][]float64, len(records))
	y := make([]int, len(records))
	for i, r := range records {
		X[i] = Engineer(r, opts).Slice()
		if r.HeartDisease == 1 {
			y[i] = 1
		}
	}
	return X, y
}
