// Package advice holds the rule-based health feedback shown next to a prediction.
//
// The three rule sets use different thresholds on purpose; each one is the
// text shown at a different place in the UI. All thresholds are strict.
// Rules read raw (unweighted) measurements.
package advice

import (
	"github.com/FlavioCFOliveira/HeartRisk/internal/features"
)

// Risk buckets.
const (
	Low      = "Low"
	Moderate = "Moderate"
	High     = "High"
)

// Fallback messages shown when no rule fires.
const (
	HealthyRecommendation = "Your metrics look good — keep up a heart-healthy lifestyle!"
	HealthyLiveFlags      = "All metrics within healthy range."
	HealthyWarnings       = "All dynamic metrics within healthy range."
)

type rule struct {
	fires   func(v features.Vector) bool
	message string
}

var recommendationRules = []rule{
	{func(v features.Vector) bool { return v[features.Systolic] > 140 },
		"High systolic BP detected. Reduce sodium and consider regular aerobic exercise."},
	{func(v features.Vector) bool { return v[features.Cholesterol] > 200 },
		"High cholesterol. Prefer fiber-rich diet and limit saturated fats."},
	{func(v features.Vector) bool { return v[features.Glucose] > 126 },
		"Elevated glucose. Reduce simple sugars and consult a clinician."},
	{func(v features.Vector) bool { return v[features.BMI] > 30 },
		"BMI suggests overweight/obesity. Increase activity and adopt a balanced diet."},
	{func(v features.Vector) bool { return v[features.Smoke] == 1 },
		"Smoking increases risk substantially. Seek cessation support."},
	{func(v features.Vector) bool { return v[features.Alcohol] == 1 },
		"Frequent alcohol intake may affect heart health. Consider reducing intake."},
	{func(v features.Vector) bool { return v[features.Active] == 0 },
		"Low physical activity. Aim for 150+ minutes/week of moderate activity."},
}

var warningRules = []rule{
	{func(v features.Vector) bool { return v[features.Systolic] > 130 || v[features.Diastolic] > 85 },
		"Blood pressure is elevated."},
	{func(v features.Vector) bool { return v[features.Cholesterol] > 240 },
		"Cholesterol is high."},
	{func(v features.Vector) bool { return v[features.Glucose] > 125 },
		"Glucose suggests possible diabetes."},
	{func(v features.Vector) bool { return v[features.BMI] > 30 },
		"High BMI may increase cardiovascular risk."},
	{func(v features.Vector) bool { return v[features.Smoke] != 0 },
		"Smoking detected — consider quitting."},
	{func(v features.Vector) bool { return v[features.Alcohol] != 0 },
		"Alcohol consumption could affect heart."},
	{func(v features.Vector) bool { return v[features.Active] == 0 },
		"Lack of activity — increase physical movement."},
}

func apply(rules []rule, v features.Vector, fallback string) []string {
	var out []string
	for _, r := range rules {
		if r.fires(v) {
			out = append(out, r.message)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

// Recommendations are the personalized lifestyle suggestions for a raw feature vector.
func Recommendations(v features.Vector) []string {
	return apply(recommendationRules, v, HealthyRecommendation)
}

// Warnings are the dynamic warnings shown with a prediction.
func Warnings(v features.Vector) []string {
	return apply(warningRules, v, HealthyWarnings)
}

// LiveFlags is the immediate feedback computed while the form is edited.
func LiveFlags(age, height, weight, systolic, cholesterol, glucose float64) []string {
	var msgs []string
	if systolic > 130 {
		msgs = append(msgs, "Elevated systolic BP.")
	}
	if cholesterol > 200 {
		msgs = append(msgs, "High cholesterol.")
	}
	if glucose > 125 {
		msgs = append(msgs, "Elevated glucose.")
	}
	if features.BodyMassIndex(weight, height) > 30 {
		msgs = append(msgs, "High BMI.")
	}
	if len(msgs) == 0 {
		return []string{HealthyLiveFlags}
	}
	return msgs
}

// RiskBucket maps a probability in percent to Low (< 30), Moderate (< 70) or High.
func RiskBucket(p float64) string {
	switch {
	case p < 30:
		return Low
	case p < 70:
		return Moderate
	default:
		return High
	}
}

// ConfidenceBand is the ±5 point heuristic band around p, clamped to [0, 100].
func ConfidenceBand(p float64) (low, high float64) {
	low, high = p-5, p+5
	if low < 0 {
		low = 0
	}
	if high > 100 {
		high = 100
	}
	return low, high
}
