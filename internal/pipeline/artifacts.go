package pipeline

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/HeartRisk/internal/boost"
	"github.com/FlavioCFOliveira/HeartRisk/internal/explain"
	"github.com/FlavioCFOliveira/HeartRisk/internal/features"
	"github.com/FlavioCFOliveira/HeartRisk/internal/scaler"
)

// Artifacts is the trained state shared by every prediction.
type Artifacts struct {
	Model     *boost.Model
	ScalerMin []float64
	ScalerMax []float64
	// TrainX is the scaled training matrix the local explainer samples from.
	TrainX         [][]float64
	Names          []string
	ApplyWeighting bool
	LocalSamples   int
	Seed           int64
}

// Scaler rebuilds the fitted scaler.
func (a *Artifacts) Scaler() (*scaler.MinMax, error) {
	return scaler.FromState(a.ScalerMin, a.ScalerMax)
}

// FeatureOptions are the feature options the model was trained with.
func (a *Artifacts) FeatureOptions() features.Options {
	return features.Options{ApplyWeighting: a.ApplyWeighting}
}

// Explainer builds the explainer over the stored model and training matrix.
func (a *Artifacts) Explainer() (*explain.Explainer, error) {
	sc, err := a.Scaler()
	if err != nil {
		return nil, err
	}
	return explain.New(a.Model, sc, a.TrainX, a.Names, explain.Options{
		NumSamples:  a.LocalSamples,
		NumFeatures: explain.DefaultLocalFeatures,
		Seed:        a.Seed,
	})
}

// bundle is the on-disk form of Artifacts; the model keeps its own encoding.
type bundle struct {
	Model          []byte
	ScalerMin      []float64
	ScalerMax      []float64
	TrainX         [][]float64
	Names          []string
	ApplyWeighting bool
	LocalSamples   int
	Seed           int64
}

// Encode writes the artifacts using gob encoding.
func (a *Artifacts) Encode(w io.Writer) error {
	var model bytes.Buffer
	if err := a.Model.Encode(&model); err != nil {
		return err
	}
	b := bundle{
		Model:          model.Bytes(),
		ScalerMin:      a.ScalerMin,
		ScalerMax:      a.ScalerMax,
		TrainX:         a.TrainX,
		Names:          a.Names,
		ApplyWeighting: a.ApplyWeighting,
		LocalSamples:   a.LocalSamples,
		Seed:           a.Seed,
	}
	if err := gob.NewEncoder(w).Encode(b); err != nil {
		return fmt.Errorf("failed to encode artifacts: %w", err)
	}
	return nil
}

// Save writes the artifacts to filename.
func (a *Artifacts) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := a.Encode(file); err != nil {
		return err
	}
	return file.Close()
}

// DecodeArtifacts reads artifacts written by Encode.
func DecodeArtifacts(r io.Reader) (*Artifacts, error) {
	var b bundle
	if err := gob.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode artifacts: %w", err)
	}
	model, err := boost.Decode(bytes.NewReader(b.Model))
	if err != nil {
		return nil, err
	}
	if len(b.Names) != model.NumFeatures {
		return nil, fmt.Errorf("failed to decode artifacts: %d names for %d features", len(b.Names), model.NumFeatures)
	}
	return &Artifacts{
		Model:          model,
		ScalerMin:      b.ScalerMin,
		ScalerMax:      b.ScalerMax,
		TrainX:         b.TrainX,
		Names:          b.Names,
		ApplyWeighting: b.ApplyWeighting,
		LocalSamples:   b.LocalSamples,
		Seed:           b.Seed,
	}, nil
}

// LoadArtifacts reads artifacts written by Save.
func LoadArtifacts(filename string) (*Artifacts, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return DecodeArtifacts(file)
}
