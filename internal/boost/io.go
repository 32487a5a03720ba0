package boost

import (
	"encoding/gob"
	"fmt"
	"io"
)

// Encode writes the model to an io.Writer using gob encoding.
func (m *Model) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// Decode reads a model written by Encode.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if len(m.Trees) == 0 || m.NumFeatures == 0 {
		return nil, fmt.Errorf("failed to decode model: empty ensemble")
	}
	return &m, nil
}
