package heartrisk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickConfig() Config {
	cfg := DefaultConfig()
	cfg.DataPath = "../internal/pipeline/testdata/heart_small.csv"
	cfg.Model.NEstimators = 30
	cfg.Model.LearningRate = 0.3
	cfg.Model.MinChildWeight = 1
	cfg.LocalSamples = 300
	return cfg
}

func TestTrainSaveLoadAssess(t *testing.T) {
	ctx := context.Background()
	bundle, ev, err := Train(ctx, quickConfig())
	require.NoError(t, err)
	assert.Equal(t, 1.0, ev.Accuracy)

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, bundle.Save(path))
	loaded, err := LoadBundle(path)
	require.NoError(t, err)

	a, err := NewAssessor(loaded)
	require.NoError(t, err)
	got, err := a.Assess(ctx, Input{
		Age: 68, Height: 160, Weight: 98, Systolic: 165, Diastolic: 100,
		Cholesterol: 270, Glucose: 145, Male: true,
	})
	require.NoError(t, err)
	assert.Equal(t, High, got.Risk)

	ts := httptest.NewServer(NewServer(a).Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("XAI_N_ESTIMATORS", "12")
	cfg, err := ConfigFromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Model.NEstimators)

	t.Setenv("XAI_MAX_DEPTH", "zero")
	_, err = ConfigFromEnv("")
	assert.Error(t, err)
}
