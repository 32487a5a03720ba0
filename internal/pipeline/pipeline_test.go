package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/HeartRisk/internal/config"
	"github.com/FlavioCFOliveira/HeartRisk/internal/dataset"
	"github.com/FlavioCFOliveira/HeartRisk/internal/log"
	"github.com/FlavioCFOliveira/HeartRisk/internal/split"
)

const smallCSV = "testdata/heart_small.csv"

// smallConfig trains quickly on the 40-row fixture.
func smallConfig() config.Config {
	cfg := config.Default()
	cfg.DataPath = smallCSV
	cfg.Model.NEstimators = 30
	cfg.Model.LearningRate = 0.3
	cfg.Model.MinChildWeight = 1
	cfg.LocalSamples = 300
	return cfg
}

func TestRunGolden(t *testing.T) {
	a := assert.New(t)
	res, err := Run(context.Background(), smallConfig(), log.Discard())
	require.NoError(t, err)

	a.Len(res.TrainY, 32)
	a.Len(res.TestY, 8)
	neg, pos := split.ClassCounts(res.TestY)
	a.Equal(4, neg)
	a.Equal(4, pos)
	a.Equal(1.0, res.ScalePosWeight)
	a.Len(res.Model.Trees, 30)

	ev, err := res.Evaluate()
	require.NoError(t, err)
	a.Equal(1.0, ev.Accuracy)
	a.InDelta(1.0, ev.AUC, 1e-12)
	a.Equal([2][2]int{{4, 0}, {0, 4}}, ev.Confusion)
}

// TestRunOverlappingClasses trains on a fixture where every negative shares
// its features with most positives, so no model can separate the test split.
func TestRunOverlappingClasses(t *testing.T) {
	a := assert.New(t)
	cfg := smallConfig()
	cfg.DataPath = "testdata/heart_overlap.csv"
	res, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)

	ev, err := res.Evaluate()
	require.NoError(t, err)
	a.Greater(ev.Accuracy, 0.0)
	a.LessOrEqual(ev.Accuracy, 7.0/8)
	a.GreaterOrEqual(ev.AUC, 0.5)
	a.Less(ev.AUC, 1.0)
	total := ev.Confusion[0][0] + ev.Confusion[0][1] + ev.Confusion[1][0] + ev.Confusion[1][1]
	a.Equal(8, total)
	a.Greater(ev.Confusion[0][1]+ev.Confusion[1][0], 0)

	// the four test negatives are one repeated row
	var p []float64
	for i, row := range res.TestX {
		if res.TestY[i] == 0 {
			p = append(p, res.Model.PredictProba(row))
		}
	}
	require.Len(t, p, 4)
	for _, v := range p[1:] {
		a.Equal(p[0], v)
	}

	again, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	evAgain, err := again.Evaluate()
	require.NoError(t, err)
	a.Equal(ev.Accuracy, evAgain.Accuracy)
	a.Equal(ev.AUC, evAgain.AUC)
}

func TestRunDeterministic(t *testing.T) {
	first, err := Run(context.Background(), smallConfig(), log.Discard())
	require.NoError(t, err)
	second, err := Run(context.Background(), smallConfig(), log.Discard())
	require.NoError(t, err)

	assert.Equal(t, first.TestX, second.TestX)
	assert.Equal(t, first.Model.Trees, second.Model.Trees)
}

func TestRunScalesWithTrainingSplitOnly(t *testing.T) {
	res, err := Run(context.Background(), smallConfig(), log.Discard())
	require.NoError(t, err)

	for _, row := range res.TrainX {
		for _, v := range row {
			assert.True(t, v >= 0 && v <= 1, "training value %v outside [0, 1]", v)
		}
	}
}

// imbalanced writes the fixture with only the first half of its positives.
func imbalanced(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(smallCSV)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	kept := []string{lines[0]}
	positives := 0
	for _, line := range lines[1:] {
		if strings.HasSuffix(line, ",1") {
			positives++
			if positives > 10 {
				continue
			}
		}
		kept = append(kept, line)
	}
	path := filepath.Join(t.TempDir(), "imbalanced.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0o644))
	return path
}

func TestRunSMOTE(t *testing.T) {
	cfg := smallConfig()
	cfg.DataPath = imbalanced(t)

	plain, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	neg, pos := split.ClassCounts(plain.TrainY)
	assert.Equal(t, 16, neg)
	assert.Equal(t, 8, pos)
	assert.Equal(t, 2.0, plain.ScalePosWeight)

	cfg.UseSMOTE = true
	balanced, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	neg, pos = split.ClassCounts(balanced.TrainY)
	assert.Equal(t, 16, neg)
	assert.Equal(t, 16, pos)
	assert.Equal(t, 1.0, balanced.ScalePosWeight)

	// the test split is untouched
	assert.Equal(t, plain.TestY, balanced.TestY)
	assert.Equal(t, plain.TestX, balanced.TestX)
}

func TestRunTrainLog(t *testing.T) {
	cfg := smallConfig()
	cfg.Model.NEstimators = 5
	cfg.TrainLogPath = filepath.Join(t.TempDir(), "rounds.csv")

	_, err := Run(context.Background(), cfg, log.Discard())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.TrainLogPath)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(data), "\n"))
}

func TestRunErrors(t *testing.T) {
	cfg := smallConfig()
	cfg.DataPath = filepath.Join(t.TempDir(), "missing.csv")
	_, err := Run(context.Background(), cfg, log.Discard())
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("age,height\n1,2\n"), 0o644))
	cfg.DataPath = bad
	_, err = Run(context.Background(), cfg, log.Discard())
	var schemaErr *dataset.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	cfg = smallConfig()
	cfg.TestSize = 0
	_, err = Run(context.Background(), cfg, log.Discard())
	assert.Error(t, err)
}

func TestArtifactsRoundTrip(t *testing.T) {
	res, err := Run(context.Background(), smallConfig(), log.Discard())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bundle.gob")
	require.NoError(t, res.Artifacts().Save(path))

	loaded, err := LoadArtifacts(path)
	require.NoError(t, err)
	assert.Equal(t, res.Artifacts().Names, loaded.Names)
	assert.Equal(t, res.TrainX, loaded.TrainX)
	assert.False(t, loaded.FeatureOptions().ApplyWeighting)

	sc, err := loaded.Scaler()
	require.NoError(t, err)
	for _, row := range res.TestX {
		assert.Equal(t, res.Model.PredictProba(row), loaded.Model.PredictProba(row))
	}
	wantMin, wantMax := res.Scaler.State()
	gotMin, gotMax := sc.State()
	assert.Equal(t, wantMin, gotMin)
	assert.Equal(t, wantMax, gotMax)

	e, err := loaded.Explainer()
	require.NoError(t, err)
	assert.Equal(t, 8, e.LocalFeatures())

	_, err = LoadArtifacts(filepath.Join(t.TempDir(), "missing.gob"))
	assert.Error(t, err)
}
