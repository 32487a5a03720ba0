// Package pipeline runs the batch part of the application: load, engineer,
// split, scale, rebalance and train.
package pipeline

import (
	"context"
	"fmt"

	"github.com/FlavioCFOliveira/HeartRisk/internal/boost"
	"github.com/FlavioCFOliveira/HeartRisk/internal/config"
	"github.com/FlavioCFOliveira/HeartRisk/internal/dataset"
	"github.com/FlavioCFOliveira/HeartRisk/internal/features"
	"github.com/FlavioCFOliveira/HeartRisk/internal/log"
	"github.com/FlavioCFOliveira/HeartRisk/internal/metrics"
	"github.com/FlavioCFOliveira/HeartRisk/internal/scaler"
	"github.com/FlavioCFOliveira/HeartRisk/internal/split"
)

// Result holds everything produced by one pipeline run.
// TrainX and TestX are scaled; TrainX includes oversampled rows.
type Result struct {
	Config         config.Config
	Scaler         *scaler.MinMax
	Model          *boost.Model
	TrainX         [][]float64
	TrainY         []int
	TestX          [][]float64
	TestY          []int
	ScalePosWeight float64
}

// Run executes the pipeline described by cfg.
// The scaler is fit on the training split only and reused for the test split.
func Run(ctx context.Context, cfg config.Config, logger *log.Entry) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	records, err := dataset.Load(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	X, y := features.Matrix(records, features.Options{ApplyWeighting: cfg.ApplyWeighting})
	neg, pos := split.ClassCounts(y)
	logger.WithFields(log.Fields{
		"path":     cfg.DataPath,
		"rows":     len(records),
		"negative": neg,
		"positive": pos,
	}).Info("dataset loaded")

	idx, err := split.Stratified(y, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, err
	}
	rawTrain, trainY := split.Take(X, y, idx.Train)
	rawTest, testY := split.Take(X, y, idx.Test)

	sc := scaler.New()
	if err := sc.Fit(rawTrain); err != nil {
		return nil, err
	}
	trainX, err := sc.TransformAll(rawTrain)
	if err != nil {
		return nil, err
	}
	testX, err := sc.TransformAll(rawTest)
	if err != nil {
		return nil, err
	}

	if cfg.UseSMOTE {
		before := len(trainY)
		trainX, trainY, err = split.SMOTE(trainX, trainY, cfg.SMOTENeighbors, cfg.Seed)
		if err != nil {
			return nil, err
		}
		logger.WithFields(log.Fields{
			"synthetic": len(trainY) - before,
			"k":         cfg.SMOTENeighbors,
		}).Info("training split oversampled")
	}

	params := boostParams(cfg)
	params.ScalePosWeight = split.ScalePosWeight(trainY)

	callbacks := []boost.Callback{boost.Logger{Interval: cfg.LogInterval, Entry: logger}}
	var csvLog *boost.CSVLogger
	if cfg.TrainLogPath != "" {
		csvLog = boost.NewCSVLogger(cfg.TrainLogPath, false)
		callbacks = append(callbacks, csvLog)
	}

	model, err := boost.Train(ctx, trainX, trainY, params, callbacks...)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if csvLog != nil {
		if err := csvLog.Err(); err != nil {
			logger.WithError(err).Warn("training log incomplete")
		}
	}

	return &Result{
		Config:         cfg,
		Scaler:         sc,
		Model:          model,
		TrainX:         trainX,
		TrainY:         trainY,
		TestX:          testX,
		TestY:          testY,
		ScalePosWeight: params.ScalePosWeight,
	}, nil
}

func boostParams(cfg config.Config) boost.Params {
	p := boost.DefaultParams()
	p.NEstimators = cfg.Model.NEstimators
	p.MaxDepth = cfg.Model.MaxDepth
	p.LearningRate = cfg.Model.LearningRate
	p.MinChildWeight = cfg.Model.MinChildWeight
	p.Subsample = cfg.Model.Subsample
	p.ColsampleByTree = cfg.Model.ColsampleByTree
	p.EvalMetric = cfg.Model.EvalMetric
	p.Seed = cfg.Seed
	return p
}

// Evaluate scores the model on the held-out split.
func (r *Result) Evaluate() (*metrics.Evaluation, error) {
	return metrics.Evaluate(r.Model, r.TestX, r.TestY)
}

// Artifacts returns the state needed to serve predictions without retraining.
func (r *Result) Artifacts() *Artifacts {
	min, max := r.Scaler.State()
	return &Artifacts{
		Model:          r.Model,
		ScalerMin:      min,
		ScalerMax:      max,
		TrainX:         r.TrainX,
		Names:          append([]string(nil), features.Names...),
		ApplyWeighting: r.Config.ApplyWeighting,
		LocalSamples:   r.Config.LocalSamples,
		Seed:           r.Config.Seed,
	}
}
