// Package config holds the single immutable configuration value of a run.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ModelConfig holds the fixed boosting hyperparameters.
type ModelConfig struct {
	NEstimators     int
	MaxDepth        int
	LearningRate    float64
	MinChildWeight  float64
	Subsample       float64
	ColsampleByTree float64

	// EvalMetric is the training metric reported by callbacks.
	// Options: "logloss", "error", "auc"
	EvalMetric string
}

// Config is every recognised option of a pipeline run.
// It is built once at startup and passed by value into each component.
type Config struct {
	DataPath string
	Seed     int64
	TestSize float64

	// UseSMOTE oversamples the minority class of the training split.
	UseSMOTE       bool
	SMOTENeighbors int

	// ApplyWeighting enables the legacy feature multipliers.
	// They distort feature distributions and stay off unless asked for.
	ApplyWeighting bool

	Model ModelConfig

	// LocalSamples is the neighbourhood size of the local surrogate explainer.
	LocalSamples int

	// TrainLogPath, when set, receives one CSV row per boosting round.
	TrainLogPath string
	LogInterval  int
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DataPath:       "data/heartdisease_data.csv",
		Seed:           42,
		TestSize:       0.2,
		UseSMOTE:       false,
		SMOTENeighbors: 5,
		ApplyWeighting: false,
		Model: ModelConfig{
			NEstimators:     600,
			MaxDepth:        7,
			LearningRate:    0.025,
			MinChildWeight:  4,
			Subsample:       0.85,
			ColsampleByTree: 0.85,
			EvalMetric:      "logloss",
		},
		LocalSamples: 5000,
		LogInterval:  100,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data path must not be empty")
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0, 1) (got %v)", c.TestSize)
	}
	if c.SMOTENeighbors < 1 {
		return fmt.Errorf("smote_k must be at least 1 (got %d)", c.SMOTENeighbors)
	}
	if c.LocalSamples < 10 {
		return fmt.Errorf("lime_samples must be at least 10 (got %d)", c.LocalSamples)
	}
	if c.LogInterval < 0 {
		return fmt.Errorf("log_interval cannot be negative (got %d)", c.LogInterval)
	}
	return c.Model.Validate()
}

// Validate checks the boosting hyperparameters.
func (m ModelConfig) Validate() error {
	if m.NEstimators < 1 {
		return fmt.Errorf("n_estimators must be at least 1 (got %d)", m.NEstimators)
	}
	if m.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1 (got %d)", m.MaxDepth)
	}
	if m.LearningRate <= 0 || m.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1] (got %v)", m.LearningRate)
	}
	if m.MinChildWeight < 0 {
		return fmt.Errorf("min_child_weight cannot be negative (got %v)", m.MinChildWeight)
	}
	if m.Subsample <= 0 || m.Subsample > 1 {
		return fmt.Errorf("subsample must be in (0, 1] (got %v)", m.Subsample)
	}
	if m.ColsampleByTree <= 0 || m.ColsampleByTree > 1 {
		return fmt.Errorf("colsample_bytree must be in (0, 1] (got %v)", m.ColsampleByTree)
	}
	switch m.EvalMetric {
	case "logloss", "error", "auc":
	default:
		return fmt.Errorf("eval_metric must be 'logloss', 'error' or 'auc' (got %q)", m.EvalMetric)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{DataPath: %s, Seed: %d, TestSize: %v, SMOTE: %t (k=%d), Weighting: %t, "+
			"NEstimators: %d, MaxDepth: %d, LearningRate: %v, MinChildWeight: %v, "+
			"Subsample: %v, ColsampleByTree: %v, EvalMetric: %s, LocalSamples: %d}",
		c.DataPath, c.Seed, c.TestSize, c.UseSMOTE, c.SMOTENeighbors, c.ApplyWeighting,
		c.Model.NEstimators, c.Model.MaxDepth, c.Model.LearningRate, c.Model.MinChildWeight,
		c.Model.Subsample, c.Model.ColsampleByTree, c.Model.EvalMetric, c.LocalSamples,
	)
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// FromEnv creates a Config from environment variables, falling back to defaults
//
// Environment variables:
//   - XAI_DATA_PATH: path to the delimited input file
//   - XAI_RANDOM_STATE: seed for splitting, oversampling, boosting and explanations (default: 42)
//   - XAI_TEST_SIZE: held-out fraction (default: 0.2)
//   - XAI_USE_SMOTE: oversample the training split (default: false)
//   - XAI_SMOTE_K: nearest neighbours used for oversampling (default: 5)
//   - XAI_APPLY_WEIGHTING: legacy feature multipliers (default: false)
//   - XAI_N_ESTIMATORS, XAI_MAX_DEPTH, XAI_LEARNING_RATE, XAI_MIN_CHILD_WEIGHT,
//     XAI_SUBSAMPLE, XAI_COLSAMPLE_BYTREE, XAI_EVAL_METRIC: boosting parameters
//   - XAI_LIME_SAMPLES: local explainer neighbourhood size (default: 5000)
//   - XAI_TRAIN_LOG: CSV file for per-round training metrics (default: off)
//   - XAI_LOG_INTERVAL: log the training metric every N rounds (default: 100)
//
// Returns an error if any environment variable has an invalid value.
func FromEnv() (Config, error) {
	cfg := Default()

	parsers := []error{
		parseEnvString("XAI_DATA_PATH", &cfg.DataPath),
		parseEnvInt64("XAI_RANDOM_STATE", &cfg.Seed),
		parseEnvFloat("XAI_TEST_SIZE", &cfg.TestSize),
		parseEnvBool("XAI_USE_SMOTE", &cfg.UseSMOTE),
		parseEnvInt("XAI_SMOTE_K", &cfg.SMOTENeighbors),
		parseEnvBool("XAI_APPLY_WEIGHTING", &cfg.ApplyWeighting),
		parseEnvInt("XAI_N_ESTIMATORS", &cfg.Model.NEstimators),
		parseEnvInt("XAI_MAX_DEPTH", &cfg.Model.MaxDepth),
		parseEnvFloat("XAI_LEARNING_RATE", &cfg.Model.LearningRate),
		parseEnvFloat("XAI_MIN_CHILD_WEIGHT", &cfg.Model.MinChildWeight),
		parseEnvFloat("XAI_SUBSAMPLE", &cfg.Model.Subsample),
		parseEnvFloat("XAI_COLSAMPLE_BYTREE", &cfg.Model.ColsampleByTree),
		parseEnvString("XAI_EVAL_METRIC", &cfg.Model.EvalMetric),
		parseEnvInt("XAI_LIME_SAMPLES", &cfg.LocalSamples),
		parseEnvString("XAI_TRAIN_LOG", &cfg.TrainLogPath),
		parseEnvInt("XAI_LOG_INTERVAL", &cfg.LogInterval),
	}
	for _, err := range parsers {
		if err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

func parseEnvString(key string, dest *string) error {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvInt64(key string, dest *int64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool accepts "1"/"0" as well as the strconv.ParseBool spellings.
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}
