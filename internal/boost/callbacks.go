package boost

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/FlavioCFOliveira/HeartRisk/internal/log"
)

// Callback observes training progress.
type Callback interface {
	OnTrainBegin(m *Model)
	OnTrainEnd(m *Model)
	OnRoundEnd(round int, metric float64, m *Model)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(m *Model)                          {}
func (c BaseCallback) OnTrainEnd(m *Model)                            {}
func (c BaseCallback) OnRoundEnd(round int, metric float64, m *Model) {}

// Logger logs the evaluation metric every Interval rounds.
type Logger struct {
	BaseCallback
	Interval int
	Entry    *log.Entry
}

func (c Logger) OnTrainBegin(m *Model) {
	c.Entry.WithFields(log.Fields{
		"rounds":           m.Params.NEstimators,
		"max_depth":        m.Params.MaxDepth,
		"scale_pos_weight": m.Params.ScalePosWeight,
	}).Info("training started")
}

func (c Logger) OnRoundEnd(round int, metric float64, m *Model) {
	if c.Interval > 0 && round%c.Interval == 0 {
		c.Entry.WithFields(log.Fields{
			"round":           round,
			m.Params.EvalMetric: fmt.Sprintf("%.6f", metric),
		}).Info("boosting round")
	}
}

func (c Logger) OnTrainEnd(m *Model) {
	c.Entry.WithField("trees", len(m.Trees)).Info("training finished")
}

// CSVLogger writes one row per boosting round to a CSV file.
// Write failures are kept and reported by Err.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
	err    error
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) OnTrainBegin(m *Model) {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		c.err = fmt.Errorf("csv logger: open %s: %w", c.Filename, err)
		return
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		c.write([]string{"round", m.Params.EvalMetric, "time_seconds"})
	}
}

func (c *CSVLogger) OnRoundEnd(round int, metric float64, m *Model) {
	if c.writer == nil {
		return
	}
	c.write([]string{
		strconv.Itoa(round),
		fmt.Sprintf("%.6f", metric),
		fmt.Sprintf("%.2f", time.Since(c.start).Seconds()),
	})
}

func (c *CSVLogger) OnTrainEnd(m *Model) {
	if c.file != nil {
		c.writer.Flush()
		if err := c.file.Close(); err != nil && c.err == nil {
			c.err = err
		}
		c.file = nil
		c.writer = nil
	}
}

// Err returns the first error met while logging.
func (c *CSVLogger) Err() error {
	return c.err
}

func (c *CSVLogger) write(record []string) {
	if err := c.writer.Write(record); err != nil && c.err == nil {
		c.err = fmt.Errorf("csv logger: %w", err)
	}
	c.writer.Flush()
	if err := c.writer.Error(); err != nil && c.err == nil {
		c.err = fmt.Errorf("csv logger: %w", err)
	}
}
