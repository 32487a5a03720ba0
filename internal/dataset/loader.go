// Package dataset loads health records from delimited files.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Renames maps alternate column names to their canonical names.
var Renames = map[string]string{
	"gluc":   "glucose",
	"cardio": "heart_disease",
	"alco":   "alcohol",
}

// Required lists the canonical columns every input file must provide.
var Required = []string{
	"age", "height", "weight", "systolic", "diastolic", "cholesterol", "glucose",
	"gender", "smoke", "alcohol", "active", "heart_disease",
}

// Record is one row of raw health data.
type Record struct {
	Age          float64
	Height       float64 // cm
	Weight       float64 // kg
	Systolic     float64
	Diastolic    float64
	Cholesterol  float64
	Glucose      float64
	Gender       float64
	Smoke        float64
	Alcohol      float64
	Active       float64
	HeartDisease float64
}

// SchemaError reports every required column missing from the input.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: [%s]", strings.Join(e.Missing, ", "))
}

// Load reads records from a delimited file.
func Load(filename string) ([]Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Read(file)
}

// Read reads records from delimited data with a header row.
// The delimiter is ';' when the header has semicolons and no commas, ',' otherwise.
// Cells that do not parse as numbers become NaN.
func Read(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.Comma = sniffDelimiter(string(data))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("csv file is empty")
	}

	columns, err := resolveColumns(records[0])
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("csv file has no data rows")
	}

	out := make([]Record, 0, len(records)-1)
	for _, row := range records[1:] {
		value := func(name string) float64 {
			return parseCell(row[columns[name]])
		}
		out = append(out, Record{
			Age:          value("age"),
			Height:       value("height"),
			Weight:       value("weight"),
			Systolic:     value("systolic"),
			Diastolic:    value("diastolic"),
			Cholesterol:  value("cholesterol"),
			Glucose:      value("glucose"),
			Gender:       value("gender"),
			Smoke:        value("smoke"),
			Alcohol:      value("alcohol"),
			Active:       value("active"),
			HeartDisease: value("heart_disease"),
		})
	}
	return out, nil
}

// resolveColumns applies Renames to the header and maps each required
// column to its index.
func resolveColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if canonical, ok := Renames[name]; ok {
			name = canonical
		}
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}

	var missing []string
	for _, name := range Required {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return columns, nil
}

func sniffDelimiter(data string) rune {
	header := data
	if i := strings.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if strings.Contains(header, ";") && !strings.Contains(header, ",") {
		return ';'
	}
	return ','
}

func parseCell(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
