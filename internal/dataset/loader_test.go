package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalCSV = `age,height,weight,systolic,diastolic,cholesterol,glucose,gender,smoke,alcohol,active,heart_disease
50,170,70,120,80,190,95,1,0,0,1,0
61,165,90,150,95,250,140,0,1,1,0,1
`

func TestReadCanonical(t *testing.T) {
	records, err := Read(strings.NewReader(canonicalCSV))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, Record{
		Age: 50, Height: 170, Weight: 70, Systolic: 120, Diastolic: 80,
		Cholesterol: 190, Glucose: 95, Gender: 1, Smoke: 0, Alcohol: 0, Active: 1,
		HeartDisease: 0,
	}, records[0])
	assert.Equal(t, 1.0, records[1].HeartDisease)
	assert.Equal(t, 250.0, records[1].Cholesterol)
}

func TestReadRenamesAndSemicolons(t *testing.T) {
	data := "id;age;gender;height;weight;systolic;diastolic;cholesterol;gluc;smoke;alco;active;cardio\n" +
		"0;18393;2;168;62;110;80;1;1;0;0;1;0\n" +
		"1;20228;1;156;85;140;90;3;1;0;1;1;1\n"

	records, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1.0, records[0].Glucose)
	assert.Equal(t, 1.0, records[1].Alcohol)
	assert.Equal(t, 1.0, records[1].HeartDisease)
	assert.Equal(t, 18393.0, records[0].Age)
}

func TestReadSchemaErrorListsEveryMissingColumn(t *testing.T) {
	data := "age,height,weight,systolic,cholesterol,gender,smoke,active\n1,2,3,4,5,6,7,8\n"

	_, err := Read(strings.NewReader(data))
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"diastolic", "glucose", "alcohol", "heart_disease"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "diastolic, glucose, alcohol, heart_disease")
}

func TestReadMalformedValuesBecomeNaN(t *testing.T) {
	data := strings.Replace(canonicalCSV, "50,170,70", "fifty,170,70", 1)

	records, err := Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(records[0].Age))
	assert.Equal(t, 170.0, records[0].Height)
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.Error(t, err)

	header := strings.SplitN(canonicalCSV, "\n", 2)[0] + "\n"
	_, err = Read(strings.NewReader(header))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heart.csv")
	require.NoError(t, os.WriteFile(path, []byte(canonicalCSV), 0o644))

	records, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
