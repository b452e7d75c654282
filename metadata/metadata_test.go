package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudyInstanceUIDs(t *testing.T) {
	records := []Record{
		{"StudyInstanceUID": "study1"},
		{"StudyInstanceUID": "study2", "PatientName": "John Doe"},
		{"StudyInstanceUID": "study1"},
		{"PatientName": "no uid"},
		{"StudyInstanceUID": 42},
	}
	assert.Equal(t, map[string]bool{"study1": true, "study2": true}, StudyInstanceUIDs(records))
	assert.Equal(t, "", records[4].StudyInstanceUID())
}

func TestRecordString(t *testing.T) {
	{
		assert.Equal(t, "{\"StudyInstanceUID\":\"study1\"}", Record{"StudyInstanceUID": "study1"}.String())
	}
	{
		assert.Equal(t, "{}", Criteria{}.String())
	}
}

func TestReadCriteriaCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filter_criteria.csv")
	content := "\ufeffPatientName, Modality\nJohn Doe,CT\nJane Roe,\n, MR \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadCriteriaCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []Criteria{
		{"PatientName": "John Doe", "Modality": "CT"},
		{"PatientName": "Jane Roe"},
		{"Modality": "MR"},
	}, rows)
}

func TestReadCriteriaCSVErrors(t *testing.T) {
	dir := t.TempDir()
	{
		_, err := ReadCriteriaCSV(filepath.Join(dir, "missing.csv"))
		assert.Error(t, err)
	}
	{
		empty := filepath.Join(dir, "empty.csv")
		require.NoError(t, os.WriteFile(empty, nil, 0o644))
		_, err := ReadCriteriaCSV(empty)
		assert.Error(t, err)
	}
	{
		headerOnly := filepath.Join(dir, "header.csv")
		require.NoError(t, os.WriteFile(headerOnly, []byte("PatientName\n"), 0o644))
		rows, err := ReadCriteriaCSV(headerOnly)
		assert.NoError(t, err)
		assert.Empty(t, rows)
	}
}
