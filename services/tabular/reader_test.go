package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var wantRows = []map[string]string{
	{"email": "asha@chuo.test", "full_name": "Asha Mwangi", "gpa": "3.2", "status": "active"},
	{"email": "bakari@chuo.test", "full_name": "Bakari Otieno", "gpa": "", "status": ""},
}

func TestReader_csv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.CSV")
	content := "\ufeffEmail, Full_Name ,GPA,status\n" +
		"asha@chuo.test, Asha Mwangi ,3.2,active\n" +
		",,,\n" +
		"bakari@chuo.test,Bakari Otieno\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rows, err := NewReader().ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, wantRows, rows)
}

func TestReader_xlsx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "students.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	records := [][]interface{}{
		{"email", "full_name", "gpa", "status"},
		{"asha@chuo.test", "Asha Mwangi", "3.2", "active"},
		{},
		{"bakari@chuo.test", "Bakari Otieno"},
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rec))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := NewReader().ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, wantRows, rows)
}

func TestReader_errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewReader().ReadRows(filepath.Join(dir, "students.pdf"))
	assert.Equal(t, ErrUnsupportedFormat, errors.Cause(err))

	_, err = NewReader().ReadRows(filepath.Join(dir, "missing.csv"))
	assert.True(t, os.IsNotExist(errors.Cause(err)))

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	rows, err := NewReader().ReadRows(empty)
	require.NoError(t, err)
	assert.Empty(t, rows)

	broken := filepath.Join(dir, "broken.csv")
	require.NoError(t, os.WriteFile(broken, []byte("email\n\"unterminated\n"), 0o600))
	_, err = NewReader().ReadRows(broken)
	assert.Error(t, err)
}
