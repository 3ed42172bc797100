package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"feedback-insights-go/internal/validator"
)

// Load reads a feedback table from an .xlsx or .csv file. The first row is
// taken as the header; column naming and aliasing are the validator's job,
// the loader only gets cells out of the file.
func Load(path string) (validator.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadExcel(path)
	case ".csv":
		return loadCSV(path)
	default:
		return validator.Table{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func loadExcel(path string) (validator.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return validator.Table{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return validator.Table{}, fmt.Errorf("no sheets in %s", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return validator.Table{}, fmt.Errorf("read rows: %w", err)
	}
	return tableFromRows(rows, path)
}

func loadCSV(path string) (validator.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return validator.Table{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are a validator concern
	rows, err := r.ReadAll()
	if err != nil {
		return validator.Table{}, fmt.Errorf("read csv: %w", err)
	}
	return tableFromRows(rows, path)
}

func tableFromRows(rows [][]string, path string) (validator.Table, error) {
	if len(rows) == 0 {
		return validator.Table{}, fmt.Errorf("empty file: %s", path)
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return validator.Table{Columns: header, Rows: rows[1:]}, nil
}
