package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Read loads a table from a .csv or .xlsx file.
func Read(path string) (*Table, error) {
	switch ext(path) {
	case ".csv":
		return ReadCSV(path)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported table file %s", path)
	}
}

// Write stores a table as .csv or .xlsx depending on the path extension.
func Write(path string, t *Table) error {
	switch ext(path) {
	case ".csv":
		return WriteCSV(path, t)
	case ".xlsx", ".xlsm":
		return WriteXLSX(path, t)
	default:
		return fmt.Errorf("unsupported table file %s", path)
	}
}

// ReadCSV loads a CSV file whose first record is the header.
func ReadCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return fromRecords(records), nil
}

// WriteCSV stores a table as CSV with a header record.
func WriteCSV(path string, t *Table) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ReadXLSX loads the first worksheet of an XLSX workbook.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return New(), nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %s: %w", path, err)
	}
	return fromRecords(rows), nil
}

// WriteXLSX stores a table as a single-sheet XLSX workbook.
func WriteXLSX(path string, t *Table) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, t.Columns); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", path, err)
	}
	for i, row := range t.Rows {
		if err := setRow(f, i+2, row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	start, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(defaultSheet, start, &cells)
}

func fromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return New()
	}
	t := New(records[0]...)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		t.Append(rec...)
	}
	return t
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
