// Package ingest turns uploaded CSV or spreadsheet files into raw tables.
// It does no interpretation beyond locating the header row.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sales_insight/pkg/core/table"

	"github.com/xuri/excelize/v2"
)

var errUnsupported = errors.New("unsupported file type")

// ReadFile loads the first sheet of an .xlsx file or a .csv file. Any
// failure is reported as *table.FileParseError.
func ReadFile(path string) (*table.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &table.FileParseError{Path: path, Err: err}
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := Read(f, filepath.Ext(path), name)
	if err != nil {
		return nil, &table.FileParseError{Path: path, Err: err}
	}
	return t, nil
}

// Read parses r according to ext (".csv", ".xlsx", ".xlsm").
func Read(r io.Reader, ext string, name string) (*table.RawTable, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = readSheet(r)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupported, ext)
	}
	if err != nil {
		return nil, err
	}
	return fromRows(name, rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return rows, nil
}

// fromRows treats the first non-blank row as the header and drops fully
// blank data rows.
func fromRows(name string, rows [][]string) (*table.RawTable, error) {
	start := -1
	for i, row := range rows {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, errors.New("no header row")
	}

	headers := rows[start]
	var data [][]string
	for _, row := range rows[start+1:] {
		if blank(row) {
			continue
		}
		data = append(data, row)
	}
	return table.NewRawTable(name, headers, data), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
