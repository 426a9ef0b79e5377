package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"bookingetl/pkg/errors"
)

// ReadFile parses a delimited-text or spreadsheet extract into a Table.
// A missing or unparsable file yields a SourceNotFoundError.
func ReadFile(ctx context.Context, path, name string) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.SourceNotFoundError(path, nil)
		}
		return nil, errors.SourceNotFoundError(path, err)
	}
	if info.IsDir() {
		return nil, errors.SourceNotFoundError(path, fmt.Errorf("%s is a directory", path))
	}

	var header []string
	var records [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		header, records, err = readCSV(path)
	case ".xlsx":
		header, records, err = readXLSX(path)
	default:
		err = fmt.Errorf("unsupported extract format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.SourceNotFoundError(path, err)
	}

	table, err := FromRecords(name, header, records)
	if err != nil {
		return nil, errors.SourceNotFoundError(path, err)
	}
	return table, nil
}

// readCSV reads a header row followed by records. Quoted fields may span lines.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path) // #nosec G304 - path is resolved inside the source directory
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("extract is empty, expected a header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return header, records, nil
}

// readXLSX reads the first sheet; the first row is the header.
func readXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty, expected a header row", sheets[0])
	}

	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) > len(header) {
			return nil, nil, fmt.Errorf("record %d has %d fields, expected %d", i+1, len(row), len(header))
		}
		// excelize trims trailing empty cells
		record := make([]string, len(header))
		copy(record, row)
		records = append(records, record)
	}
	return header, records, nil
}
