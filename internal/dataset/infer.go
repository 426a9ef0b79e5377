package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// inference order, most specific first
var inferenceOrder = []ColumnType{TypeInteger, TypeDouble, TypeBoolean, TypeDate, TypeTimestamp}

// FromRecords infers a schema over raw text records and converts every cell.
// Empty strings are nulls.
func FromRecords(name string, header []string, records [][]string) (*Table, error) {
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("_c%d", i)
		}
		names[i] = h
	}

	schema := make([]Column, len(names))
	for c, colName := range names {
		colType, nullable := inferColumn(records, c)
		schema[c] = Column{Name: colName, Type: colType, Nullable: nullable}
	}

	rows := make([][]any, len(records))
	for r, record := range records {
		if len(record) != len(names) {
			return nil, fmt.Errorf("%s record %d has %d fields, expected %d", name, r+1, len(record), len(names))
		}
		row := make([]any, len(names))
		for c, raw := range record {
			v, err := convert(raw, schema[c].Type)
			if err != nil {
				return nil, fmt.Errorf("%s record %d column %s: %w", name, r+1, schema[c].Name, err)
			}
			row[c] = v
		}
		rows[r] = row
	}

	return NewTable(name, schema, rows)
}

func inferColumn(records [][]string, c int) (ColumnType, bool) {
	nullable := false
	var values []string
	for _, record := range records {
		if c >= len(record) || record[c] == "" {
			nullable = true
			continue
		}
		values = append(values, record[c])
	}
	if len(values) == 0 {
		return TypeString, true
	}

	for _, candidate := range inferenceOrder {
		fits := true
		for _, v := range values {
			if !parses(v, candidate) {
				fits = false
				break
			}
		}
		if fits {
			return candidate, nullable
		}
	}
	return TypeString, nullable
}

func parses(raw string, t ColumnType) bool {
	_, err := parseAs(raw, t)
	return err == nil
}

func convert(raw string, t ColumnType) (any, error) {
	if raw == "" {
		return nil, nil
	}
	return parseAs(raw, t)
}

func parseAs(raw string, t ColumnType) (any, error) {
	switch t {
	case TypeInteger:
		// identifiers such as phone numbers keep their leading zeros
		if hasLeadingZero(raw) {
			return nil, fmt.Errorf("leading zero in %q", raw)
		}
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case TypeDouble:
		if hasLeadingZero(raw) {
			return nil, fmt.Errorf("leading zero in %q", raw)
		}
		trimmed := strings.TrimSpace(raw)
		if !isDecimalLiteral(trimmed) {
			return nil, fmt.Errorf("not a decimal literal: %q", raw)
		}
		return strconv.ParseFloat(trimmed, 64)
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("not a boolean: %q", raw)
	case TypeDate:
		return time.Parse("2006-01-02", strings.TrimSpace(raw))
	case TypeTimestamp:
		trimmed := strings.TrimSpace(raw)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, trimmed); err == nil {
				return ts.UTC(), nil
			}
		}
		return nil, fmt.Errorf("not a timestamp: %q", raw)
	default:
		return raw, nil
	}
}

func hasLeadingZero(raw string) bool {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// isDecimalLiteral rejects NaN, Inf and hex forms that ParseFloat accepts.
func isDecimalLiteral(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == 'e' || r == 'E':
		case (r == '-' || r == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		default:
			return false
		}
	}
	return digits > 0
}
