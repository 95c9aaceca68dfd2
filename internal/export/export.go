// Package export serializes tables back to CSV or an Excel workbook.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

// Format is an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet written by Workbook.
const SheetName = "Data"

// ParseFormat accepts "csv", "xlsx" or a path ending in either extension.
func ParseFormat(s string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(v); ext != "" {
		v = strings.TrimPrefix(ext, ".")
	}
	switch v {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv or xlsx)", s)
}

// Encode renders t in the given format.
func Encode(t *dataset.Table, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(t)
	case FormatXLSX:
		return Workbook(t)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// ContentType returns the MIME type for f.
func ContentType(f Format) string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// CSV writes a header row followed by one record per row. Missing values are
// empty fields; quoting follows RFC 4180.
func CSV(t *dataset.Table) ([]byte, error) {
	if t == nil {
		t = &dataset.Table{}
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		for j := range rec {
			rec[j] = r.Get(j).Text()
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Workbook writes t to a single-sheet .xlsx document named SheetName.
// Numbers and booleans keep their cell types; missing values are blank cells.
func Workbook(t *dataset.Table) ([]byte, error) {
	if t == nil {
		t = &dataset.Table{}
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	cells := make([]interface{}, len(t.Columns))
	for i, r := range t.Rows {
		for j := range cells {
			cells[j] = cellValue(r.Get(j))
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(addr, cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("flush sheet: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(v dataset.Value) interface{} {
	if f, ok := v.Num(); ok {
		return f
	}
	if b, ok := v.Boolean(); ok {
		return b
	}
	if s, ok := v.Str(); ok {
		return s
	}
	return nil
}
