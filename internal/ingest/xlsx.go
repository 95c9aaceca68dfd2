package ingest

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) Format() Format { return FormatXLSX }

func (xlsxReader) CanRead(filename string) bool { return hasExt(filename, ".xlsx", ".xlsm") }

func (xlsxReader) Sheets(src Source) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(src.Data))
	if err != nil {
		return nil, unreadable(src.Name, "open workbook", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (xlsxReader) Read(src Source, sheetIndex int) (*dataset.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(src.Data))
	if err != nil {
		return nil, unreadable(src.Name, "open workbook", err)
	}
	defer f.Close()

	sheet, err := pickSheet(src, f.GetSheetList(), sheetIndex)
	if err != nil {
		return nil, err
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, unreadable(src.Name, "read sheet "+sheet, err)
	}
	defer rows.Close()

	var t *dataset.Table
	parseErrors := 0
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			parseErrors++
			continue
		}
		if blank(cells) {
			continue
		}
		if t == nil {
			t = dataset.New(HeaderNames(cells))
			continue
		}
		n := len(t.Columns)
		if len(cells) > n {
			if !blank(cells[n:]) {
				parseErrors++
				continue
			}
			cells = cells[:n]
		}
		row := make(dataset.Row, n)
		for i, c := range cells {
			if c != "" {
				row[i] = dataset.String(c)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Error(); err != nil {
		return nil, unreadable(src.Name, "read sheet "+sheet, err)
	}
	if t == nil {
		t = &dataset.Table{}
	}
	t.ParseErrors = parseErrors
	return t, nil
}

func pickSheet(src Source, sheets []string, index int) (string, error) {
	if src.Sheet != "" {
		for _, s := range sheets {
			if s == src.Sheet {
				return s, nil
			}
		}
		return "", &SourceError{Code: CodeSheetNotFound, Source: src.Name, Op: "select sheet", Err: fmt.Errorf("no sheet named %q", src.Sheet)}
	}
	if index < 0 || index >= len(sheets) {
		return "", &SourceError{Code: CodeSheetNotFound, Source: src.Name, Op: "select sheet", Err: fmt.Errorf("sheet index %d out of range (workbook has %d)", index, len(sheets))}
	}
	return sheets[index], nil
}
