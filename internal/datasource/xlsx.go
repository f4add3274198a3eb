// Package datasource loads chart datasets from outside sources: spreadsheet
// columns and feed publishing activity.
package datasource

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gak/gochartapi/pkg/chart"
)

// ErrColumnNotFound is returned when a requested column header is absent.
var ErrColumnNotFound = errors.New("column not found")

// Table is a set of numeric columns read from a sheet. The first row of the
// sheet supplies the headers.
type Table struct {
	Sheet   string
	Headers []string
	Columns []chart.Dataset
}

// Apply adds every column as a dataset and uses the headers as the legend.
func (t *Table) Apply(c *chart.Chart) {
	for _, col := range t.Columns {
		c.AddData(col)
	}
	c.SetLegend(t.Headers)
}

// ReadXLSX reads the named columns of sheet from the workbook at path. An
// empty sheet selects the first sheet; no columns selects all of them.
// Cells that are blank or not numbers become missing values.
func ReadXLSX(path, sheet string, columns ...string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return readSheet(f, sheet, columns)
}

func readSheet(f *excelize.File, sheet string, columns []string) (*Table, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	header := rows[0]
	idx := make([]int, 0, len(header))
	if len(columns) == 0 {
		for i := range header {
			idx = append(idx, i)
		}
	} else {
		for _, name := range columns {
			i := indexOf(header, name)
			if i < 0 {
				return nil, fmt.Errorf("sheet %q: %w: %q", sheet, ErrColumnNotFound, name)
			}
			idx = append(idx, i)
		}
	}

	t := &Table{Sheet: sheet}
	for _, i := range idx {
		col := make(chart.Dataset, 0, len(rows)-1)
		for _, row := range rows[1:] {
			col = append(col, cellValue(row, i))
		}
		t.Headers = append(t.Headers, strings.TrimSpace(header[i]))
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

// GetRows trims trailing empty cells, so short rows are missing on the right.
func cellValue(row []string, i int) float64 {
	if i >= len(row) {
		return chart.Missing
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
	if err != nil {
		return chart.Missing
	}
	return v
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// WriteXLSX writes the table to a new workbook at path, one column per
// dataset with the headers in the first row. Missing values are left blank.
func WriteXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}
	for c, col := range t.Columns {
		if c < len(t.Headers) {
			if err := setCell(f, sheet, c+1, 1, t.Headers[c]); err != nil {
				return err
			}
		}
		for r, v := range col {
			if chart.IsMissing(v) {
				continue
			}
			if err := setCell(f, sheet, c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, v)
}
