// Package spreadsheet reads the first sheet of an uploaded workbook into rows of strings.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx, .xls or .csv")

// Table is a sheet with the first row split off as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Cell returns the value at a 1-based column, "" when the row is shorter.
func Cell(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return strings.TrimSpace(row[col-1])
}

// Read picks the parser by file extension.
func Read(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".xls":
		// xls нужен ReadSeeker
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.Wrap(err, "read xls")
		}
		return ReadXLS(bytes.NewReader(b))
	case ".csv":
		return ReadCSV(r)
	}
	return nil, ErrUnsupportedFormat
}

func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open xlsx")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "read xlsx rows")
	}
	return newTable(rows), nil
}

func ReadXLS(r io.ReadSeeker) (*Table, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, errors.Wrap(err, "open xls")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return &Table{}, nil
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return newTable(rows), nil
}

// ReadCSV accepts comma or semicolon separated files, with or without a UTF-8 BOM.
func ReadCSV(r io.Reader) (*Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	firstLine := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		firstLine = b[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		cr.Comma = ';'
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	return newTable(rows), nil
}

// newTable drops fully blank rows, the first remaining row becomes the header.
func newTable(rows [][]string) *Table {
	t := &Table{}
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
