// Package excel decodes uploaded workbook files into sheet row data.
//
// The decoder is a pure transform from bytes to data: it enumerates the
// workbook's sheets, treats the first row of each sheet as the header row,
// and converts every data row into a RawRow keyed by column header. Short
// rows are padded so that every observed header has a value (empty string
// for absent cells), matching how operators expect spreadsheet data to
// behave.
package excel

import (
	"bytes"
	"errors"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned when a workbook parses but contains no sheets.
var ErrNoSheets = errors.New("workbook contains no sheets")

// DecodeError reports that uploaded bytes could not be read as a workbook.
// It is fatal to the upload attempt and surfaced verbatim to the operator.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decode workbook: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RawRow is one data row of a sheet, keyed by column header.
// Cells absent from short rows are present with an empty string value.
type RawRow map[string]string

// Sheet is one named table within a workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []RawRow
}

// Workbook holds every sheet of a decoded file, in workbook order.
type Workbook struct {
	sheets []Sheet
	byName map[string]int
}

// SheetNames returns the sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, s := range w.sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the named sheet, or false if the workbook has no such sheet.
func (w *Workbook) Sheet(name string) (Sheet, bool) {
	i, ok := w.byName[name]
	if !ok {
		return Sheet{}, false
	}
	return w.sheets[i], true
}

// First returns the first sheet of the workbook.
func (w *Workbook) First() Sheet {
	return w.sheets[0]
}

// Decode parses workbook bytes into a Workbook.
// Returns a *DecodeError if the bytes are not a recognizable workbook or
// the workbook has zero sheets.
func Decode(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, &DecodeError{Err: ErrNoSheets}
	}

	wb := &Workbook{byName: make(map[string]int, len(names))}
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		wb.byName[name] = len(wb.sheets)
		wb.sheets = append(wb.sheets, buildSheet(name, rows))
	}

	return wb, nil
}

// SheetNames lists the sheet names of workbook bytes without converting
// rows. Used to populate the sheet picker quickly on large files.
func SheetNames(data []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// buildSheet converts raw cell rows into a Sheet. The first row is the
// header; blank rows are skipped; short rows are padded with empty strings.
func buildSheet(name string, rows [][]string) Sheet {
	sheet := Sheet{Name: name}
	if len(rows) == 0 {
		return sheet
	}

	// Track the original column index of each header so that data cells
	// stay aligned even when the header row has blank columns.
	var cols []int
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h != "" {
			sheet.Headers = append(sheet.Headers, h)
			cols = append(cols, i)
		}
	}

	for _, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		row := make(RawRow, len(sheet.Headers))
		for j, h := range sheet.Headers {
			if cols[j] < len(cells) {
				row[h] = strings.TrimSpace(cells[cols[j]])
			} else {
				row[h] = ""
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
