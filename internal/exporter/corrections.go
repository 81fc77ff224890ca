package exporter

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	apperrors "bdcsubs/internal/errors"
	"bdcsubs/internal/subscriber"
)

// Cell fill colors of the correction workbook
const (
	FillCorrected = "00FF00"
	FillRejected  = "FF0000"
	FillLocation  = "FFC1CC"
	FillWarning   = "FFFF00"
)

const (
	dataSheet = "Subscribers"
	logSheet  = "Changes"
	notesCol  = "notes"
)

// locationFields are highlighted pink rather than red when rejected
var locationFields = map[string]bool{
	subscriber.ColLat:     true,
	subscriber.ColLon:     true,
	subscriber.ColAddress: true,
	subscriber.ColCity:    true,
	subscriber.ColState:   true,
	subscriber.ColZip:     true,
}

// SourceRow is one raw data row with its 1-based data row number
type SourceRow struct {
	Row    int
	Fields []string
}

// CorrectionInput is everything the correction workbook shows
type CorrectionInput struct {
	Header      []string
	Columns     subscriber.Columns
	Rows        []SourceRow
	Corrections []subscriber.Correction
	Errors      []apperrors.RowError
	Warnings    []subscriber.Warning
}

// cellNote is the fill and note attached to one cell
type cellNote struct {
	fill string
	note string
}

// WriteCorrectionWorkbook writes the input rows with corrected values in
// place. Changed cells are green, rejected fields red (pink for location
// fields) and warnings yellow; a trailing notes column explains each row
// and a second sheet lists every automatic change.
func WriteCorrectionWorkbook(path string, in CorrectionInput) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	styles := make(map[string]int)
	for _, color := range []string{FillCorrected, FillRejected, FillLocation, FillWarning} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("failed to create style: %w", err)
		}
		styles[color] = id
	}

	header := append(append([]string{}, in.Header...), notesCol)
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// corrected values replace the originals before highlighting
	values := make(map[int][]string, len(in.Rows))
	excelRow := make(map[int]int, len(in.Rows))
	for i, r := range in.Rows {
		values[r.Row] = append([]string{}, r.Fields...)
		excelRow[r.Row] = i + 2
	}
	for _, c := range in.Corrections {
		if col, ok := in.Columns[c.Field]; ok && col < len(values[c.Row]) {
			values[c.Row][col] = c.Corrected
		}
	}

	notes := make(map[int]map[int]cellNote)
	mark := func(row int, field, fill, note string) {
		col, ok := in.Columns[field]
		if !ok {
			col = len(in.Header)
		}
		if notes[row] == nil {
			notes[row] = make(map[int]cellNote)
		}
		// rejection outranks a warning, which outranks a correction
		if prev, ok := notes[row][col]; ok && rank(prev.fill) >= rank(fill) {
			if note != "" {
				prev.note += "; " + note
				notes[row][col] = prev
			}
			return
		}
		notes[row][col] = cellNote{fill: fill, note: note}
	}
	for _, c := range in.Corrections {
		mark(c.Row, c.Field, FillCorrected, "")
	}
	for _, w := range in.Warnings {
		mark(w.Row, w.Field, FillWarning, w.Message)
	}
	for _, e := range in.Errors {
		fill := FillRejected
		if locationFields[e.Field] {
			fill = FillLocation
		}
		mark(e.Row, e.Field, fill, e.Message)
	}

	for _, r := range in.Rows {
		line := append(values[r.Row], rowNote(notes[r.Row]))
		cell, _ := excelize.CoordinatesToCellName(1, excelRow[r.Row])
		if err := f.SetSheetRow(dataSheet, cell, &line); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Row, err)
		}
		for col, n := range notes[r.Row] {
			if col >= len(in.Header) {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow[r.Row])
			if err := f.SetCellStyle(dataSheet, cell, cell, styles[n.fill]); err != nil {
				return fmt.Errorf("failed to style %s: %w", cell, err)
			}
		}
	}

	if err := writeChangeLog(f, in.Corrections); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func rank(fill string) int {
	switch fill {
	case FillRejected, FillLocation:
		return 3
	case FillWarning:
		return 2
	}
	return 1
}

// rowNote joins the notes of a row in column order
func rowNote(cells map[int]cellNote) string {
	cols := make([]int, 0, len(cells))
	for col := range cells {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	var out string
	for _, col := range cols {
		if n := cells[col].note; n != "" {
			if out != "" {
				out += "; "
			}
			out += n
		}
	}
	return out
}

func writeChangeLog(f *excelize.File, corrections []subscriber.Correction) error {
	if _, err := f.NewSheet(logSheet); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	header := []interface{}{"row", "field", "original", "corrected", "change"}
	if err := f.SetSheetRow(logSheet, "A1", &header); err != nil {
		return err
	}
	for i, c := range corrections {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		line := []interface{}{c.Row, c.Field, c.Original, c.Corrected, c.Kind}
		if err := f.SetSheetRow(logSheet, cell, &line); err != nil {
			return fmt.Errorf("failed to write change %d: %w", i, err)
		}
	}
	return nil
}
