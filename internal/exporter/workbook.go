package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PrepareUpstreamWorkbook copies the upstream corrected workbook to dst with
// the bookkeeping column removed from every sheet. It reports whether the
// column was found.
func PrepareUpstreamWorkbook(src, dst, column string) (bool, error) {
	f, err := excelize.OpenFile(src)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	removed := false
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		for i, name := range rows[0] {
			if !strings.EqualFold(strings.TrimSpace(name), column) {
				continue
			}
			colName, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return false, err
			}
			if err := f.RemoveCol(sheet, colName); err != nil {
				return false, fmt.Errorf("failed to remove column %s from %s: %w", column, sheet, err)
			}
			removed = true
			break
		}
	}

	if err := f.SaveAs(dst); err != nil {
		return false, fmt.Errorf("failed to save %s: %w", dst, err)
	}
	return removed, nil
}
