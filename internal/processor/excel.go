package processor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel returns one segment per non-empty row, carrying the sheet name
// and 1-based row index.
func extractExcel(content []byte) ([]segment, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var segments []segment
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for i, row := range rows {
			text := strings.TrimSpace(strings.Join(row, "\t"))
			if text == "" {
				continue
			}
			segments = append(segments, segment{
				text:      text,
				sheetName: sheet,
				rowIndex:  int64(i + 1),
			})
		}
	}
	return segments, nil
}
