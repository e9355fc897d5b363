package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel renders each sheet as tab-separated rows. Workbooks with
// more than one sheet get a "Sheet: name" line before each sheet.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var lines []string
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("rows of sheet %q: %w", sheet, err)
		}
		if len(sheets) > 1 && len(rows) > 0 {
			lines = append(lines, "Sheet: "+sheet)
		}
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
			if line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
