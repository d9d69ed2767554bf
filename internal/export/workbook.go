package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// SheetInfo describes one worksheet of a saved export.
type SheetInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

// WorkbookInfo lists the worksheets of a saved export in order.
type WorkbookInfo struct {
	Sheets []SheetInfo `json:"sheets"`
}

// Rows returns the row count of the named sheet, or -1 when absent.
func (w WorkbookInfo) Rows(sheet string) int {
	for _, s := range w.Sheets {
		if s.Name == sheet {
			return s.Rows
		}
	}
	return -1
}

// InspectWorkbook opens an xlsx payload and counts the rows of each sheet.
func InspectWorkbook(data []byte) (WorkbookInfo, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return WorkbookInfo{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var info WorkbookInfo
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return WorkbookInfo{}, fmt.Errorf("read sheet %s: %w", name, err)
		}
		info.Sheets = append(info.Sheets, SheetInfo{Name: name, Rows: len(rows)})
	}
	return info, nil
}
