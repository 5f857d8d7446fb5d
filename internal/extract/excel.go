// Package extract reads barcode rows out of accounting spreadsheet exports.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/akvl/barstamp/internal/models"
)

// Layout describes where the export keeps its fields.
type Layout struct {
	// Sheet is the worksheet name; empty means the first sheet.
	Sheet string
	// HeaderRows is the number of leading rows to skip.
	HeaderRows int
	// IDColumn and BarcodeColumn are column letters (e.g. "A", "D").
	IDColumn      string
	BarcodeColumn string
	// ExtractImages pulls pictures anchored in the barcode column.
	ExtractImages bool
}

// Row is one extracted spreadsheet row.
type Row struct {
	Number      int
	DocumentID  string
	Barcode     string
	Image       []byte
	ImageFormat string
}

// SheetData is the result of parsing one workbook.
// Rows missing a required field end up in Skipped, never abort the parse.
type SheetData struct {
	Sheet   string
	Rows    []Row
	Skipped []models.SkippedRow
}

// ParseFile reads the workbook at path and parses it with layout.
func ParseFile(path string, layout Layout) (*SheetData, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseWorkbook(content, layout)
}

// ParseWorkbook parses workbook content with layout. Completely empty rows are
// ignored; rows with an empty document ID or barcode are reported in Skipped.
func ParseWorkbook(content []byte, layout Layout) (*SheetData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := layout.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	idCol, err := excelize.ColumnNameToNumber(layout.IDColumn)
	if err != nil {
		return nil, fmt.Errorf("id column %q: %w", layout.IDColumn, err)
	}
	barcodeCol, err := excelize.ColumnNameToNumber(layout.BarcodeColumn)
	if err != nil {
		return nil, fmt.Errorf("barcode column %q: %w", layout.BarcodeColumn, err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}

	data := &SheetData{Sheet: sheet}
	for i, cells := range rows {
		rowNum := i + 1
		if rowNum <= layout.HeaderRows {
			continue
		}
		if rowEmpty(cells) {
			continue
		}
		id := strings.TrimSpace(cellAt(cells, idCol))
		barcode := strings.TrimSpace(cellAt(cells, barcodeCol))
		if id == "" {
			data.Skipped = append(data.Skipped, models.SkippedRow{Row: rowNum, Reason: "empty document id"})
			continue
		}
		if barcode == "" {
			data.Skipped = append(data.Skipped, models.SkippedRow{Row: rowNum, Reason: "empty barcode"})
			continue
		}
		row := Row{Number: rowNum, DocumentID: id, Barcode: barcode}
		if layout.ExtractImages {
			row.Image, row.ImageFormat = pictureAt(f, sheet, barcodeCol, rowNum)
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

// cellAt returns the 1-based column col from cells, or "" when the row is shorter.
// GetRows trims trailing empty cells, so short rows are common.
func cellAt(cells []string, col int) string {
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

func rowEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// pictureAt returns the first picture anchored at (col, row), if any.
func pictureAt(f *excelize.File, sheet string, col, row int) ([]byte, string) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, ""
	}
	pics, err := f.GetPictures(sheet, cell)
	if err != nil || len(pics) == 0 {
		return nil, ""
	}
	format := strings.TrimPrefix(strings.ToLower(pics[0].Extension), ".")
	return pics[0].File, format
}
