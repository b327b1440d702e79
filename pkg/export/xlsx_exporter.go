package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into a single-sheet Excel workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render creates an .xlsx workbook with a styled header row and the
// dataset body. CellFills, when present, keys "header:rowIndex" to a hex
// fill colour for that cell.
func (e *XLSXExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := "Schedule"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	for i := range data.Headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, 22)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("build header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("build body style: %w", err)
	}

	row := 1
	if title != "" {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
		_ = f.SetCellValue(sheet, cell, title)
		_ = f.MergeCell(sheet, cell, last)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
		row++
	}

	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, header)
		_ = f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	row++

	fillStyles := make(map[string]int)
	for rowIdx, record := range data.Rows {
		maxLines := 1
		for i, header := range data.Headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			value := record[header]
			_ = f.SetCellValue(sheet, cell, value)
			if lines := strings.Count(value, "\n") + 1; lines > maxLines {
				maxLines = lines
			}

			fill, ok := data.CellFills[fmt.Sprintf("%s:%d", header, rowIdx)]
			if !ok {
				_ = f.SetCellStyle(sheet, cell, cell, bodyStyle)
				continue
			}
			styleID, cached := fillStyles[fill]
			if !cached {
				styleID, err = f.NewStyle(&excelize.Style{
					Font:      &excelize.Font{Color: "#FFFFFF"},
					Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
					Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
				})
				if err != nil {
					return nil, fmt.Errorf("build fill style: %w", err)
				}
				fillStyles[fill] = styleID
			}
			_ = f.SetCellStyle(sheet, cell, cell, styleID)
		}
		if maxLines > 1 {
			_ = f.SetRowHeight(sheet, row, float64(maxLines)*15)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
