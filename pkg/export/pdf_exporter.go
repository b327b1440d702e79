package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular PDF. Cells may carry
// multi-line text; CellFills colours individual body cells.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

const (
	pdfLineHeight = 4.5
	pdfCellPad    = 1.5
)

// Render creates a landscape PDF with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(data.Headers))

	writeHeaderRow := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 8)
	}
	writeHeaderRow()

	for rowIdx, row := range data.Rows {
		lines := make([][]string, len(data.Headers))
		rowLines := 1
		for i, header := range data.Headers {
			if cell := row[header]; cell != "" {
				lines[i] = strings.Split(cell, "\n")
				if len(lines[i]) > rowLines {
					rowLines = len(lines[i])
				}
			}
		}
		rowHeight := float64(rowLines)*pdfLineHeight + 2*pdfCellPad

		if pdf.GetY()+rowHeight > pageHeight-12 {
			pdf.AddPage()
			writeHeaderRow()
		}

		y := pdf.GetY()
		for i, header := range data.Headers {
			cellX := left + float64(i)*colWidth
			if fill, ok := data.CellFills[fmt.Sprintf("%s:%d", header, rowIdx)]; ok {
				r, g, b, err := hexRGB(fill)
				if err == nil {
					pdf.SetFillColor(r, g, b)
					pdf.SetTextColor(255, 255, 255)
					pdf.Rect(cellX, y, colWidth, rowHeight, "F")
				}
			}
			pdf.Rect(cellX, y, colWidth, rowHeight, "D")
			for li, line := range lines[i] {
				pdf.SetXY(cellX, y+pdfCellPad+float64(li)*pdfLineHeight)
				pdf.CellFormat(colWidth, pdfLineHeight, line, "", 0, "C", false, 0, "")
			}
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.SetXY(left, y+rowHeight)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func hexRGB(hex string) (int, int, int, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid colour %q", hex)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return r, g, b, nil
}
