package infra

import (
	"fmt"
	"io"
	"time"

	"github.com/tea-tech/simple-inventory/internal/dto"

	"github.com/go-pdf/fpdf"
)

// WritePackingSlip renders a packing slip PDF for a package and its content
// claims.
func WritePackingSlip(w io.Writer, pkg *dto.EntityResponse, contents []dto.RelationResponse) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Packing slip "+pkg.Barcode, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Packing Slip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Package: %s (%s)", pkg.Name, pkg.Barcode))
	pdf.Ln(6)
	if pkg.Status != nil {
		pdf.Cell(0, 6, "Status: "+*pkg.Status)
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, "Generated: "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(10)

	// Table header
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(60, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Barcode", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 8, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Notes", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	totalUnits := 0
	for _, rel := range contents {
		price := ""
		if rel.PriceSnapshot != nil {
			price = rel.PriceSnapshot.StringFixed(2)
		}
		notes := ""
		if rel.Notes != nil {
			notes = *rel.Notes
		}
		pdf.CellFormat(60, 7, rel.ChildName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, rel.ChildBarcode, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", rel.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, price, "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, notes, "1", 1, "L", false, 0, "")
		totalUnits += rel.Quantity
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %d lines, %d units", len(contents), totalUnits))

	return pdf.Output(w)
}
