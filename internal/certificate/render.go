package certificate

import (
	"bytes"
	"fmt"

	"github.com/PatchLore/midnight-typer/internal/star"

	"github.com/go-pdf/fpdf"
)

// RenderPDF draws the "Certificate of Stellar Recovery" for a claimed star.
func RenderPDF(descriptor star.Descriptor, treeCount int64, date string) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFillColor(10, 10, 26)
	pdf.Rect(0, 0, 297, 210, "F")

	pdf.SetTextColor(255, 215, 0)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetY(30)
	pdf.CellFormat(0, 14, "Certificate of Stellar Recovery", "", 1, "C", false, 0, "")

	pdf.SetTextColor(230, 230, 240)
	pdf.SetFont("Helvetica", "", 13)
	pdf.Ln(6)
	pdf.CellFormat(0, 8, "This certifies the official registration of", "", 1, "C", false, 0, "")

	pdf.SetTextColor(255, 215, 0)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Ln(2)
	pdf.CellFormat(0, 12, descriptor.DisplayName(), "", 1, "C", false, 0, "")

	pdf.SetTextColor(230, 230, 240)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Ln(6)
	pdf.CellFormat(0, 7, fmt.Sprintf("Right Ascension: %s", descriptor.RA), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Declination: %s", descriptor.Dec), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Spectral Class: %s", descriptor.SpectralClass), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Apparent Magnitude: %.2f", descriptor.Magnitude), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetTextColor(150, 150, 160)
	pdf.Ln(10)
	pdf.CellFormat(0, 6,
		fmt.Sprintf("This star is part of a constellation that has planted %d trees on Earth.", treeCount),
		"", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Registered on %s by the Cosmic Cartography Registry", date), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render certificate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
