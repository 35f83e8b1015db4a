package document

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// writePDF renders a titled text document onto US Letter pages. Lines
// wrap at the margin and page breaks are handled by the writer.
func writePDF(title, content, outputPath string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(50, 50, 50)
	pdf.SetAutoPageBreak(true, 50)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.MultiCell(0, 20, title, "", "C", false)
		pdf.Ln(10)
	}

	pdf.SetFont("Helvetica", "", 12)
	for _, line := range strings.Split(content, "\n") {
		if line == "" {
			pdf.Ln(15)
			continue
		}
		pdf.MultiCell(0, 15, line, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
