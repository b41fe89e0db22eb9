package export

import (
	"io"
	"time"

	"linkedevents/models"

	"github.com/phpdave11/gofpdf"
)

func formatWindow(event models.Event) string {
	if event.StartTime == nil {
		return "date to be announced"
	}
	out := event.StartTime.Format("02.01.2006 15:04")
	if event.EndTime != nil {
		out += " - " + event.EndTime.Format("02.01.2006 15:04")
	}
	return out
}

// WritePDF renders a printable event listing.
func WritePDF(w io.Writer, events []models.Event) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Event listing")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.Cell(0, 6, "Generated "+time.Now().UTC().Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)
	pdf.SetTextColor(0, 0, 0)

	for _, event := range events {
		pdf.SetFont("Arial", "B", 12)
		pdf.MultiCell(0, 6, event.Name.AnyText("fi"), "", "L", false)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 5, formatWindow(event))
		pdf.Ln(5)
		if event.Location != "" {
			pdf.Cell(0, 5, "Location: "+event.Location)
			pdf.Ln(5)
		}
		if desc := event.ShortDescription.AnyText("fi"); desc != "" {
			pdf.SetTextColor(80, 80, 80)
			pdf.MultiCell(0, 5, desc, "", "L", false)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(4)
	}

	return pdf.Output(w)
}
