package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptLine is one labelled line of a printed receipt.
type ReceiptLine struct {
	Label string
	Value string
}

// Receipt is a small printable document: a title, labelled lines and an optional footer.
type Receipt struct {
	Title  string
	Lines  []ReceiptLine
	Footer string
}

// ReceiptExporter renders receipts on an 80mm ticket page.
type ReceiptExporter struct{}

// NewReceiptExporter constructs a receipt exporter.
func NewReceiptExporter() *ReceiptExporter {
	return &ReceiptExporter{}
}

// Render produces the PDF bytes for the receipt.
func (e *ReceiptExporter) Render(r Receipt) ([]byte, error) {
	if len(r.Lines) == 0 {
		return nil, fmt.Errorf("receipt requires at least one line")
	}
	height := 40 + float64(len(r.Lines))*7
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: 80, Ht: height},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(5, 6, 5)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, tr(r.Title), "B", 1, "C", false, 0, "")
	pdf.Ln(3)

	for _, line := range r.Lines {
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(26, 6, tr(line.Label+":"), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, tr(line.Value), "", 1, "", false, 0, "")
	}

	if r.Footer != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, tr(r.Footer), "T", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
