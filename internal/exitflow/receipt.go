package exitflow

import (
	"time"

	"github.com/noah-isme/exit-kiosk/internal/models"
	"github.com/noah-isme/exit-kiosk/pkg/export"
)

// ReceiptTitle heads the printed exit receipt.
const ReceiptTitle = "PARTE DE SALIDA"

// ReceiptView is the printable copy of an accepted exit.
type ReceiptView struct {
	Date        string
	Time        string
	Student     string
	Group       string
	DNI         string
	Motive      string
	Accompanied string
	// ReturnLine is set only when the student returns.
	ReturnLine string
}

// NewReceipt renders the accepted record at the given time.
func NewReceipt(r models.ExitRecord, at time.Time) ReceiptView {
	accompanied := string(r.AccompaniedBy)
	if r.AccompaniedBy == models.CompanionTutor1 || r.AccompaniedBy == models.CompanionTutor2 {
		accompanied = r.TutorName
	}
	view := ReceiptView{
		Date:        at.Format("02/01/2006"),
		Time:        at.Format("15:04:05"),
		Student:     r.StudentName,
		Group:       r.Group,
		DNI:         r.DNI,
		Motive:      string(r.Motive),
		Accompanied: accompanied,
	}
	if r.Vuelve {
		view.ReturnLine = "SÍ - Horas: " + r.Horas
	}
	return view
}

// Document lays the receipt out for the PDF receipt exporter.
func (v ReceiptView) Document() export.Receipt {
	lines := []export.ReceiptLine{
		{Label: "Fecha", Value: v.Date},
		{Label: "Hora", Value: v.Time},
		{Label: "Alumno", Value: v.Student},
		{Label: "Grupo", Value: v.Group},
		{Label: "DNI", Value: v.DNI},
		{Label: "Motivo", Value: v.Motive},
		{Label: "Acompañado por", Value: v.Accompanied},
	}
	if v.ReturnLine != "" {
		lines = append(lines, export.ReceiptLine{Label: "Regreso", Value: v.ReturnLine})
	}
	return export.Receipt{Title: ReceiptTitle, Lines: lines, Footer: "Firma:"}
}
