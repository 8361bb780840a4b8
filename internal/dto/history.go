package dto

import (
	"time"

	"github.com/noah-isme/exit-kiosk/internal/analytics"
	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/models"
)

// HistoryView renders the history browser.
type HistoryView struct {
	Visible  bool
	Loading  bool
	Error    string
	Empty    bool
	Criteria filter.HistoryCriteria
	Motives  []models.Motive
	Rows     []HistoryRowView
	Summary  analytics.Summary
	DayBars  []analytics.Bar
	// SessionBars are the class session histogram bars.
	SessionBars []analytics.Bar
	Confirm     *HistoryRowView
	Deleting    bool
}

// HistoryRowView is one table row with display placeholders applied.
type HistoryRowView struct {
	Fecha       string
	Hora        string
	Nombre      string
	Grupo       string
	Motivo      string
	Acompanante string
	Vuelve      string
	PDF         string
	PDFURL      string
	Deletable   bool
}

// ExportLink is a signed download for a generated history export.
type ExportLink struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}
