package dto

import (
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/models"
)

// ExitView renders the sign-out form or its receipt.
type ExitView struct {
	Visible        bool
	State          string
	Student        StudentCard
	Form           exitflow.Form
	Motives        []models.Motive
	Periods        []string
	PeriodsVisible bool
	Tutor1Label    string
	Tutor2Label    string
	SaveEnabled    bool
	PrimaryAction  string
	Error          string
	Receipt        *exitflow.ReceiptView
}
