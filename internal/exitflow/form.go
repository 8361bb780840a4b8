package exitflow

import (
	"strings"

	"github.com/noah-isme/exit-kiosk/internal/models"
)

// Placeholder values written to the exit record.
const (
	TutorMissing    = "Error"
	OtherAuthorized = "Otro Autorizado"
	NoTutor         = "---"
	HorasUnknown    = "No especificado"
)

// DefaultPeriods are the class periods a returning student may come back for.
var DefaultPeriods = []string{"1ª", "2ª", "3ª", "4ª", "5ª", "6ª"}

// Form is the editable state of the sign-out form. Rendering only displays it.
type Form struct {
	Motive    models.Motive    `form:"motive" json:"motive" binding:"required"`
	Companion models.Companion `form:"accompaniedBy" json:"accompaniedBy" binding:"required,companion"`
	Vuelve    bool             `form:"vuelve" json:"vuelve"`
	Periods   []string         `form:"period" json:"periods"`
}

// NewForm is the form as shown right after opening it.
func NewForm(defaultMotive models.Motive) Form {
	return Form{Motive: defaultMotive, Companion: models.CompanionSolo}
}

// PeriodsVisible reports whether the period checkboxes are shown.
func (f Form) PeriodsVisible() bool { return f.Vuelve }

// Checked reports whether period is selected.
func (f Form) Checked(period string) bool {
	for _, p := range f.Periods {
		if p == period {
			return true
		}
	}
	return false
}

// TutorLabel shortens a tutor's full name to its first two words for compact display.
func TutorLabel(name string) string {
	words := strings.Split(name, " ")
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

// TutorName resolves the name recorded for the chosen companion.
func TutorName(s models.Student, c models.Companion) string {
	switch c {
	case models.CompanionTutor1:
		return tutorOrMissing(s.Tutor1)
	case models.CompanionTutor2:
		return tutorOrMissing(s.Tutor2)
	case models.CompanionOtro:
		return OtherAuthorized
	default:
		return NoTutor
	}
}

func tutorOrMissing(t *models.Tutor) string {
	if t == nil || t.Name == "" {
		return TutorMissing
	}
	return t.Name
}

// Horas renders the selected return periods. It is empty whenever the student does not
// return, whatever periods remain checked.
func Horas(f Form) string {
	if !f.Vuelve {
		return ""
	}
	if len(f.Periods) == 0 {
		return HorasUnknown
	}
	return strings.Join(f.Periods, ", ")
}

// Payload builds the exit record from a snapshot of the student and the form.
func Payload(s models.Student, f Form) models.ExitRecord {
	return models.ExitRecord{
		StudentID:     s.ID,
		StudentName:   s.Name,
		Group:         s.Group,
		DNI:           s.DNI,
		Motive:        f.Motive,
		AccompaniedBy: f.Companion,
		TutorName:     TutorName(s, f.Companion),
		Vuelve:        f.Vuelve,
		Horas:         Horas(f),
	}
}
