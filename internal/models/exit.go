package models

// Motive is the reason recorded for a student leaving the premises.
type Motive string

// Built-in motives. The offered list is configurable; these are the defaults.
const (
	MotivePersonal   Motive = "Personal"
	MotiveMedico     Motive = "Médico"
	MotiveEnfermedad Motive = "Enfermedad"
	MotiveFamiliar   Motive = "Familiar"
	MotiveOtro       Motive = "Otro"
)

// DefaultMotives is the motive list used when none is configured.
var DefaultMotives = []Motive{MotivePersonal, MotiveMedico, MotiveEnfermedad, MotiveFamiliar, MotiveOtro}

// Companion says who accompanies the student out.
type Companion string

const (
	CompanionSolo   Companion = "Solo"
	CompanionTutor1 Companion = "Tutor1"
	CompanionTutor2 Companion = "Tutor2"
	CompanionOtro   Companion = "Otro"
)

// Companions lists the companion options in display order.
var Companions = []Companion{CompanionSolo, CompanionTutor1, CompanionTutor2, CompanionOtro}

// Valid reports whether c is one of the known companion options.
func (c Companion) Valid() bool {
	for _, known := range Companions {
		if c == known {
			return true
		}
	}
	return false
}

// ExitRecord is the payload posted to the backend when a student signs out.
// Student fields are a snapshot taken at submission time.
type ExitRecord struct {
	StudentID     StudentID `json:"studentId"`
	StudentName   string    `json:"studentName"`
	Group         string    `json:"group"`
	DNI           string    `json:"dni"`
	Motive        Motive    `json:"motive"`
	AccompaniedBy Companion `json:"accompaniedBy"`
	TutorName     string    `json:"tutorName"`
	Vuelve        bool      `json:"vuelve"`
	Horas         string    `json:"horas"`
}

// ExitStats is the per-student exit counter returned by the backend.
type ExitStats struct {
	Count        int `json:"count"`
	MonthlyCount int `json:"monthlyCount"`
}

// UploadResult is the backend answer to a roster upload.
type UploadResult struct {
	Count int `json:"count"`
}
