package exitflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

func student() models.Student {
	return models.Student{
		ID: "1", Name: "Ana Ruiz", Group: "3A", DNI: "111",
		Tutor1: &models.Tutor{Name: "Luis Ruiz Pérez", DNI: "222"},
	}
}

func opened(t *testing.T) Machine {
	t.Helper()
	m, err := New(DefaultOptions()).Apply(OpenEvent{Student: student()})
	require.NoError(t, err)
	return m
}

func TestOpenResetsForm(t *testing.T) {
	m := opened(t)
	m, err := m.Apply(EditEvent{Form: Form{Motive: models.MotiveMedico, Companion: models.CompanionOtro, Vuelve: true, Periods: []string{"3ª"}}})
	require.NoError(t, err)

	m, err = m.Apply(OpenEvent{Student: student()})
	require.NoError(t, err)

	assert.Equal(t, Open, m.State)
	assert.Equal(t, Form{Motive: models.MotivePersonal, Companion: models.CompanionSolo}, m.Form)
	assert.False(t, m.Form.PeriodsVisible())
	assert.Equal(t, "save", m.PrimaryAction())

	t1, t2 := m.TutorLabels()
	assert.Equal(t, "Luis Ruiz", t1)
	assert.Empty(t, t2)
}

func TestTutorLabel(t *testing.T) {
	assert.Equal(t, "Luis Ruiz", TutorLabel("Luis Ruiz Pérez"))
	assert.Equal(t, "Luis", TutorLabel("Luis"))
	assert.Equal(t, "", TutorLabel(""))
}

func TestTutorName(t *testing.T) {
	s := student()
	assert.Equal(t, "Luis Ruiz Pérez", TutorName(s, models.CompanionTutor1))
	assert.Equal(t, TutorMissing, TutorName(s, models.CompanionTutor2))
	assert.Equal(t, OtherAuthorized, TutorName(s, models.CompanionOtro))
	assert.Equal(t, NoTutor, TutorName(s, models.CompanionSolo))
}

func TestSubmitWithAbsentTutorUsesErrorSentinel(t *testing.T) {
	m, err := New(DefaultOptions()).Apply(OpenEvent{Student: models.Student{ID: "9", Name: "Sin Tutor"}})
	require.NoError(t, err)
	m, err = m.Apply(EditEvent{Form: Form{Motive: models.MotivePersonal, Companion: models.CompanionTutor1}})
	require.NoError(t, err)

	m, err = m.Apply(SubmitEvent{})
	require.NoError(t, err)
	require.NotNil(t, m.Pending)
	assert.Equal(t, "Error", m.Pending.TutorName)
}

func TestHoras(t *testing.T) {
	assert.Equal(t, "", Horas(Form{Vuelve: false, Periods: []string{"1ª", "2ª"}}))
	assert.Equal(t, HorasUnknown, Horas(Form{Vuelve: true}))
	assert.Equal(t, "1ª, 3ª", Horas(Form{Vuelve: true, Periods: []string{"1ª", "3ª"}}))
}

func TestStalePeriodsAreNotSubmitted(t *testing.T) {
	m := opened(t)
	m, err := m.Apply(EditEvent{Form: Form{Motive: models.MotivePersonal, Companion: models.CompanionSolo, Vuelve: true, Periods: []string{"4ª", "2ª"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"2ª", "4ª"}, m.Form.Periods)

	m, err = m.Apply(EditEvent{Form: Form{Motive: models.MotivePersonal, Companion: models.CompanionSolo, Vuelve: false, Periods: m.Form.Periods}})
	require.NoError(t, err)

	m, err = m.Apply(SubmitEvent{})
	require.NoError(t, err)
	assert.False(t, m.Pending.Vuelve)
	assert.Equal(t, "", m.Pending.Horas)
}

func TestEditRejectsUnknownValues(t *testing.T) {
	m := opened(t)

	_, err := m.Apply(EditEvent{Form: Form{Motive: "Vacaciones", Companion: models.CompanionSolo}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = m.Apply(EditEvent{Form: Form{Motive: models.MotivePersonal, Companion: "Abuela"}})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	next, err := m.Apply(EditEvent{Form: Form{Motive: models.MotivePersonal, Companion: models.CompanionSolo, Vuelve: true, Periods: []string{"9ª"}}})
	require.NoError(t, err)
	assert.Empty(t, next.Form.Periods)
}

func TestSuccessfulSubmissionProducesReceipt(t *testing.T) {
	m := opened(t)
	m, err := m.Apply(EditEvent{Form: Form{Motive: models.MotiveMedico, Companion: models.CompanionTutor1, Vuelve: true, Periods: []string{"3ª"}}})
	require.NoError(t, err)

	m, err = m.Apply(SubmitEvent{})
	require.NoError(t, err)
	assert.Equal(t, Submitting, m.State)
	assert.False(t, m.SaveEnabled())

	want := models.ExitRecord{
		StudentID: "1", StudentName: "Ana Ruiz", Group: "3A", DNI: "111",
		Motive: models.MotiveMedico, AccompaniedBy: models.CompanionTutor1, TutorName: "Luis Ruiz Pérez",
		Vuelve: true, Horas: "3ª",
	}
	assert.Equal(t, want, *m.Pending)

	at := time.Date(2024, 5, 14, 9, 30, 5, 0, time.UTC)
	m, err = m.Apply(SucceededEvent{At: at})
	require.NoError(t, err)
	assert.Equal(t, Receipt, m.State)
	assert.True(t, m.SaveEnabled())
	assert.Equal(t, "print", m.PrimaryAction())

	r := m.Receipt
	require.NotNil(t, r)
	assert.Equal(t, "14/05/2024", r.Date)
	assert.Equal(t, "09:30:05", r.Time)
	assert.Equal(t, "Luis Ruiz Pérez", r.Accompanied)
	assert.Equal(t, "SÍ - Horas: 3ª", r.ReturnLine)

	doc := r.Document()
	assert.Equal(t, ReceiptTitle, doc.Title)
	assert.Equal(t, "Regreso", doc.Lines[len(doc.Lines)-1].Label)
}

func TestReceiptWithoutReturnHasNoReturnLine(t *testing.T) {
	r := NewReceipt(models.ExitRecord{AccompaniedBy: models.CompanionOtro, TutorName: OtherAuthorized}, time.Now())
	assert.Empty(t, r.ReturnLine)
	assert.Equal(t, "Otro", r.Accompanied)
	for _, line := range r.Document().Lines {
		assert.NotEqual(t, "Regreso", line.Label)
	}
}

func TestFailedSubmissionKeepsFormEditable(t *testing.T) {
	m := opened(t)
	m, err := m.Apply(EditEvent{Form: Form{Motive: models.MotiveFamiliar, Companion: models.CompanionSolo}})
	require.NoError(t, err)
	m, err = m.Apply(SubmitEvent{})
	require.NoError(t, err)

	m, err = m.Apply(FailedEvent{Message: "Error al guardar: DNI duplicado"})
	require.NoError(t, err)
	assert.Equal(t, Open, m.State)
	assert.True(t, m.SaveEnabled())
	assert.Equal(t, models.MotiveFamiliar, m.Form.Motive)
	assert.Equal(t, "Error al guardar: DNI duplicado", m.Error)
	assert.Nil(t, m.Pending)
}

func TestInvalidTransitionsLeaveMachineUnchanged(t *testing.T) {
	closed := New(DefaultOptions())
	for _, ev := range []Event{SubmitEvent{}, SucceededEvent{}, FailedEvent{}, EditEvent{}} {
		next, err := closed.Apply(ev)
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "%T", ev)
		assert.Equal(t, closed, next)
	}

	m := opened(t)
	submitting, err := m.Apply(SubmitEvent{})
	require.NoError(t, err)
	for _, ev := range []Event{OpenEvent{}, CloseEvent{}, SubmitEvent{}, EditEvent{}} {
		next, err := submitting.Apply(ev)
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "%T", ev)
		assert.Equal(t, submitting, next)
	}
}

func TestCloseFromReceipt(t *testing.T) {
	m := opened(t)
	m, _ = m.Apply(SubmitEvent{})
	m, _ = m.Apply(SucceededEvent{At: time.Now()})

	m, err := m.Apply(CloseEvent{})
	require.NoError(t, err)
	assert.Equal(t, Closed, m.State)
	assert.Nil(t, m.Receipt)
	assert.Equal(t, models.Student{}, m.Student)
}
