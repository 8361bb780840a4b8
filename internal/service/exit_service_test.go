package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/exitflow"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

type recordingBadges struct{ invalidated []models.StudentID }

func (r *recordingBadges) Invalidate(ctx context.Context, id models.StudentID) {
	r.invalidated = append(r.invalidated, id)
}

type recordingExits struct{ results []string }

func (r *recordingExits) RecordExit(result string) { r.results = append(r.results, result) }

type exitFixture struct {
	fb      *fakeBackend
	k       *kiosk.Kiosk
	badges  *recordingBadges
	metrics *recordingExits
	svc     *ExitService
}

func newExitFixture(t *testing.T) exitFixture {
	t.Helper()
	fb := &fakeBackend{roster: roster()}
	k := newTestKiosk(fb)
	roster := NewRosterService(nil, nil)
	require.NoError(t, roster.Load(context.Background(), k))

	badges := &recordingBadges{}
	metrics := &recordingExits{}
	at := time.Date(2024, 5, 14, 9, 30, 5, 0, time.UTC)
	svc := NewExitService(roster, badges, nil, metrics, nil).WithClock(func() time.Time { return at })
	return exitFixture{fb: fb, k: k, badges: badges, metrics: metrics, svc: svc}
}

func TestExitSubmitSuccess(t *testing.T) {
	f := newExitFixture(t)
	require.NoError(t, f.svc.Open(f.k, "1"))
	require.NoError(t, f.svc.Update(f.k, exitflow.Form{
		Motive:    models.MotiveMedico,
		Companion: models.CompanionTutor1,
		Vuelve:    true,
		Periods:   []string{"4ª", "3ª"},
	}))

	require.NoError(t, f.svc.Submit(context.Background(), f.k))

	require.Len(t, f.fb.exits, 1)
	rec := f.fb.exits[0]
	assert.Equal(t, "Luis Ruiz Gómez", rec.TutorName)
	assert.Equal(t, "3ª, 4ª", rec.Horas)
	assert.True(t, rec.Vuelve)

	view := f.svc.View(f.k)
	assert.Equal(t, "print", view.PrimaryAction)
	require.NotNil(t, view.Receipt)
	assert.Equal(t, "14/05/2024", view.Receipt.Date)
	assert.Equal(t, "09:30:05", view.Receipt.Time)
	assert.Equal(t, "SÍ - Horas: 3ª, 4ª", view.Receipt.ReturnLine)

	toasts := f.k.DrainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, kiosk.Toast{Kind: kiosk.ToastSuccess, Message: ExitSavedMessage}, toasts[0])
	assert.Equal(t, []models.StudentID{"1"}, f.badges.invalidated)
	assert.Equal(t, []string{"saved"}, f.metrics.results)

	pdf, err := f.svc.ReceiptPDF(f.k)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestExitSubmitRejected(t *testing.T) {
	f := newExitFixture(t)
	f.fb.exitErr = &backend.RejectedError{Status: 500, Message: "Disco lleno"}
	require.NoError(t, f.svc.Open(f.k, "1"))

	require.NoError(t, f.svc.Submit(context.Background(), f.k))

	view := f.svc.View(f.k)
	assert.Equal(t, exitflow.Open.String(), view.State)
	assert.Equal(t, "Error al guardar: Disco lleno", view.Error)
	assert.True(t, view.SaveEnabled)
	toasts := f.k.DrainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, kiosk.ToastError, toasts[0].Kind)
	assert.Empty(t, f.badges.invalidated)

	_, err := f.svc.ReceiptPDF(f.k)
	assert.Error(t, err)
}

func TestExitSubmitRejectedWithoutMessage(t *testing.T) {
	f := newExitFixture(t)
	f.fb.exitErr = &backend.RejectedError{Status: 503}
	require.NoError(t, f.svc.Open(f.k, "1"))
	require.NoError(t, f.svc.Submit(context.Background(), f.k))

	assert.Equal(t, "Error al guardar: Error del servidor (503)", f.svc.View(f.k).Error)
}

func TestExitSubmitTransportFailure(t *testing.T) {
	f := newExitFixture(t)
	f.fb.exitErr = appErrors.ErrUpstreamUnavailable
	require.NoError(t, f.svc.Open(f.k, "1"))
	require.NoError(t, f.svc.Submit(context.Background(), f.k))

	toasts := f.k.DrainToasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Error de conexión.", toasts[0].Message)
	assert.Equal(t, []string{"unavailable"}, f.metrics.results)
}

func TestExitSubmitSignInRequired(t *testing.T) {
	f := newExitFixture(t)
	f.fb.exitErr = appErrors.ErrSignInRequired
	require.NoError(t, f.svc.Open(f.k, "1"))

	err := f.svc.Submit(context.Background(), f.k)
	assert.True(t, backend.IsSignInRequired(err))
	assert.Empty(t, f.k.DrainToasts())
}

func TestExitSubmitWithoutStudent(t *testing.T) {
	f := newExitFixture(t)
	err := f.svc.Submit(context.Background(), f.k)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoStudentSelected))
	assert.Empty(t, f.fb.exits)
}

func TestExitOpenUnknownStudent(t *testing.T) {
	f := newExitFixture(t)
	err := f.svc.Open(f.k, "404")
	assert.True(t, appErrors.Is(err, appErrors.ErrNoStudentSelected))
	assert.False(t, f.svc.View(f.k).Visible)
}

func TestExitCloseAndReopen(t *testing.T) {
	f := newExitFixture(t)
	require.NoError(t, f.svc.Open(f.k, "1"))
	require.NoError(t, f.svc.Update(f.k, exitflow.Form{Motive: models.MotiveOtro, Companion: models.CompanionOtro}))
	require.NoError(t, f.svc.Close(f.k))
	assert.False(t, f.svc.View(f.k).Visible)

	require.NoError(t, f.svc.Open(f.k, "2"))
	view := f.svc.View(f.k)
	assert.Equal(t, models.MotivePersonal, view.Form.Motive)
	assert.Equal(t, models.CompanionSolo, view.Form.Companion)
	assert.Equal(t, "Juan Pérez", view.Student.Name)
}

func TestExitSubmitFormAppliesValuesBeforeSending(t *testing.T) {
	f := newExitFixture(t)
	require.NoError(t, f.svc.Open(f.k, "1"))

	require.NoError(t, f.svc.SubmitForm(context.Background(), f.k, exitflow.Form{
		Motive:    models.MotiveMedico,
		Companion: models.CompanionTutor1,
		Vuelve:    true,
		Periods:   []string{"2ª"},
	}))

	require.Len(t, f.fb.exits, 1)
	rec := f.fb.exits[0]
	assert.Equal(t, models.MotiveMedico, rec.Motive)
	assert.Equal(t, models.CompanionTutor1, rec.AccompaniedBy)
	assert.Equal(t, "Luis Ruiz Gómez", rec.TutorName)
	assert.Equal(t, "2ª", rec.Horas)
}

func TestExitSubmitFormRejectsUnknownMotive(t *testing.T) {
	f := newExitFixture(t)
	require.NoError(t, f.svc.Open(f.k, "1"))

	err := f.svc.SubmitForm(context.Background(), f.k, exitflow.Form{
		Motive:    models.Motive("Excursión"),
		Companion: models.CompanionSolo,
	})
	require.Error(t, err)
	assert.Empty(t, f.fb.exits)
	assert.Equal(t, "save", f.svc.View(f.k).PrimaryAction)
}
